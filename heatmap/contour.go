package heatmap

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/go-spatial/geom"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kartographia/kartographia-map/geomhelp"
	"github.com/kartographia/kartographia-map/mathhelp"
)

// Contour holds the closed polygons extracted for one density threshold.
type Contour struct {
	polygons [][][2]float64
}

// Polygons returns the contour rings. Every ring is closed, first vertex
// equal to last, in the pixel space of the source heatmap.
func (c Contour) Polygons() [][][2]float64 { return c.polygons }

// Geometries returns the contour rings as polygon geometries.
func (c Contour) Geometries() []geom.Polygon {
	floaters := make([][][][2]float64, len(c.polygons))
	for i, ring := range c.polygons {
		floaters[i] = [][][2]float64{ring}
	}
	return geomhelp.FloatPolygonsToGeomPolygons(floaters)
}

// Contours extracts iso-density polygons. The heatmap is re-rendered on an
// expanded canvas with a white to red ramp, blurred, and the alpha values
// under the points are used to pick density thresholds. Without arguments
// three thresholds are used: the 80th percentile, halfway between that and
// the minimum, and the minimum. Percentile arguments pick thresholds
// explicitly; values <= 0 select the minimum alpha.
func (hm *Heatmap) Contours(percentiles ...float64) []Contour {
	if hm.points.Len() == 0 {
		return nil
	}

	// expand the canvas so the blur has room around the edge points
	blur := float64(hm.radius)
	offset := int(math.Ceil(float64(hm.radius) + blur))
	buffer := 2 * offset

	expanded := &Heatmap{
		points:        hm.points,
		maxOccurrence: hm.maxOccurrence,
		intensity:     hm.intensity,
		blur:          hm.blur,
		radius:        hm.radius,
		width:         hm.width + buffer,
		height:        hm.height + buffer,
	}
	expanded.SetHexColors("#fff", "#ff0000")

	translated := make([][3]int, 0, hm.points.Len())
	for p := hm.points.Oldest(); p != nil; p = p.Next() {
		translated = append(translated, [3]int{p.Key[0] + offset, p.Key[1] + offset, p.Value})
	}
	expanded.points = toOrderedPoints(translated)

	blurred := imaging.Blur(expanded.Render(), blur)

	// alpha values under the (translated) points drive the thresholds
	alphas := make([]int, len(translated))
	minA := math.MaxInt
	for i, pt := range translated {
		a := int(blurred.NRGBAAt(pt[0], pt[1]).A)
		alphas[i] = a
		minA = min(a, minA)
	}
	sort.Ints(alphas)

	var steps []int
	if len(percentiles) == 0 {
		a80 := alphaAt(80, alphas)
		steps = []int{a80, (a80-minA)/2 + minA, minA}
	} else {
		steps = make([]int, len(percentiles))
		for i, p := range percentiles {
			if p > 0 {
				steps[i] = alphaAt(p, alphas)
			} else {
				steps[i] = minA
			}
		}
	}

	contours := make([]Contour, len(steps))
	for i, step := range steps {
		polygons := vectorize(blurred, step)
		for _, ring := range polygons {
			for j := range ring {
				ring[j][0] -= float64(offset)
				ring[j][1] -= float64(offset)
			}
		}
		contours[i] = Contour{polygons: polygons}
	}
	return contours
}

func toOrderedPoints(points [][3]int) *orderedmap.OrderedMap[[2]int, int] {
	m := orderedmap.New[[2]int, int]()
	for _, pt := range points {
		m.Set([2]int{pt[0], pt[1]}, pt[2])
	}
	return m
}

// alphaAt returns the alpha value at the given percentile of the sorted
// alpha list.
func alphaAt(percentile float64, alphas []int) int {
	if percentile == 0 {
		return alphas[0]
	}
	index := int(math.Ceil(percentile / 100 * float64(len(alphas))))
	return alphas[index-1]
}

// vectorize binarizes the image at the given alpha threshold and traces the
// boundary of the opaque region into closed polygons. Rings matching the
// image outline are dropped.
func vectorize(img *image.NRGBA, step int) [][][2]float64 {
	b := img.Bounds()
	width := b.Dx()
	height := b.Dy()

	// indexed color array with a -1 boundary in every direction
	arr := make([][]int, height+2)
	for j := range arr {
		arr[j] = make([]int, width+2)
		arr[j][0] = -1
		arr[j][width+1] = -1
	}
	for i := 0; i < width+2; i++ {
		arr[0][i] = -1
		arr[height+1][i] = -1
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			arr[y+1][x+1] = mathhelp.Bool2int(int(img.NRGBAAt(b.Min.X+x, b.Min.Y+y).A) >= step)
		}
	}

	var polygons [][][2]float64
	for _, layer := range layering(arr, 2) {
		paths := internodes(pathscan(layer, 8))
		for _, path := range paths {
			segs := tracepath(path, 2, 2)

			var coordinates [][2]float64
			for _, seg := range segs {
				if seg.kind == segmentLinear {
					coordinates = append(coordinates,
						[2]float64{seg.x1, seg.y1},
						[2]float64{seg.x2, seg.y2})
					continue
				}
				coordinates = append(coordinates, flattenQuad(
					[2]float64{seg.x1, seg.y1},
					[2]float64{seg.cx, seg.cy},
					[2]float64{seg.x2, seg.y2}, 0.5)...)
			}

			if len(coordinates) <= 2 {
				continue
			}
			first := coordinates[0]
			last := coordinates[len(coordinates)-1]
			x1, y1 := cint(first[0]), cint(first[1])
			x2, y2 := cint(last[0]), cint(last[1])
			if x1 != x2 || y1 != y2 {
				continue
			}

			// rings hugging the upper left image corner are outline artifacts
			if len(segs) == 4 && ((x1 == 0 && y1 == 0) || (x1 == 1 && y1 == 0) || (x1 == 0 && y1 == 1)) {
				continue
			}

			if first != last {
				coordinates = append(coordinates, first)
			}
			polygons = append(polygons, coordinates)
		}
	}
	return polygons
}

func cint(v float64) int {
	return int(math.Round(v))
}
