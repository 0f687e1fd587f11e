// Package heatmap composites weighted points into a density raster, remaps
// it through a color ramp and extracts iso-density contour polygons.
// Compositing credit: https://security-consulting.icu/blog/2012/01/java-heatmap-example/
package heatmap

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/fogleman/gg"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kartographia/kartographia-map/mapslicehelp"
	"github.com/kartographia/kartographia-map/mapstyle"
)

const defaultRadius = 32

// Heatmap accumulates integer pixel points with occurrence counts.
// Points at the same pixel aggregate by summing their counts. Insertion
// order is preserved so renders are deterministic.
type Heatmap struct {
	points        *orderedmap.OrderedMap[[2]int, int]
	maxOccurrence int
	maxOverridden bool
	intensity     float64
	blur          float64
	radius        int
	colors        []color.RGBA
	width         int
	height        int
}

// New creates an empty heatmap with the default color ramp
// (black, cyan, green, yellow, red) and radius 32.
func New(width, height int) *Heatmap {
	hm := &Heatmap{
		points:        orderedmap.New[[2]int, int](),
		maxOccurrence: 1,
		intensity:     1,
		blur:          1,
		radius:        defaultRadius,
		width:         width,
		height:        height,
	}
	hm.SetColors(
		color.RGBA{A: 255},                  // black
		color.RGBA{G: 255, B: 255, A: 255},  // cyan
		color.RGBA{G: 255, A: 255},          // green
		color.RGBA{R: 255, G: 255, A: 255},  // yellow
		color.RGBA{R: 255, A: 255},          // red
	)
	return hm
}

// FromPoints creates a heatmap sized to the bounding box of the given
// points. Duplicate pixels aggregate into counts and the highest count
// becomes the max occurrence.
func FromPoints(points [][2]int, radius int) *Heatmap {
	if len(points) == 0 {
		hm := &Heatmap{
			points:        orderedmap.New[[2]int, int](),
			maxOccurrence: 1,
			intensity:     1,
			blur:          1,
			radius:        defaultRadius,
		}
		hm.SetRadius(radius)
		return hm
	}
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt

	agg := orderedmap.New[[2]int, int]()
	for _, pt := range points {
		minX = min(pt[0], minX)
		maxX = max(pt[0], maxX)
		minY = min(pt[1], minY)
		maxY = max(pt[1], maxY)

		count, _ := agg.Get(pt)
		agg.Set(pt, count+1)
	}

	hm := &Heatmap{
		points:        agg,
		maxOccurrence: 1,
		intensity:     1,
		blur:          1,
		radius:        defaultRadius,
		width:         abs(maxX - minX),
		height:        abs(maxY - minY),
	}
	hm.SetRadius(radius)
	if _, maxCount, _ := mapslicehelp.FindLastKeyWithMaxValue(agg); maxCount > hm.maxOccurrence {
		hm.maxOccurrence = maxCount
	}
	return hm
}

func (hm *Heatmap) Width() int  { return hm.width }
func (hm *Heatmap) Height() int { return hm.height }
func (hm *Heatmap) Radius() int { return hm.radius }

// Points returns the aggregated points as (x, y, count) triplets in
// insertion order.
func (hm *Heatmap) Points() [][3]int {
	keys := mapslicehelp.OrderedMapKeys(hm.points)
	pts := make([][3]int, len(keys))
	for i, k := range keys {
		count, _ := hm.points.Get(k)
		pts[i] = [3]int{k[0], k[1], count}
	}
	return pts
}

// SetRadius sets the stamp radius for individual points. Values below 1
// are ignored.
func (hm *Heatmap) SetRadius(radius int) {
	if radius < 1 {
		return
	}
	hm.radius = radius
}

// SetIntensity tweaks the opacity of each point. Smaller values make
// points appear with cooler colors. Accepts (0, 1]; other values are
// ignored.
func (hm *Heatmap) SetIntensity(intensity float64) {
	if intensity > 1 || intensity <= 0 {
		return
	}
	hm.intensity = intensity
}

// SetBlur sets the percent blur applied to individual points. Accepts
// (0, 1]; other values are ignored.
func (hm *Heatmap) SetBlur(blur float64) {
	if blur > 1 || blur <= 0 {
		return
	}
	hm.blur = blur
}

// SetMaxOccurrence overrides the occurrence count used to normalize point
// opacity. Normally the value tracks the highest inserted count, but when
// tiling you may want to fix it across tiles. Values below 1 are ignored.
func (hm *Heatmap) SetMaxOccurrence(maxOccurrence int) {
	if maxOccurrence <= 0 {
		return
	}
	hm.maxOccurrence = maxOccurrence
	hm.maxOverridden = true
}

// AddPoints adds unweighted points, aggregating duplicates.
func (hm *Heatmap) AddPoints(points [][2]int) {
	for _, pt := range points {
		count, _ := hm.points.Get(pt)
		hm.insert(pt, count+1)
	}
}

// AddCountedPoints adds (x, y, count) triplets.
func (hm *Heatmap) AddCountedPoints(points [][3]int) {
	for _, pt := range points {
		key := [2]int{pt[0], pt[1]}
		count, _ := hm.points.Get(key)
		hm.insert(key, count+pt[2])
	}
}

func (hm *Heatmap) insert(key [2]int, count int) {
	hm.points.Set(key, count)
	if !hm.maxOverridden && count > hm.maxOccurrence {
		hm.maxOccurrence = count
	}
}

// SetColors builds a color ramp from cold to hot. The ramp has
// round(500/(len(c)-1)) blended entries per segment and the first segment
// additionally ramps opacity from 0 to 255.
func (hm *Heatmap) SetColors(c ...color.RGBA) {
	if len(c) == 0 {
		return
	}
	if len(c) == 1 {
		hm.colors = []color.RGBA{c[0]}
		return
	}

	numSteps := len(c) - 1
	stepSize := int(math.Round(500 / float64(numSteps)))

	colors := make([]color.RGBA, 0, stepSize*numSteps)
	for i := 0; i < numSteps; i++ {
		for j := 0; j < stepSize; j++ {
			ratio := float64(j) / float64(stepSize)
			blended := blend(c[i], c[i+1], ratio)
			if i == 0 {
				blended.A = uint8(math.Floor(ratio * 255))
			}
			colors = append(colors, blended)
		}
	}
	hm.colors = colors
}

// SetHexColors builds a color ramp from hex strings, e.g. "#fff",
// "#ff6e00". Strings without a leading '#' are skipped.
func (hm *Heatmap) SetHexColors(hex ...string) {
	var colors []color.RGBA
	for _, str := range hex {
		if !strings.HasPrefix(str, "#") {
			continue
		}
		r, g, b, _ := mapstyle.ParseColor(str).RGBA()
		colors = append(colors, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255})
	}
	hm.SetColors(colors...)
}

// SetColorRamp installs a prebuilt ramp as-is.
func (hm *Heatmap) SetColorRamp(colors []color.RGBA) {
	hm.colors = colors
}

// SetColorsFromImage reads a ramp from an image. With useRows the first
// column is scanned top to bottom, otherwise the first row left to right.
func (hm *Heatmap) SetColorsFromImage(img image.Image, useRows bool) {
	b := img.Bounds()
	if useRows {
		colors := make([]color.RGBA, b.Dy())
		for i := range colors {
			colors[i] = rgbaAt(img, b.Min.X, b.Min.Y+i)
		}
		hm.colors = colors
		return
	}
	colors := make([]color.RGBA, b.Dx())
	for i := range colors {
		colors[i] = rgbaAt(img, b.Min.X+i, b.Min.Y)
	}
	hm.colors = colors
}

// Render composites the points into a raster. With a color ramp configured
// the raster starts white, is negated after compositing and remapped
// through the ramp; without one the raw alpha composite is returned.
func (hm *Heatmap) Render() *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, hm.width, hm.height))
	if hm.colors != nil {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	stamp := hm.stamp()
	for p := hm.points.Oldest(); p != nil; p = p.Next() {
		x, y, count := p.Key[0], p.Key[1], p.Value

		opacity := float64(count) / float64(hm.maxOccurrence) * hm.intensity
		if opacity > 1 {
			opacity = 1
		}

		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
		target := image.Rect(x-hm.radius, y-hm.radius, x+hm.radius, y+hm.radius)
		draw.DrawMask(canvas, target, stamp, image.Point{}, mask, image.Point{}, draw.Over)
	}

	if hm.colors != nil {
		negate(canvas)
		hm.remap(canvas)
	}
	return canvas
}

// stamp renders the radial gradient disc composited for every point:
// opaque black out to 10% of the radius, fading to alpha 255*(1-blur) at
// the edge.
func (hm *Heatmap) stamp() *image.RGBA {
	size := hm.radius * 2
	edge := uint8(math.Round(255 - 255*hm.blur))

	r := float64(hm.radius)
	grad := gg.NewRadialGradient(r, r, 0, r, r, r)
	grad.AddColorStop(0, color.RGBA{A: 255})
	grad.AddColorStop(0.1, color.RGBA{A: 255})
	grad.AddColorStop(1, color.RGBA{A: edge})

	dc := gg.NewContext(size, size)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()
	return dc.Image().(*image.RGBA)
}

// negate inverts the RGB channels in place, preserving alpha.
func negate(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Pix[i+0] = 255 - img.Pix[i+0]
			img.Pix[i+1] = 255 - img.Pix[i+1]
			img.Pix[i+2] = 255 - img.Pix[i+2]
			i += 4
		}
	}
}

// remap replaces every pixel with a ramp entry selected by the pixel's
// RGB product: the whiter the pixel, the hotter the ramp color.
func (hm *Heatmap) remap(img *image.RGBA) {
	numColors := len(hm.colors) - 1
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			multiplier := float64(img.Pix[i+0]) * float64(img.Pix[i+1]) * float64(img.Pix[i+2])
			multiplier /= 255 * 255 * 255

			c := hm.colors[int(math.Round(multiplier*float64(numColors)))]
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
			i += 4
		}
	}
}

func blend(c1, c2 color.RGBA, ratio float64) color.RGBA {
	if ratio > 1 {
		ratio = 1
	} else if ratio < 0 {
		ratio = 0
	}
	iRatio := 1 - ratio
	return color.RGBA{
		R: uint8(float64(c1.R)*iRatio + float64(c2.R)*ratio),
		G: uint8(float64(c1.G)*iRatio + float64(c2.G)*ratio),
		B: uint8(float64(c1.B)*iRatio + float64(c2.B)*ratio),
		A: uint8(float64(c1.A)*iRatio + float64(c2.A)*ratio),
	}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
