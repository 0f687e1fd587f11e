// Raster vectorizer after András Jankovics' imagetracer (1.1.2), stripped
// down to binary layers: https://github.com/jankovicsandras/imagetracerjava
package heatmap

import "math"

// segment is one fitted piece of a traced path. Linear segments run from
// (x1,y1) to (x2,y2); quadratic segments additionally carry the spline
// control point (cx,cy).
type segment struct {
	kind           int // 1 linear, 2 quadratic
	x1, y1         float64
	cx, cy         float64
	x2, y2         float64
}

const (
	segmentLinear    = 1
	segmentQuadratic = 2
)

// tracePoint is a pixel on an edge path together with its edge node code.
type tracePoint struct {
	x, y int
	code int
}

// pathPoint is an interpolated midpoint with a direction tag 0..7
// (E, SE, S, SW, W, NW, N, NE) toward the next midpoint.
type pathPoint struct {
	x, y float64
	dir  float64
}

// layering computes an edge node code 0..15 for every cell of every color
// layer. Edge node types, with the current color as light:
//
//	12  ..  #.  .#  ##  ..  #.  .#  ##  ..  #.  .#  ##  ..  #.  .#  ##
//	48  ..  ..  ..  ..  .#  .#  .#  .#  #.  #.  #.  #.  ##  ##  ##  ##
//	     0   1   2   3   4   5   6   7   8   9  10  11  12  13  14  15
func layering(arr [][]int, paletteLen int) [][][]int {
	ah := len(arr)
	aw := len(arr[0])

	layers := make([][][]int, paletteLen)
	for k := range layers {
		layers[k] = make([][]int, ah)
		for j := range layers[k] {
			layers[k][j] = make([]int, aw)
		}
	}

	for j := 1; j < ah-1; j++ {
		for i := 1; i < aw-1; i++ {
			val := arr[j][i]

			n1 := eq(arr[j-1][i-1], val)
			n2 := eq(arr[j-1][i], val)
			n3 := eq(arr[j-1][i+1], val)
			n4 := eq(arr[j][i-1], val)
			n5 := eq(arr[j][i+1], val)
			n6 := eq(arr[j+1][i-1], val)
			n7 := eq(arr[j+1][i], val)
			n8 := eq(arr[j+1][i+1], val)

			// this pixel's type, then looking back on previous pixels
			layers[val][j+1][i+1] = 1 + n5*2 + n8*4 + n7*8
			if n4 == 0 {
				layers[val][j+1][i] = 0 + 2 + n7*4 + n6*8
			}
			if n2 == 0 {
				layers[val][j][i+1] = 0 + n3*2 + n5*4 + 8
			}
			if n1 == 0 {
				layers[val][j][i] = 0 + n2*2 + 4 + n4*8
			}
		}
	}
	return layers
}

func eq(a, b int) int {
	if a == b {
		return 1
	}
	return 0
}

// Lookup tables for pathscan.
var pathscanDirLookup = [16]int{0, 0, 3, 0, 1, 0, 3, 0, 0, 3, 3, 1, 0, 3, 0, 0}

var pathscanHolepathLookup = [16]bool{
	false, false, false, false,
	false, false, false, true,
	false, false, false, true,
	false, true, true, false,
}

// pathscanCombinedLookup[code][dir] = {replacement code, next dir, dx, dy}
var pathscanCombinedLookup = [16][4][4]int{
	{{-1, -1, -1, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}}, // code 0 is invalid
	{{0, 1, 0, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}, {0, 2, -1, 0}},
	{{-1, -1, -1, -1}, {-1, -1, -1, -1}, {0, 1, 0, -1}, {0, 0, 1, 0}},
	{{0, 0, 1, 0}, {-1, -1, -1, -1}, {0, 2, -1, 0}, {-1, -1, -1, -1}},

	{{-1, -1, -1, -1}, {0, 0, 1, 0}, {0, 3, 0, 1}, {-1, -1, -1, -1}},
	{{13, 3, 0, 1}, {13, 2, -1, 0}, {7, 1, 0, -1}, {7, 0, 1, 0}},
	{{-1, -1, -1, -1}, {0, 1, 0, -1}, {-1, -1, -1, -1}, {0, 3, 0, 1}},
	{{0, 3, 0, 1}, {0, 2, -1, 0}, {-1, -1, -1, -1}, {-1, -1, -1, -1}},

	{{0, 3, 0, 1}, {0, 2, -1, 0}, {-1, -1, -1, -1}, {-1, -1, -1, -1}},
	{{-1, -1, -1, -1}, {0, 1, 0, -1}, {-1, -1, -1, -1}, {0, 3, 0, 1}},
	{{11, 1, 0, -1}, {14, 0, 1, 0}, {14, 3, 0, 1}, {11, 2, -1, 0}},
	{{-1, -1, -1, -1}, {0, 0, 1, 0}, {0, 3, 0, 1}, {-1, -1, -1, -1}},

	{{0, 0, 1, 0}, {-1, -1, -1, -1}, {0, 2, -1, 0}, {-1, -1, -1, -1}},
	{{-1, -1, -1, -1}, {-1, -1, -1, -1}, {0, 1, 0, -1}, {0, 0, 1, 0}},
	{{0, 1, 0, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}, {0, 2, -1, 0}},
	{{-1, -1, -1, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}, {-1, -1, -1, -1}}, // code 15 is invalid
}

// pathscan walks the edge node array, discarding node types 0 and 15 and
// creating closed paths from the rest. Hole paths and paths shorter than
// pathomit are dropped. The layer is consumed in the process.
// Walk directions (dir): 0 east, 1 north, 2 west, 3 south.
func pathscan(arr [][]int, pathomit int) [][]tracePoint {
	var paths [][]tracePoint
	h := len(arr)
	w := len(arr[0])

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			if arr[j][i] == 0 || arr[j][i] == 15 {
				continue
			}

			px, py := i, j
			dir := pathscanDirLookup[arr[py][px]]
			holepath := pathscanHolepathLookup[arr[py][px]]

			var thispath []tracePoint
			for {
				thispath = append(thispath, tracePoint{x: px - 1, y: py - 1, code: arr[py][px]})

				// clear this cell, turn if required, walk forward
				lookuprow := pathscanCombinedLookup[arr[py][px]][dir]
				arr[py][px] = lookuprow[0]
				dir = lookuprow[1]
				px += lookuprow[2]
				py += lookuprow[3]

				if px-1 == thispath[0].x && py-1 == thispath[0].y {
					break
				}
			}

			if !holepath && len(thispath) >= pathomit {
				paths = append(paths, thispath)
			}
		}
	}
	return paths
}

// internodes interpolates each path into midpoints between consecutive
// points, tagging every midpoint with its direction toward the next one.
func internodes(paths [][]tracePoint) [][]pathPoint {
	ins := make([][]pathPoint, len(paths))
	for pacnt, path := range paths {
		palen := len(path)
		inp := make([]pathPoint, palen)
		for pcnt := 0; pcnt < palen; pcnt++ {
			pp1 := path[pcnt]
			pp2 := path[(pcnt+1)%palen]
			pp3 := path[(pcnt+2)%palen]

			this := pathPoint{
				x: float64(pp1.x+pp2.x) / 2,
				y: float64(pp1.y+pp2.y) / 2,
			}
			nextX := float64(pp2.x+pp3.x) / 2
			nextY := float64(pp2.y+pp3.y) / 2

			switch {
			case this.x < nextX:
				switch {
				case this.y < nextY:
					this.dir = 1 // SE
				case this.y > nextY:
					this.dir = 7 // NE
				default:
					this.dir = 0 // E
				}
			case this.x > nextX:
				switch {
				case this.y < nextY:
					this.dir = 3 // SW
				case this.y > nextY:
					this.dir = 5 // NW
				default:
					this.dir = 4 // W
				}
			default:
				switch {
				case this.y < nextY:
					this.dir = 2 // S
				case this.y > nextY:
					this.dir = 6 // N
				default:
					this.dir = 8 // center, should not happen
				}
			}
			inp[pcnt] = this
		}
		ins[pacnt] = inp
	}
	return ins
}

// tracepath fits straight and quadratic spline segments on an internode
// path: sequences with at most 2 direction types are located and handed to
// fitseq.
func tracepath(path []pathPoint, ltres, qtres float64) []segment {
	var smp []segment
	pathlength := len(path)

	pcnt := 0
	for pcnt < pathlength {
		segtype1 := path[pcnt].dir
		segtype2 := -1.0
		seqend := pcnt + 1
		for (path[seqend].dir == segtype1 || path[seqend].dir == segtype2 || segtype2 == -1) &&
			seqend < pathlength-1 {
			if path[seqend].dir != segtype1 && segtype2 == -1 {
				segtype2 = path[seqend].dir
			}
			seqend++
		}
		if seqend == pathlength-1 {
			seqend = 0
		}

		smp = append(smp, fitseq(path, ltres, qtres, pcnt, seqend)...)

		if seqend > 0 {
			pcnt = seqend
		} else {
			pcnt = pathlength
		}
	}
	return smp
}

// fitseq fits a straight line on path[seqstart..seqend]; when the error
// exceeds ltres it fits a quadratic spline through the worst point, and
// when that fails too it splits the sequence and recurses.
//
//nolint:cyclop,funlen
func fitseq(path []pathPoint, ltres, qtres float64, seqstart, seqend int) []segment {
	pathlength := len(path)
	if seqend > pathlength || seqend < 0 {
		return nil
	}

	errorpoint := seqstart
	curvepass := true
	var errorval float64

	tl := float64(seqend - seqstart)
	if tl < 0 {
		tl += float64(pathlength)
	}
	vx := (path[seqend].x - path[seqstart].x) / tl
	vy := (path[seqend].y - path[seqstart].y) / tl

	pcnt := (seqstart + 1) % pathlength
	for pcnt != seqend {
		pl := float64(pcnt - seqstart)
		if pl < 0 {
			pl += float64(pathlength)
		}
		px := path[seqstart].x + vx*pl
		py := path[seqstart].y + vy*pl
		dist2 := (path[pcnt].x-px)*(path[pcnt].x-px) + (path[pcnt].y-py)*(path[pcnt].y-py)
		if dist2 > ltres {
			curvepass = false
		}
		if dist2 > errorval {
			errorpoint = pcnt
			errorval = dist2
		}
		pcnt = (pcnt + 1) % pathlength
	}

	if curvepass {
		return []segment{{
			kind: segmentLinear,
			x1:   path[seqstart].x, y1: path[seqstart].y,
			x2: path[seqend].x, y2: path[seqend].y,
		}}
	}

	fitpoint := errorpoint
	curvepass = true
	errorval = 0

	// project through the worst point to get the spline control point
	t := float64(fitpoint-seqstart) / tl
	t1 := (1 - t) * (1 - t)
	t2 := 2 * (1 - t) * t
	t3 := t * t
	cpx := (t1*path[seqstart].x + t3*path[seqend].x - path[fitpoint].x) / -t2
	cpy := (t1*path[seqstart].y + t3*path[seqend].y - path[fitpoint].y) / -t2

	pcnt = seqstart + 1
	for pcnt != seqend {
		t = float64(pcnt-seqstart) / tl
		t1 = (1 - t) * (1 - t)
		t2 = 2 * (1 - t) * t
		t3 = t * t
		px := t1*path[seqstart].x + t2*cpx + t3*path[seqend].x
		py := t1*path[seqstart].y + t2*cpy + t3*path[seqend].y

		dist2 := (path[pcnt].x-px)*(path[pcnt].x-px) + (path[pcnt].y-py)*(path[pcnt].y-py)
		if dist2 > qtres {
			curvepass = false
		}
		if dist2 > errorval {
			errorpoint = pcnt
			errorval = dist2
		}
		pcnt = (pcnt + 1) % pathlength
	}

	if curvepass {
		return []segment{{
			kind: segmentQuadratic,
			x1:   path[seqstart].x, y1: path[seqstart].y,
			cx: cpx, cy: cpy,
			x2: path[seqend].x, y2: path[seqend].y,
		}}
	}

	splitpoint := (fitpoint + errorpoint) / 2
	segs := fitseq(path, ltres, qtres, seqstart, splitpoint)
	return append(segs, fitseq(path, ltres, qtres, splitpoint, seqend)...)
}

// flattenQuad subdivides a quadratic spline until the control point is
// within flatness of the chord, returning the polyline including both
// endpoints.
func flattenQuad(p0, c, p2 [2]float64, flatness float64) [][2]float64 {
	pts := [][2]float64{p0}

	var rec func(p0, c, p2 [2]float64, depth int)
	rec = func(p0, c, p2 [2]float64, depth int) {
		if depth >= 10 || ptSegDist(c, p0, p2) <= flatness {
			pts = append(pts, p2)
			return
		}
		l := mid(p0, c)
		r := mid(c, p2)
		m := mid(l, r)
		rec(p0, l, m, depth+1)
		rec(m, r, p2, depth+1)
	}
	rec(p0, c, p2, 0)
	return pts
}

func mid(a, b [2]float64) [2]float64 {
	return [2]float64{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// ptSegDist returns the distance from pt to the segment a-b.
func ptSegDist(pt, a, b [2]float64) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	px := pt[0] - a[0]
	py := pt[1] - a[1]

	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return math.Hypot(px, py)
	}
	t := (px*dx + py*dy) / segLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-t*dx, py-t*dy)
}
