package heatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareArr builds an indexed array with a -1 border and a block of 1s at
// the given interior rectangle.
func squareArr(w, h, x0, y0, x1, y1 int) [][]int {
	arr := make([][]int, h+2)
	for j := range arr {
		arr[j] = make([]int, w+2)
		arr[j][0] = -1
		arr[j][w+1] = -1
	}
	for i := 0; i < w+2; i++ {
		arr[0][i] = -1
		arr[h+1][i] = -1
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			arr[y+1][x+1] = 1
		}
	}
	return arr
}

func Test_layering(t *testing.T) {
	arr := squareArr(6, 6, 2, 2, 3, 3)
	layers := layering(arr, 2)
	require.Len(t, layers, 2)

	// the north west corner of the block gets edge node code 1
	// (only the pixel itself is lit in its 2x2 neighborhood)
	assert.Equal(t, 1, layers[1][3][3])
	// interior-less block: the south east corner code is 8 shifted one cell
	assert.Equal(t, 8, layers[1][5][5])
	// far away cells carry no edge nodes
	assert.Equal(t, 0, layers[1][1][1])
}

func Test_pathscanTracesClosedPath(t *testing.T) {
	arr := squareArr(8, 8, 2, 2, 5, 5)
	layers := layering(arr, 2)

	paths := pathscan(layers[1], 8)
	require.Len(t, paths, 1)

	// a 4x4 block has 4 corner nodes and 12 edge nodes on its boundary
	assert.GreaterOrEqual(t, len(paths[0]), 8)
	for _, pt := range paths[0] {
		assert.NotEqual(t, 0, pt.code)
		assert.NotEqual(t, 15, pt.code)
	}
}

func Test_pathscanOmitsShortPaths(t *testing.T) {
	arr := squareArr(6, 6, 2, 2, 2, 2) // single pixel
	layers := layering(arr, 2)
	assert.Empty(t, pathscan(layers[1], 8))
}

func Test_internodesDirections(t *testing.T) {
	// a unit square walked clockwise
	path := []tracePoint{{x: 0, y: 0}, {x: 1, y: 0}, {x: 1, y: 1}, {x: 0, y: 1}}
	ins := internodes([][]tracePoint{path})
	require.Len(t, ins, 1)
	require.Len(t, ins[0], 4)

	assert.Equal(t, [2]float64{0.5, 0}, [2]float64{ins[0][0].x, ins[0][0].y})
	assert.Equal(t, 1.0, ins[0][0].dir) // south east
	assert.Equal(t, 3.0, ins[0][1].dir) // south west
	assert.Equal(t, 5.0, ins[0][2].dir) // north west
	assert.Equal(t, 7.0, ins[0][3].dir) // north east
}

func Test_fitseqStraightLine(t *testing.T) {
	// collinear points fit a single linear segment
	path := []pathPoint{
		{x: 0, y: 0, dir: 0},
		{x: 1, y: 0, dir: 0},
		{x: 2, y: 0, dir: 0},
		{x: 3, y: 0, dir: 0},
	}
	segs := fitseq(path, 2, 2, 0, 3)
	require.Len(t, segs, 1)
	assert.Equal(t, segmentLinear, segs[0].kind)
	assert.Equal(t, 0.0, segs[0].x1)
	assert.Equal(t, 3.0, segs[0].x2)
}

func Test_fitseqQuadratic(t *testing.T) {
	// a parabola-ish arc exceeds the linear threshold but fits a spline
	path := []pathPoint{
		{x: 0, y: 0},
		{x: 2, y: 3},
		{x: 4, y: 4},
		{x: 6, y: 3},
		{x: 8, y: 0},
	}
	segs := fitseq(path, 2, 100, 0, 4)
	require.Len(t, segs, 1)
	assert.Equal(t, segmentQuadratic, segs[0].kind)
	assert.Equal(t, 0.0, segs[0].x1)
	assert.Equal(t, 8.0, segs[0].x2)
	// the control point bulges past the curve
	assert.Greater(t, segs[0].cy, 4.0)
}

func Test_flattenQuad(t *testing.T) {
	pts := flattenQuad([2]float64{0, 0}, [2]float64{2, 4}, [2]float64{4, 0}, 0.5)
	require.GreaterOrEqual(t, len(pts), 3)
	assert.Equal(t, [2]float64{0, 0}, pts[0])
	assert.Equal(t, [2]float64{4, 0}, pts[len(pts)-1])

	// a flat enough spline stays a single chord
	pts = flattenQuad([2]float64{0, 0}, [2]float64{2, 0.1}, [2]float64{4, 0}, 0.5)
	assert.Equal(t, [][2]float64{{0, 0}, {4, 0}}, pts)
}

func Test_ptSegDist(t *testing.T) {
	assert.InDelta(t, 1.0, ptSegDist([2]float64{1, 1}, [2]float64{0, 0}, [2]float64{2, 0}), 1e-9)
	assert.InDelta(t, 5.0, ptSegDist([2]float64{3, 4}, [2]float64{0, 0}, [2]float64{0, 0}), 1e-9)
}
