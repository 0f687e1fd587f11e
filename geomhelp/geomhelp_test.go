package geomhelp

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
)

func Test_shoelace(t *testing.T) {
	square := [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	assert.InDelta(t, 16.0, Shoelace(square), 1e-9)
	assert.Zero(t, Shoelace(nil))
}

func Test_centroid(t *testing.T) {
	square := [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	assert.Equal(t, [2]float64{2, 2}, Centroid(square))

	// the duplicate closing vertex does not skew the average
	closed := append(square, square[0])
	assert.Equal(t, [2]float64{2, 2}, Centroid(closed))
}

func Test_pointInRing(t *testing.T) {
	ring := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.True(t, PointInRing([2]float64{5, 5}, ring))
	assert.True(t, PointInRing([2]float64{0, 0}, ring))
	assert.False(t, PointInRing([2]float64{15, 5}, ring))
	assert.False(t, PointInRing([2]float64{5, -1}, ring))
}

func Test_segmentsIntersect(t *testing.T) {
	assert.True(t, SegmentsIntersect(
		[2]float64{0, 0}, [2]float64{10, 10},
		[2]float64{0, 10}, [2]float64{10, 0}))
	assert.False(t, SegmentsIntersect(
		[2]float64{0, 0}, [2]float64{1, 0},
		[2]float64{0, 1}, [2]float64{1, 1}))
	// touching endpoints count
	assert.True(t, SegmentsIntersect(
		[2]float64{0, 0}, [2]float64{1, 1},
		[2]float64{1, 1}, [2]float64{2, 0}))
}

func Test_intersects(t *testing.T) {
	square := geom.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}
	tests := []struct {
		name string
		g    geom.Geometry
		want bool
	}{
		{name: "interior point", g: geom.Point{5, 5}, want: true},
		{name: "exterior point", g: geom.Point{15, 15}, want: false},
		{name: "crossing linestring", g: geom.LineString{{-5, 5}, {15, 5}}, want: true},
		{name: "disjoint linestring", g: geom.LineString{{20, 20}, {30, 30}}, want: false},
		{name: "overlapping polygon", g: geom.Polygon{{{5, 5}, {15, 5}, {15, 15}, {5, 15}}}, want: true},
		{name: "containing polygon", g: geom.Polygon{{{-5, -5}, {15, -5}, {15, 15}, {-5, 15}}}, want: true},
		{name: "disjoint polygon", g: geom.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 30}}}, want: false},
		{name: "multipoint one inside", g: geom.MultiPoint{{50, 50}, {1, 1}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersects(square, tt.g))
			assert.Equal(t, tt.want, Intersects(tt.g, square))
		})
	}
}

func Test_wktMustEncode(t *testing.T) {
	p := geom.Point{1, 2}
	assert.Equal(t, "POINT (1 2)", WktMustEncode(p, 0))
	assert.Equal(t, "POI...", WktMustEncode(p, 6))
}
