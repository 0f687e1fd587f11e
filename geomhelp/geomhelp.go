package geomhelp

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

// https://en.wikipedia.org/wiki/Shoelace_formula
func Shoelace(pts [][2]float64) float64 {
	sum := 0.
	if len(pts) == 0 {
		return 0.
	}

	p0 := pts[len(pts)-1]
	for _, p1 := range pts {
		sum += p0[1]*p1[0] - p0[0]*p1[1]
		p0 = p1
	}
	return math.Abs(sum / 2)
}

// Centroid returns the vertex-average centroid of a ring. A closed ring
// (first point equal to last) is averaged without the duplicate vertex.
func Centroid(pts [][2]float64) [2]float64 {
	if len(pts) == 0 {
		return [2]float64{}
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(pts))
	return [2]float64{sx / n, sy / n}
}

// from paulmach/orb
// Original implementation: http://rosettacode.org/wiki/Ray-casting_algorithm#Go
//
//nolint:cyclop,nestif
func RayIntersect(pt, start, end [2]float64) (intersects, on bool) {
	if start[0] > end[0] {
		start, end = end, start
	}

	if pt[0] == start[0] {
		if pt[1] == start[1] {
			// pt == start
			return false, true
		} else if start[0] == end[0] {
			// vertical segment (start -> end)
			// return true if within the line, check to see if start or end is greater.
			if start[1] > end[1] && start[1] >= pt[1] && pt[1] >= end[1] {
				return false, true
			}

			if end[1] > start[1] && end[1] >= pt[1] && pt[1] >= start[1] {
				return false, true
			}
		}

		// Move the y coordinate to deal with degenerate case
		pt[0] = math.Nextafter(pt[0], math.Inf(1))
	} else if pt[0] == end[0] {
		if pt[1] == end[1] {
			// matching the end point
			return false, true
		}

		pt[0] = math.Nextafter(pt[0], math.Inf(1))
	}

	if pt[0] < start[0] || pt[0] > end[0] {
		return false, false
	}

	if start[1] > end[1] {
		if pt[1] > start[1] {
			return false, false
		} else if pt[1] < end[1] {
			return true, false
		}
	} else {
		if pt[1] > end[1] {
			return false, false
		} else if pt[1] < start[1] {
			return true, false
		}
	}

	rs := (pt[1] - start[1]) / (pt[0] - start[0])
	ds := (end[1] - start[1]) / (end[0] - start[0])

	if rs == ds {
		return false, true
	}

	return rs <= ds, false
}

// PointInRing reports whether pt lies inside (or on the boundary of) the
// given ring, using ray casting.
func PointInRing(pt [2]float64, ring [][2]float64) bool {
	if len(ring) < 3 {
		return false
	}
	crossings := 0
	p0 := ring[len(ring)-1]
	for _, p1 := range ring {
		intersects, on := RayIntersect(pt, p0, p1)
		if on {
			return true
		}
		if intersects {
			crossings++
		}
		p0 = p1
	}
	return crossings%2 == 1
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 intersect,
// using the orientation test.
func SegmentsIntersect(a1, a2, b1, b2 [2]float64) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}

func cross(o, a, b [2]float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(p, q, r [2]float64) bool {
	return math.Min(p[0], q[0]) <= r[0] && r[0] <= math.Max(p[0], q[0]) &&
		math.Min(p[1], q[1]) <= r[1] && r[1] <= math.Max(p[1], q[1])
}

// Intersects reports whether two geometries intersect. Points, linestrings,
// polygons and their multi variants are supported. The test covers vertex
// containment both ways plus edge crossings, which is sufficient for the
// rectangle-vs-geometry queries used by the tile grid.
func Intersects(a, b geom.Geometry) bool {
	for _, ring := range Rings(a) {
		for _, pt := range Points(b) {
			if PointInRing(pt, ring) {
				return true
			}
		}
	}
	for _, ring := range Rings(b) {
		for _, pt := range Points(a) {
			if PointInRing(pt, ring) {
				return true
			}
		}
	}

	segsA := segments(a)
	segsB := segments(b)
	for _, sa := range segsA {
		for _, sb := range segsB {
			if SegmentsIntersect(sa[0], sa[1], sb[0], sb[1]) {
				return true
			}
		}
	}

	// single points with no segments at all
	if len(segsA) == 0 && len(segsB) == 0 {
		for _, pa := range Points(a) {
			for _, pb := range Points(b) {
				if pa == pb {
					return true
				}
			}
		}
	}
	return false
}

// Points returns all vertices of a geometry.
//
//nolint:cyclop
func Points(g geom.Geometry) [][2]float64 {
	switch gg := g.(type) {
	case geom.Point:
		return [][2]float64{gg.XY()}
	case *geom.Point:
		return [][2]float64{gg.XY()}
	case geom.MultiPoint:
		return gg.Points()
	case geom.LineString:
		return gg.Vertices()
	case geom.MultiLineString:
		var pts [][2]float64
		for _, ls := range gg.LineStrings() {
			pts = append(pts, ls...)
		}
		return pts
	case geom.Polygon:
		var pts [][2]float64
		for _, ring := range gg.LinearRings() {
			pts = append(pts, ring...)
		}
		return pts
	case *geom.Polygon:
		return Points(*gg)
	case geom.MultiPolygon:
		var pts [][2]float64
		for _, p := range gg.Polygons() {
			pts = append(pts, Points(geom.Polygon(p))...)
		}
		return pts
	}
	return nil
}

// Rings returns the exterior rings of any polygonal parts of a geometry.
func Rings(g geom.Geometry) [][][2]float64 {
	switch gg := g.(type) {
	case geom.Polygon:
		if len(gg) == 0 {
			return nil
		}
		return [][][2]float64{gg[0]}
	case *geom.Polygon:
		return Rings(*gg)
	case geom.MultiPolygon:
		var rings [][][2]float64
		for _, p := range gg.Polygons() {
			rings = append(rings, Rings(geom.Polygon(p))...)
		}
		return rings
	}
	return nil
}

func segments(g geom.Geometry) [][2][2]float64 {
	var segs [][2][2]float64
	appendPts := func(pts [][2]float64, closed bool) {
		if len(pts) < 2 {
			return
		}
		for i := 0; i < len(pts)-1; i++ {
			segs = append(segs, [2][2]float64{pts[i], pts[i+1]})
		}
		if closed && pts[0] != pts[len(pts)-1] {
			segs = append(segs, [2][2]float64{pts[len(pts)-1], pts[0]})
		}
	}
	switch gg := g.(type) {
	case geom.LineString:
		appendPts(gg, false)
	case geom.MultiLineString:
		for _, ls := range gg.LineStrings() {
			appendPts(ls, false)
		}
	case geom.Polygon:
		for _, ring := range gg.LinearRings() {
			appendPts(ring, true)
		}
	case *geom.Polygon:
		return segments(*gg)
	case geom.MultiPolygon:
		for _, p := range gg.Polygons() {
			segs = append(segs, segments(geom.Polygon(p))...)
		}
	}
	return segs
}

func FloatPolygonToGeomPolygon(floater [][][2]float64) geom.Polygon {
	return floater
}

func FloatPolygonsToGeomPolygons(floaters [][][][2]float64) []geom.Polygon {
	geoms := make([]geom.Polygon, len(floaters))
	for i := range floaters {
		geoms[i] = FloatPolygonToGeomPolygon(floaters[i])
	}
	return geoms
}

func WktMustEncode(g geom.Geometry, maxLen uint) string {
	if maxLen == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), maxLen, "...")
}
