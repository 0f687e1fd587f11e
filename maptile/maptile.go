// Package maptile renders images for slippy map tiles. A Tile maps a
// geographic bounding box (EPSG:3857 or EPSG:4326) onto a pixel raster and
// offers primitives to draw points, pixels and polygons on it.
package maptile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/kartographia/kartographia-map/geomhelp"
	"github.com/kartographia/kartographia-map/proj"
)

var (
	ErrUnsupportedProjection = errors.New("unsupported projection")
	ErrInvalidCoordinates    = errors.New("invalid coordinates")
)

// Tile is a renderable map tile. Immutable in its geographic parameters
// after construction; drawing operations mutate only the raster.
type Tile struct {
	srid       int
	ulx, uly   float64
	resX, resY float64

	wkt   string
	north float64
	south float64
	east  float64
	west  float64
	geom  geom.Geometry

	dc *gg.Context
}

// New creates a tile for the given bounding box. Bounds are in the units of
// the srid (meters for 3857, degrees for 4326); width and height are pixels.
//
//nolint:funlen
func New(minX, minY, maxX, maxY float64, width, height, srid int) (*Tile, error) {
	t := &Tile{srid: srid, resX: 1, resY: 1}

	switch srid {
	case 3857:
		t.north = proj.MercToLat(maxY)
		t.south = proj.MercToLat(minY)
		t.east = proj.MercToLon(maxX)
		t.west = proj.MercToLon(minX)

		if !valid(t.west, t.south, t.east, t.north) {
			return nil, fmt.Errorf("%w: %v %v %v %v", ErrInvalidCoordinates, minX, minY, maxX, maxY)
		}

		t.wkt = boundsWKT(t.west, t.south, t.east, t.north)
		t.ulx = minX
		t.uly = maxY
		t.resX = float64(width) / math.Abs(maxX-minX)
		t.resY = float64(height) / math.Abs(maxY-minY)

	case 4326:
		if !valid(minX, minY, maxX, maxY) {
			return nil, fmt.Errorf("%w: %v %v %v %v", ErrInvalidCoordinates, minX, minY, maxX, maxY)
		}

		t.wkt = boundsWKT(minX, minY, maxX, maxY)
		t.north = maxY
		t.south = minY
		t.east = maxX
		t.west = minX

		// re-express the corners through the pixel transforms, which at
		// this point still have identity parameters
		minX = t.x(minX)
		minY = t.y(minY)
		maxX = t.x(maxX)
		maxY = t.y(maxY)

		t.ulx = minX
		t.uly = maxY
		t.resX = float64(width) / (maxX - minX)
		t.resY = float64(height) / (minY - maxY)

	default:
		return nil, fmt.Errorf("%w: srid %d", ErrUnsupportedProjection, srid)
	}

	t.dc = gg.NewContext(width, height)
	return t, nil
}

func valid(minX, minY, maxX, maxY float64) bool {
	if minX > maxX || minY > maxY {
		return false
	}
	if minX < -180 || maxX < -180 || maxX > 180 || minX > 180 {
		return false
	}
	if minY < -90 || maxY < -90 || maxY > 90 || minY > 90 {
		return false
	}
	return true
}

// boundsWKT serializes the tile boundary, NE first, with at most 8
// fractional digits.
func boundsWKT(west, south, east, north float64) string {
	ne := fmtDeg(east) + " " + fmtDeg(north)
	se := fmtDeg(east) + " " + fmtDeg(south)
	sw := fmtDeg(west) + " " + fmtDeg(south)
	nw := fmtDeg(west) + " " + fmtDeg(north)
	return "POLYGON((" + ne + "," + nw + "," + sw + "," + se + "," + ne + "))"
}

func fmtDeg(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e8)/1e8, 'f', -1, 64)
}

func (t *Tile) SRID() int { return t.srid }

func (t *Tile) Width() int  { return t.dc.Width() }
func (t *Tile) Height() int { return t.dc.Height() }

func (t *Tile) North() float64 { return t.north }
func (t *Tile) South() float64 { return t.south }
func (t *Tile) East() float64  { return t.east }
func (t *Tile) West() float64  { return t.west }

// BoundsWKT returns the tile boundary as Well-Known Text in lat/lon
// coordinates (EPSG:4326).
func (t *Tile) BoundsWKT() string { return t.wkt }

// Geometry returns the tile boundary as a lat/lon geometry (EPSG:4326).
func (t *Tile) Geometry() geom.Geometry {
	if t.geom == nil {
		t.geom = geom.Polygon{{
			{t.east, t.north},
			{t.west, t.north},
			{t.west, t.south},
			{t.east, t.south},
		}}
	}
	return t.geom
}

// Intersects reports whether the tile boundary intersects the geometry
// given as WKT.
func (t *Tile) Intersects(wktStr string) (bool, error) {
	g, err := wkt.DecodeString(wktStr)
	if err != nil {
		return false, fmt.Errorf("parsing wkt: %w", err)
	}
	return geomhelp.Intersects(t.Geometry(), g), nil
}

// Image returns the tile raster.
func (t *Tile) Image() image.Image { return t.dc.Image() }

// EncodePNG writes the tile raster as PNG.
func (t *Tile) EncodePNG(w io.Writer) error { return t.dc.EncodePNG(w) }

// SetBackground fills the entire tile with the given color.
func (t *Tile) SetBackground(r, g, b int) {
	t.dc.SetRGB255(r, g, b)
	t.dc.Clear()
}

// AddPixel colors the single pixel under the given coordinate.
func (t *Tile) AddPixel(lat, lon float64, c color.Color) {
	px, py := t.project(lat, lon)
	t.dc.SetColor(c)
	t.dc.SetPixel(cint(px), cint(py))
}

// AddPoint draws an antialiased filled circle with the given diameter,
// centered on the projected coordinate.
func (t *Tile) AddPoint(lat, lon float64, c color.Color, size float64) {
	px, py := t.project(lat, lon)

	// upper left corner and integer diameter, to keep pixel placement
	// stable across sizes
	r := size / 2
	ix := cint(px - r)
	iy := cint(py - r)
	d := float64(cint(size))

	t.dc.SetColor(c)
	t.dc.DrawEllipse(float64(ix)+d/2, float64(iy)+d/2, d/2, d/2)
	t.dc.Fill()
}

// AddPolygon draws a ring of (lon, lat) vertices. The interior is filled
// first when fillColor is non-nil, then the outline is stroked as an open
// polyline in lineColor.
func (t *Tile) AddPolygon(ring [][2]float64, lineColor, fillColor color.Color) {
	if len(ring) == 0 {
		return
	}

	trace := func() {
		t.dc.NewSubPath()
		for i, pt := range ring {
			px, py := t.project(pt[1], pt[0])
			if i == 0 {
				t.dc.MoveTo(float64(cint(px)), float64(cint(py)))
			} else {
				t.dc.LineTo(float64(cint(px)), float64(cint(py)))
			}
		}
	}

	if fillColor != nil {
		trace()
		t.dc.ClosePath()
		t.dc.SetColor(fillColor)
		t.dc.Fill()
	}
	trace()
	t.dc.SetColor(lineColor)
	t.dc.Stroke()
}

// project converts a lat/lon coordinate to pixel coordinates on this tile.
func (t *Tile) project(lat, lon float64) (px, py float64) {
	if t.srid == 3857 {
		return t.x(proj.LonToMerc(lon)), t.y(proj.LatToMerc(lat))
	}
	return t.x(lon), t.y(lat)
}

// x converts a native x coordinate (meters for 3857, longitude for 4326)
// to a pixel coordinate.
func (t *Tile) x(pt float64) float64 {
	if t.srid == 3857 {
		d := math.Abs(t.ulx - pt)
		if pt < t.ulx {
			d = -d
		}
		return d * t.resX
	}
	return (pt + 180 - t.ulx) * t.resX
}

// y converts a native y coordinate (meters for 3857, latitude for 4326)
// to a pixel coordinate. The 4326 branch folds the latitude axis so north
// maps to smaller values; near-zero results snap to 0 to keep tile edges
// stable.
func (t *Tile) y(pt float64) float64 {
	if t.srid == 3857 {
		d := math.Abs(t.uly - pt)
		if pt > t.uly {
			d = -d
		}
		return d * t.resY
	}

	pt = -pt
	if pt <= 0 {
		pt = 90 + -pt
	} else {
		pt = 90 - pt
	}
	pt = 180 - pt

	y := (pt - t.uly) * t.resY
	if cint(y) == 0 {
		y = 0
	}
	return y
}

// cint rounds half away from zero.
func cint(v float64) int {
	return int(math.Round(v))
}
