// Package proj converts between geographic coordinates (EPSG:4326),
// spherical web mercator meters (EPSG:3857) and slippy map tile indices.
// See http://www.maptiler.org/google-maps-coordinates-tile-bounds-projection/
package proj

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"

	"github.com/kartographia/kartographia-map/geomhelp"
	"github.com/kartographia/kartographia-map/mathhelp"
)

const (
	// OriginShift is half the circumference of the spherical earth model,
	// i.e. the mercator coordinate of the antimeridian (20037508.34...).
	OriginShift = 2 * math.Pi * 6378137 / 2

	// MaxLat is the northernmost latitude representable in the square
	// web mercator tile grid.
	MaxLat = 85.05112878
)

// MercToLat converts a y coordinate in EPSG:3857 to a latitude in EPSG:4326.
func MercToLat(y float64) float64 {
	lat := (y / OriginShift) * 180
	return 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
}

// MercToLon converts an x coordinate in EPSG:3857 to a longitude in EPSG:4326.
func MercToLon(x float64) float64 {
	return (x / OriginShift) * 180
}

// LonToMerc converts a longitude in EPSG:4326 to an x coordinate in EPSG:3857.
func LonToMerc(lon float64) float64 {
	return lon * OriginShift / 180
}

// LatToMerc converts a latitude in EPSG:4326 to a y coordinate in EPSG:3857.
func LatToMerc(lat float64) float64 {
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	return y * OriginShift / 180
}

// TileToLon returns the longitude of the western edge of tile column x at zoom z.
func TileToLon(x, z uint) float64 {
	return float64(x)/float64(mathhelp.Pow2(z))*360 - 180
}

// TileToLat returns the latitude of the northern edge of tile row y at zoom z.
func TileToLat(y, z uint) float64 {
	n := float64(mathhelp.Pow2(z))
	return math.Atan(math.Sinh(math.Pi-2*math.Pi*float64(y)/n)) * 180 / math.Pi
}

// LatLonToTile returns the tile containing the given coordinate at zoom z.
// Coordinates are clipped to the valid tile grid range (+/-85.05112878,
// +/-180) first, so the result is always a tile within the grid.
func LatLonToTile(lat, lon float64, z uint) (x, y uint) {
	lat = mathhelp.Clip(lat, -MaxLat, MaxLat)
	lon = mathhelp.Clip(lon, -180, 180)

	n := float64(mathhelp.Pow2(z))
	latRad := lat * math.Pi / 180
	fx := math.Floor((lon + 180) / 360 * n)
	fy := math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)

	// the east and south edges fall into the last row/column
	fx = mathhelp.Clip(fx, 0, n-1)
	fy = mathhelp.Clip(fy, 0, n-1)
	return uint(fx), uint(fy)
}

// TileBounds returns the lat/lon extent of a tile.
func TileBounds(x, y, z uint) *geom.Extent {
	return &geom.Extent{
		TileToLon(x, z),     // west
		TileToLat(y+1, z),   // south
		TileToLon(x+1, z),   // east
		TileToLat(y, z),     // north
	}
}

// TilePolygon returns the lat/lon boundary of a tile as a closed ring.
func TilePolygon(x, y, z uint) geom.Polygon {
	e := TileBounds(x, y, z)
	return geom.Polygon{{
		{e.MaxX(), e.MaxY()},
		{e.MinX(), e.MaxY()},
		{e.MinX(), e.MinY()},
		{e.MaxX(), e.MinY()},
		{e.MaxX(), e.MaxY()},
	}}
}

// IntersectingTiles returns the tiles at zoom z whose boundary intersects
// the given lat/lon geometry. The envelope of the geometry is used to find
// the candidate range, then each candidate tile is tested for an actual
// intersection.
func IntersectingTiles(g geom.Geometry, z uint) ([]*slippy.Tile, error) {
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return nil, err
	}

	ulx, uly := LatLonToTile(ext.MaxY(), ext.MinX(), z)
	lrx, lry := LatLonToTile(ext.MinY(), ext.MaxX(), z)

	var tiles []*slippy.Tile
	for x := ulx; x <= lrx; x++ {
		for y := uly; y <= lry; y++ {
			if geomhelp.Intersects(TilePolygon(x, y, z), g) {
				tiles = append(tiles, slippy.NewTile(z, x, y))
			}
		}
	}
	return tiles, nil
}
