package main

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/kartographia/kartographia-map/geomhelp"
	"github.com/kartographia/kartographia-map/heatmap"
	"github.com/kartographia/kartographia-map/mapslicehelp"
	"github.com/kartographia/kartographia-map/mapstyle"
	"github.com/kartographia/kartographia-map/maptile"
	"github.com/kartographia/kartographia-map/proj"
	"github.com/kartographia/kartographia-map/tilecache"
)

const POINTS string = `points`
const CACHEDIR string = `cacheDir`
const ZOOMLEVELS string = `zoomlevels`
const CONFIG string = `config`
const RENDERER string = `renderer`
const CONTOURS string = `contours`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "kartographia-map"
	app.Usage = "Renders slippy map heatmap tiles from a set of coordinates"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     POINTS,
			Aliases:  []string{"p"},
			Usage:    "JSON file with an array of [lat,lon] coordinates",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(POINTS)},
		},
		&cli.StringFlag{
			Name:     CACHEDIR,
			Aliases:  []string{"d"},
			Usage:    "Directory to store the rendered tiles in",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(CACHEDIR)},
		},
		&cli.StringFlag{
			Name:     ZOOMLEVELS,
			Aliases:  []string{"z"},
			Usage:    "Zoom levels to render tiles for. JSON array of integers. E.g.: [4,5,6]",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(ZOOMLEVELS)},
		},
		&cli.StringFlag{
			Name:     CONFIG,
			Aliases:  []string{"c"},
			Usage:    "JSON file with rendering options (tileSize, radius, intensity, blur, colors, ...)",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(CONFIG)},
		},
		&cli.StringFlag{
			Name:     RENDERER,
			Aliases:  []string{"r"},
			Usage:    "Tile renderer, either heatmap or points",
			Value:    "heatmap",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(RENDERER)},
		},
		&cli.StringFlag{
			Name:     CONTOURS,
			Usage:    "Log contour polygons per tile. JSON array of percentiles. E.g.: [80,40,0]",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(CONTOURS)},
		},
	}

	app.Action = func(c *cli.Context) error {
		points, err := loadPoints(c.String(POINTS))
		if err != nil {
			return err
		}
		var zoomLevels []uint
		if err := json.Unmarshal([]byte(c.String(ZOOMLEVELS)), &zoomLevels); err != nil {
			return fmt.Errorf("parsing zoom levels: %w", err)
		}
		var percentiles []float64
		if s := c.String(CONTOURS); s != "" {
			if err := json.Unmarshal([]byte(s), &percentiles); err != nil {
				return fmt.Errorf("parsing contour percentiles: %w", err)
			}
		}
		cfg, err := loadRenderConfig(c.String(CONFIG))
		if err != nil {
			return err
		}
		renderer := c.String(RENDERER)
		if renderer != "heatmap" && renderer != "points" {
			return fmt.Errorf("unknown renderer %q", renderer)
		}

		cache, err := tilecache.New(c.String(CACHEDIR))
		if err != nil {
			return err
		}
		defer cache.Close()

		coverage := make(geom.MultiPoint, len(points))
		for i, pt := range points {
			coverage[i] = [2]float64{pt[1], pt[0]} // lon, lat
		}

		log.Println("=== start rendering ===")

		seen := make(map[uint]struct{}, len(zoomLevels))
		for _, z := range zoomLevels {
			if _, ok := seen[z]; ok {
				continue
			}
			seen[z] = struct{}{}

			tiles, err := proj.IntersectingTiles(coverage, z)
			if err != nil {
				return err
			}
			log.Printf("  zoom %d covers %d tiles", z, len(tiles))

			for _, tile := range tiles {
				if err := renderTile(cache, tile, points, cfg, renderer, percentiles); err != nil {
					return err
				}
			}
		}

		log.Println("=== done rendering ===")
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

//nolint:cyclop
func renderTile(cache *tilecache.Cache, tile *slippy.Tile, points [][2]float64,
	cfg RenderConfig, renderer string, percentiles []float64) error {
	west := proj.LonToMerc(proj.TileToLon(tile.X, tile.Z))
	east := proj.LonToMerc(proj.TileToLon(tile.X+1, tile.Z))
	north := proj.LatToMerc(proj.TileToLat(tile.Y, tile.Z))
	south := proj.LatToMerc(proj.TileToLat(tile.Y+1, tile.Z))

	size := cfg.TileSize

	// points within one stamp radius outside the tile still bleed in
	pixels := make([][2]int, 0, len(points))
	for _, pt := range points {
		px := (proj.LonToMerc(pt[1]) - west) / (east - west) * float64(size)
		py := (north - proj.LatToMerc(pt[0])) / (north - south) * float64(size)
		x, y := int(px), int(py)
		if x < -cfg.Radius || x >= size+cfg.Radius || y < -cfg.Radius || y >= size+cfg.Radius {
			continue
		}
		pixels = append(pixels, [2]int{x, y})
	}

	var hm *heatmap.Heatmap
	produce := func() (image.Image, error) {
		if len(pixels) == 0 {
			return nil, nil
		}
		if renderer == "points" {
			return renderPointsTile(west, south, east, north, size, points, cfg)
		}
		hm = heatmap.New(size, size)
		hm.SetRadius(cfg.Radius)
		hm.SetIntensity(cfg.Intensity)
		hm.SetBlur(cfg.Blur)
		if len(cfg.Colors) > 0 {
			hm.SetHexColors(cfg.Colors...)
		}
		if cfg.MaxOccurrence > 0 {
			hm.SetMaxOccurrence(cfg.MaxOccurrence)
		}
		hm.AddPoints(pixels)
		return hm.Render(), nil
	}

	key := tilecache.RelativePath(tile.X, tile.Y, tile.Z)
	path, err := cache.GetOrCreate(key, produce, cfg.SaveEmptyTiles)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", key, err)
	}
	log.Printf("  rendered %s (%s)", path,
		geomhelp.WktMustEncode(proj.TilePolygon(tile.X, tile.Y, tile.Z), 80))

	if hm != nil && len(percentiles) > 0 {
		for _, contour := range hm.Contours(percentiles...) {
			for _, g := range contour.Geometries() {
				log.Printf("    contour %s", geomhelp.WktMustEncode(g, 100))
			}
		}
	}

	return nil
}

// renderPointsTile draws the raw points as styled dots on a map tile frame.
func renderPointsTile(west, south, east, north float64, size int,
	points [][2]float64, cfg RenderConfig) (image.Image, error) {
	frame, err := maptile.New(west, south, east, north, size, size, 3857)
	if err != nil {
		return nil, err
	}

	// the hottest ramp color doubles as the dot color
	style := mapstyle.New()
	if hottest := mapslicehelp.LastElement(cfg.Colors); hottest != nil {
		style.SetColor(mapstyle.ParseColor(*hottest))
	} else {
		style.SetColor(mapstyle.ParseColor("#ff0000"))
	}

	if cfg.Background != "" {
		r, g, b, _ := mapstyle.ParseColor(cfg.Background).RGBA()
		frame.SetBackground(int(r>>8), int(g>>8), int(b>>8))
	}
	for _, pt := range points {
		frame.AddPoint(pt[0], pt[1], style.Color(), float64(cfg.Radius)/2)
	}
	return frame.Image(), nil
}

func loadPoints(path string) ([][2]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading points: %w", err)
	}
	var points [][2]float64
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parsing points: %w", err)
	}
	return points, nil
}
