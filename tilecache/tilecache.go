// Package tilecache is a disk backed cache for rendered map tiles. Each
// tile is produced at most once: concurrent requests for the same key block
// until the single producer publishes the file, and files are published
// atomically so readers never observe partial writes.
package tilecache

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/umpc/go-sortedmap"

	"github.com/kartographia/kartographia-map/mathhelp"
)

var (
	ErrInvalidCacheDir = errors.New("invalid cache directory")
	ErrProducerFailed  = errors.New("tile producer failed")
)

const (
	// sweepMaxAge is how long an index entry survives without a request.
	sweepMaxAge = 2 * time.Minute
	// sweepMinSize is the index size below which no sweeping happens.
	sweepMinSize = 1000
)

// Producer renders the tile image for a cache key. Returning a nil image
// marks the tile as empty.
type Producer func() (image.Image, error)

// entry tracks the cache state of one tile key: absent (no path, not
// producing), producing, or ready (path set). A removed entry is dead;
// holders of a stale pointer must go back to the index for a fresh one.
type entry struct {
	mu        sync.Mutex
	cond      *sync.Cond
	producing bool
	removed   bool
	path      string
}

func newEntry() *entry {
	e := &entry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Cache is a concurrency safe disk backed tile cache. A background sweeper
// evicts index entries that have not been requested recently; the files on
// disk are left in place and readopted on the next request.
type Cache struct {
	dir string

	mu       sync.Mutex
	tiles    map[string]*entry
	requests *sortedmap.SortedMap // key -> last request time, ordered by time

	maxAge  time.Duration
	minSize int

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, ErrInvalidCacheDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCacheDir, err)
	}

	c := &Cache{
		dir:   dir,
		tiles: make(map[string]*entry),
		requests: sortedmap.New(sweepMinSize, func(x, y interface{}) bool {
			return x.(time.Time).Before(y.(time.Time))
		}),
		maxAge:  sweepMaxAge,
		minSize: sweepMinSize,
		done:    make(chan struct{}),
	}
	go c.sweeper()
	return c, nil
}

// Close stops the background sweeper. The cached files remain on disk.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

// RelativePath returns the cache key for a slippy map tile. Zoom levels 8
// and up are sharded under the coordinates of the zoom 8 ancestor tile to
// keep directory sizes bounded.
func RelativePath(x, y, z uint) string {
	p := fmt.Sprintf("/%d/", z)
	if z >= 8 {
		div := mathhelp.Pow2(z - 8)
		p += fmt.Sprintf("%d/%d/", x/div, y/div)
	}
	return p + fmt.Sprintf("%d/%d", x, y)
}

// GetOrCreate returns the path of the cached tile for key, producing it
// first if needed. At most one caller runs the producer; the rest block
// until the file is published. When the produced image is fully
// transparent, a zero byte file is written if saveEmpty is set, otherwise
// the nominal path is returned without creating a file.
func (c *Cache) GetOrCreate(key string, produce Producer, saveEmpty bool) (string, error) {
	e := c.checkOut(key)

	e.mu.Lock()
	for {
		if e.removed {
			// the entry died under us, start over with a fresh one
			e.mu.Unlock()
			e = c.checkOut(key)
			e.mu.Lock()
			continue
		}
		if e.path != "" {
			path := e.path
			e.mu.Unlock()
			return path, nil
		}
		if !e.producing {
			e.producing = true
			break
		}
		e.cond.Wait()
	}
	e.mu.Unlock()

	path, err := c.produce(key, produce, saveEmpty)

	e.mu.Lock()
	e.producing = false
	if err == nil {
		e.path = path
	}
	// on error the entry reverts to absent so a waiter can retry
	e.cond.Broadcast()
	e.mu.Unlock()

	if err != nil {
		return "", err
	}
	return path, nil
}

// checkOut records the request time and returns the index entry for key,
// adopting a file from a previous run when one exists on disk.
func (c *Cache) checkOut(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests.Replace(key, time.Now())

	e, ok := c.tiles[key]
	if !ok {
		e = newEntry()
		if fi, err := os.Stat(c.fullPath(key)); err == nil && !fi.IsDir() {
			e.path = c.fullPath(key)
		}
		c.tiles[key] = e
	}
	return e
}

// produce runs the producer and publishes the result. A panicking producer
// is reported as ErrProducerFailed rather than taking the process down.
func (c *Cache) produce(key string, produce Producer, saveEmpty bool) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = fmt.Errorf("%w: panic: %v", ErrProducerFailed, r)
		}
	}()

	img, err := produce()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProducerFailed, err)
	}

	final := c.fullPath(key)
	if img == nil || fullyTransparent(img) {
		if !saveEmpty {
			return final, nil
		}
		return final, c.publish(final, nil)
	}
	return final, c.publish(final, img)
}

// publish writes the tile to a sibling temp directory and moves it into
// place through renames, so the final path only ever holds a complete file.
// A nil image publishes a zero byte file.
func (c *Cache) publish(final string, img image.Image) error {
	dir := filepath.Dir(final)
	name := filepath.Base(final)

	// a stale file from a previous run must not survive the swap
	if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale tile: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating tile directory: %w", err)
	}

	tmpDir := dir + "_temp"
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}

	tmp := filepath.Join(tmpDir, name)
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp tile: %w", err)
	}
	if img != nil {
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encoding tile: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing tile: %w", err)
	}

	marker := filepath.Join(dir, name+".tmp")
	if err := os.Rename(tmp, marker); err != nil {
		return fmt.Errorf("staging tile: %w", err)
	}
	if err := os.Rename(marker, final); err != nil {
		return fmt.Errorf("publishing tile: %w", err)
	}
	return nil
}

// Remove evicts a tile from the index and deletes its file. When the tile
// is being produced, Remove waits for the producer to finish before
// evicting, so the entry never leaves the index with a producer in flight.
// Removing an absent tile is not an error.
func (c *Cache) Remove(key string) error {
	for {
		c.mu.Lock()
		e, ok := c.tiles[key]
		if !ok {
			c.requests.Delete(key)
			c.mu.Unlock()
			if err := os.Remove(c.fullPath(key)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing tile: %w", err)
			}
			return nil
		}

		e.mu.Lock()
		if e.producing {
			// wait out the producer without blocking the index, then
			// re-check: the entry may have changed hands meanwhile
			c.mu.Unlock()
			for e.producing {
				e.cond.Wait()
			}
			e.mu.Unlock()
			continue
		}

		delete(c.tiles, key)
		c.requests.Delete(key)
		c.mu.Unlock()

		path := c.fullPath(key)
		if e.path != "" {
			path = e.path
		}
		e.path = ""
		e.removed = true
		e.cond.Broadcast()
		e.mu.Unlock()

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing tile: %w", err)
		}
		return nil
	}
}

func (c *Cache) fullPath(key string) string {
	return filepath.Join(c.dir, key+".png")
}

func (c *Cache) sweeper() {
	ticker := time.NewTicker(c.maxAge)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

// sweep evicts index entries that have not been requested within maxAge.
// Nothing happens until the index reaches minSize, and tiles still being
// produced are skipped. Only the index shrinks; files stay on disk.
func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requests.Len() < c.minSize {
		return
	}

	evicted := 0
	for _, k := range c.requests.Keys() {
		key := k.(string)
		requested, ok := c.requests.Get(key)
		if !ok {
			continue
		}
		// keys are ordered by request time, oldest first
		if now.Sub(requested.(time.Time)) <= c.maxAge {
			break
		}
		if e, ok := c.tiles[key]; ok && producing(e) {
			continue
		}
		c.requests.Delete(key)
		delete(c.tiles, key)
		evicted++
	}
	if evicted > 0 {
		log.Printf("evicted %d stale entries from the tile index", evicted)
	}
}

func producing(e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.producing
}

// fullyTransparent reports whether every pixel of the image has zero alpha.
func fullyTransparent(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				return false
			}
		}
	}
	return true
}
