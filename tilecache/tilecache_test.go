package tilecache

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func opaqueTile() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

func Test_relativePath(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z uint
		want    string
	}{
		{name: "zoom 0", x: 0, y: 0, z: 0, want: "/0/0/0"},
		{name: "low zoom unsharded", x: 3, y: 5, z: 7, want: "/7/3/5"},
		{name: "zoom 8 shards on itself", x: 100, y: 200, z: 8, want: "/8/100/200/100/200"},
		{name: "deep zoom shards on zoom 8 ancestor", x: 1023, y: 512, z: 10, want: "/10/255/128/1023/512"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativePath(tt.x, tt.y, tt.z))
		})
	}
}

func Test_newInvalidDir(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrInvalidCacheDir)
}

func Test_getOrCreateWritesTile(t *testing.T) {
	c := newTestCache(t)

	path, err := c.GetOrCreate("/1/0/0", func() (image.Image, error) {
		return opaqueTile(), nil
	}, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(c.Dir(), "1", "0", "0.png"), path)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	// no temp leftovers next to the published file
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func Test_getOrCreateSingleProducer(t *testing.T) {
	c := newTestCache(t)

	var produced atomic.Int32
	produce := func() (image.Image, error) {
		produced.Add(1)
		time.Sleep(50 * time.Millisecond)
		return opaqueTile(), nil
	}

	const callers = 8
	paths := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path, err := c.GetOrCreate("/5/16/10", produce, false)
			assert.NoError(t, err)
			paths[i] = path
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), produced.Load())
	for _, path := range paths {
		assert.Equal(t, paths[0], path)
	}
}

func Test_getOrCreateEmptyTile(t *testing.T) {
	c := newTestCache(t)
	empty := func() (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
	}

	path, err := c.GetOrCreate("/2/1/1", empty, false)
	require.NoError(t, err)
	// the nominal path is returned but nothing is written
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	path, err = c.GetOrCreate("/2/1/2", empty, true)
	require.NoError(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}

func Test_getOrCreateNilImage(t *testing.T) {
	c := newTestCache(t)
	path, err := c.GetOrCreate("/2/2/2", func() (image.Image, error) {
		return nil, nil
	}, false)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func Test_getOrCreateProducerError(t *testing.T) {
	c := newTestCache(t)

	_, err := c.GetOrCreate("/3/0/0", func() (image.Image, error) {
		return nil, errors.New("boom")
	}, false)
	require.ErrorIs(t, err, ErrProducerFailed)

	// the entry recovers: a later caller produces successfully
	path, err := c.GetOrCreate("/3/0/0", func() (image.Image, error) {
		return opaqueTile(), nil
	}, false)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func Test_getOrCreateProducerPanic(t *testing.T) {
	c := newTestCache(t)
	_, err := c.GetOrCreate("/3/1/1", func() (image.Image, error) {
		panic("render blew up")
	}, false)
	require.ErrorIs(t, err, ErrProducerFailed)
	assert.Contains(t, err.Error(), "render blew up")
}

func Test_remove(t *testing.T) {
	c := newTestCache(t)

	path, err := c.GetOrCreate("/4/0/0", func() (image.Image, error) {
		return opaqueTile(), nil
	}, false)
	require.NoError(t, err)

	require.NoError(t, c.Remove("/4/0/0"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// removing again, or removing an unknown key, is fine
	assert.NoError(t, c.Remove("/4/0/0"))
	assert.NoError(t, c.Remove("/4/9/9"))
}

func Test_removeWaitsForProducer(t *testing.T) {
	c := newTestCache(t)

	var inFlight, maxInFlight atomic.Int32
	produce := func() (image.Image, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		return opaqueTile(), nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.GetOrCreate("/9/0/0", produce, false)
		assert.NoError(t, err)
	}()

	// remove mid-production, then request the same key again right away
	time.Sleep(20 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Remove("/9/0/0"))
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := c.GetOrCreate("/9/0/0", produce, false)
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(),
		"only one producer may be in flight per key")
}

func Test_adoptExistingFile(t *testing.T) {
	dir := t.TempDir()

	c, err := New(dir)
	require.NoError(t, err)
	var produced atomic.Int32
	produce := func() (image.Image, error) {
		produced.Add(1)
		return opaqueTile(), nil
	}
	path1, err := c.GetOrCreate("/6/1/1", produce, false)
	require.NoError(t, err)
	c.Close()

	// a fresh cache over the same directory reuses the file
	c2, err := New(dir)
	require.NoError(t, err)
	defer c2.Close()
	path2, err := c2.GetOrCreate("/6/1/1", produce, false)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, int32(1), produced.Load())
}

func Test_sweepEvictsStaleEntries(t *testing.T) {
	c := newTestCache(t)
	c.mu.Lock()
	c.minSize = 1
	c.maxAge = 10 * time.Millisecond
	c.mu.Unlock()

	_, err := c.GetOrCreate("/7/0/0", func() (image.Image, error) {
		return opaqueTile(), nil
	}, false)
	require.NoError(t, err)

	c.sweep(time.Now().Add(time.Second))

	c.mu.Lock()
	assert.Empty(t, c.tiles)
	assert.Zero(t, c.requests.Len())
	c.mu.Unlock()

	// the file survives eviction and is readopted without reproducing
	path, err := c.GetOrCreate("/7/0/0", func() (image.Image, error) {
		t.Error("producer should not run for an on-disk tile")
		return nil, nil
	}, false)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func Test_sweepBelowMinSize(t *testing.T) {
	c := newTestCache(t)
	c.mu.Lock()
	c.maxAge = time.Nanosecond
	c.mu.Unlock()

	for i := 0; i < 5; i++ {
		_, err := c.GetOrCreate(fmt.Sprintf("/7/1/%d", i), func() (image.Image, error) {
			return opaqueTile(), nil
		}, false)
		require.NoError(t, err)
	}

	c.sweep(time.Now().Add(time.Hour))

	c.mu.Lock()
	assert.Len(t, c.tiles, 5)
	c.mu.Unlock()
}
