package thumbs

import (
	"container/list"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"

	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metrics"
)

// DefaultCapacity is the default maximum number of cached thumbnails.
const DefaultCapacity = 256

// placeholderColor fills the stand-in tile for images that fail to
// decode.
var placeholderColor = color.NRGBA{R: 60, G: 60, B: 60, A: 255}

// DecodeFunc produces a decoded thumbnail fitted within a size×size
// box. Swappable so tests can count decode calls.
type DecodeFunc func(path string, size int) (image.Image, error)

// cacheKey identifies one rendered thumbnail. The same file rendered at
// two sizes occupies two independent entries.
type cacheKey struct {
	path string
	size int
}

type cacheEntry struct {
	key cacheKey
	img image.Image
}

// Cache is a bounded least-recently-used store of decoded thumbnails.
//
// It is not safe for concurrent use: like the grid it feeds, it is
// owned by the run loop and must only be touched from there.
type Cache struct {
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List // front = most recently used
	decode   DecodeFunc
}

// NewCache returns a cache holding at most capacity thumbnails.
// capacity <= 0 selects DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		order:    list.New(),
		decode:   decodeThumbnail,
	}
}

// SetDecodeFunc replaces the decode function. Tests use this to observe
// decode counts; passing nil restores the default.
func (c *Cache) SetDecodeFunc(fn DecodeFunc) {
	if fn == nil {
		fn = decodeThumbnail
	}
	c.decode = fn
}

// Get returns the thumbnail for (path, size), decoding and caching it
// on first request. A hit refreshes the entry's recency. Decode
// failures yield an uncached solid placeholder of the requested size;
// Get never fails.
func (c *Cache) Get(path string, size int) image.Image {
	key := cacheKey{path: path, size: size}

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		metrics.ThumbCacheHits.Inc()
		return el.Value.(*cacheEntry).img
	}

	metrics.ThumbCacheMisses.Inc()
	start := time.Now()
	img, err := c.decode(path, size)
	metrics.ThumbDecodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbDecodeFailures.Inc()
		logging.Debug("Thumbnail decode failed for %s: %v", path, err)
		return imaging.New(size, size, placeholderColor)
	}

	el := c.order.PushFront(&cacheEntry{key: key, img: img})
	c.entries[key] = el
	metrics.ThumbCacheEntries.Set(float64(len(c.entries)))

	for len(c.entries) > c.capacity {
		c.evictOldest()
	}

	return img
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Contains reports whether (path, size) is cached, without touching
// recency. Used by tests and the debug endpoint.
func (c *Cache) Contains(path string, size int) bool {
	_, ok := c.entries[cacheKey{path: path, size: size}]
	return ok
}

// Clear drops every entry. Called when the thumbnail size changes
// (all keys are invalidated) or the active folder changes.
func (c *Cache) Clear() {
	c.entries = make(map[cacheKey]*list.Element)
	c.order.Init()
	metrics.ThumbCacheEntries.Set(0)
}

func (c *Cache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.entries, entry.key)
	metrics.ThumbCacheEvictions.Inc()
	metrics.ThumbCacheEntries.Set(float64(len(c.entries)))
}

// decodeThumbnail opens the image and fits it within a size×size box,
// preserving aspect ratio, using Lanczos resampling.
func decodeThumbnail(path string, size int) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	return imaging.Fit(img, size, size, imaging.Lanczos), nil
}
