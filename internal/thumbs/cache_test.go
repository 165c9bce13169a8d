package thumbs

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// countingDecode returns a DecodeFunc that produces a tiny image and
// counts its calls.
func countingDecode(calls *int) DecodeFunc {
	return func(path string, size int) (image.Image, error) {
		*calls++
		return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
	}
}

func TestGetCachesDecodedImage(t *testing.T) {
	c := NewCache(4)
	calls := 0
	c.SetDecodeFunc(countingDecode(&calls))

	first := c.Get("/img/a.png", 160)
	second := c.Get("/img/a.png", 160)

	if calls != 1 {
		t.Errorf("decode called %d times, want 1", calls)
	}
	if first != second {
		t.Error("repeated Get returned a different image instance")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestGetDistinctSizesAreDistinctEntries(t *testing.T) {
	c := NewCache(4)
	calls := 0
	c.SetDecodeFunc(countingDecode(&calls))

	c.Get("/img/a.png", 160)
	c.Get("/img/a.png", 320)

	if calls != 2 {
		t.Errorf("decode called %d times, want 2 (one per size)", calls)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	const capacity = 3
	c := NewCache(capacity)
	calls := 0
	c.SetDecodeFunc(countingDecode(&calls))

	// Fill to capacity: a, b, c (a is oldest).
	for _, p := range []string{"a", "b", "c"} {
		c.Get("/img/"+p+".png", 160)
	}

	// Insert one more; a must be evicted.
	c.Get("/img/d.png", 160)

	if c.Len() != capacity {
		t.Errorf("Len() = %d, want %d", c.Len(), capacity)
	}
	if c.Contains("/img/a.png", 160) {
		t.Error("least-recently-used entry a.png still cached after overflow")
	}

	// b, c, d are retrievable without decoding again.
	before := calls
	c.Get("/img/b.png", 160)
	c.Get("/img/c.png", 160)
	c.Get("/img/d.png", 160)
	if calls != before {
		t.Errorf("surviving entries re-decoded %d times, want 0", calls-before)
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := NewCache(3)
	calls := 0
	c.SetDecodeFunc(countingDecode(&calls))

	for _, p := range []string{"a", "b", "c"} {
		c.Get("/img/"+p+".png", 160)
	}

	// Touch a so that b becomes the oldest.
	c.Get("/img/a.png", 160)
	sizeBefore := c.Len()

	c.Get("/img/d.png", 160)

	if c.Len() != sizeBefore {
		t.Errorf("Len() changed from %d to %d across eviction", sizeBefore, c.Len())
	}
	if !c.Contains("/img/a.png", 160) {
		t.Error("recently touched a.png was evicted ahead of older entries")
	}
	if c.Contains("/img/b.png", 160) {
		t.Error("b.png survived eviction but was the least recently used")
	}
}

func TestDecodeFailureReturnsUncachedPlaceholder(t *testing.T) {
	c := NewCache(4)
	calls := 0
	c.SetDecodeFunc(func(path string, size int) (image.Image, error) {
		calls++
		return nil, errors.New("corrupt file")
	})

	img := c.Get("/img/bad.png", 120)
	if img == nil {
		t.Fatal("Get() returned nil on decode failure")
	}
	bounds := img.Bounds()
	if bounds.Dx() != 120 || bounds.Dy() != 120 {
		t.Errorf("placeholder bounds = %v, want 120x120", bounds)
	}
	if c.Len() != 0 {
		t.Errorf("placeholder was cached: Len() = %d, want 0", c.Len())
	}

	// A second request retries the decode.
	c.Get("/img/bad.png", 120)
	if calls != 2 {
		t.Errorf("decode called %d times, want 2 (failures are retried)", calls)
	}
}

func TestClear(t *testing.T) {
	c := NewCache(8)
	calls := 0
	c.SetDecodeFunc(countingDecode(&calls))

	for i := 0; i < 5; i++ {
		c.Get(fmt.Sprintf("/img/%d.png", i), 160)
	}
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", c.Len())
	}

	// Everything decodes fresh afterwards.
	before := calls
	c.Get("/img/0.png", 160)
	if calls != before+1 {
		t.Errorf("decode after Clear() called %d times, want 1", calls-before)
	}
}

func TestDefaultDecodeFitsWithinBox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")

	// A 100x40 source fitted into 50x50 must come out 50x20.
	src := image.NewNRGBA(image.Rect(0, 0, 100, 40))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	c := NewCache(4)
	img := c.Get(path, 50)
	bounds := img.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 20 {
		t.Errorf("fitted bounds = %dx%d, want 50x20 (aspect preserved)", bounds.Dx(), bounds.Dy())
	}
	if c.Len() != 1 {
		t.Errorf("real decode was not cached: Len() = %d, want 1", c.Len())
	}
}

func BenchmarkCacheHit(b *testing.B) {
	c := NewCache(16)
	c.SetDecodeFunc(func(path string, size int) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
	})
	c.Get("/img/a.png", 160)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("/img/a.png", 160)
	}
}
