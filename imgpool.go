package main

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// imageCache uploads decoded images and kernel buffers to the GPU once and
// reuses them while they keep being drawn. Buffers from the effects registry
// are never mutated after they are published, so the source pointer is a
// stable key.
type imageCache struct {
	entries map[image.Image]*cachedImage
	streams map[string]*streamImage
}

// streamImage is one texture rewritten in place each time its owner
// publishes a new buffer, such as a particle system's canvas.
type streamImage struct {
	img  *ebiten.Image
	src  *image.RGBA
	used bool
}

type cachedImage struct {
	img  *ebiten.Image
	used bool
}

const (
	// maxCachedImages bounds the cache between sweeps.
	maxCachedImages = 256
)

func newImageCache() *imageCache {
	return &imageCache{
		entries: make(map[image.Image]*cachedImage),
		streams: make(map[string]*streamImage),
	}
}

// get returns the GPU copy of src, uploading it on first use.
func (c *imageCache) get(src image.Image) *ebiten.Image {
	if e, ok := c.entries[src]; ok {
		e.used = true
		return e.img
	}
	if len(c.entries) >= maxCachedImages {
		logDebug("imageCache: full, sweeping early")
		c.sweep()
	}
	e := &cachedImage{img: ebiten.NewImageFromImage(src), used: true}
	c.entries[src] = e
	return e.img
}

// stream returns the texture kept for key with src written into it. The
// pixels are uploaded only when src is a different buffer from last time.
func (c *imageCache) stream(key string, src *image.RGBA) *ebiten.Image {
	size := src.Bounds().Size()
	s := c.streams[key]
	if s != nil && s.img.Bounds().Size() != size {
		s.img.Deallocate()
		s = nil
	}
	if s == nil {
		s = &streamImage{img: ebiten.NewImage(size.X, size.Y)}
		c.streams[key] = s
	}
	if s.src != src {
		s.img.WritePixels(src.Pix)
		s.src = src
	}
	s.used = true
	return s.img
}

// sweep disposes images that were not drawn since the previous sweep and
// returns how many it dropped.
func (c *imageCache) sweep() int {
	n := 0
	for k, e := range c.entries {
		if !e.used {
			e.img.Deallocate()
			delete(c.entries, k)
			n++
			continue
		}
		e.used = false
	}
	for k, s := range c.streams {
		if !s.used {
			s.img.Deallocate()
			delete(c.streams, k)
			n++
			continue
		}
		s.used = false
	}
	return n
}

func (c *imageCache) clear() {
	for k, e := range c.entries {
		e.img.Deallocate()
		delete(c.entries, k)
	}
	for k, s := range c.streams {
		s.img.Deallocate()
		delete(c.streams, k)
	}
}
