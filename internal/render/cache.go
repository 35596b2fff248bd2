package render

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachingRenderer memoizes rasters by content digest and size. Dedupe and
// classification both rasterize the same icons; the second pass is free.
type CachingRenderer struct {
	next  Renderer
	store *cache.Cache
}

// NewCachingRenderer wraps next with an in-memory cache whose entries expire
// after ttl.
func NewCachingRenderer(next Renderer, ttl time.Duration) *CachingRenderer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingRenderer{next: next, store: cache.New(ttl, 2*ttl)}
}

func (c *CachingRenderer) Rasterize(content []byte, size int) (*image.NRGBA, error) {
	sum := sha256.Sum256(content)
	key := hex.EncodeToString(sum[:]) + "@" + strconv.Itoa(size)
	if cached, ok := c.store.Get(key); ok {
		return cached.(*image.NRGBA), nil
	}
	img, err := c.next.Rasterize(content, size)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, img, cache.DefaultExpiration)
	return img, nil
}

// Len reports the number of cached rasters.
func (c *CachingRenderer) Len() int { return c.store.ItemCount() }
