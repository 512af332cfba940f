package sm2

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of precomputed keys a PrecomputeCache
// keeps when no size is given.
const DefaultCacheSize = 64

// PrecomputeCache keeps the most recently used precomputed keys, keyed by
// the compressed public key. Concurrent builds of the same key are shared.
type PrecomputeCache struct {
	keys  *lru.Cache[string, *PrecomputedKey]
	group singleflight.Group
}

// NewPrecomputeCache returns a cache holding up to capacity keys.
func NewPrecomputeCache(capacity int) *PrecomputeCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size
	keys, _ := lru.New[string, *PrecomputedKey](capacity)
	return &PrecomputeCache{keys: keys}
}

// Get returns the precomputed form of pub, building it on a miss.
func (c *PrecomputeCache) Get(pub *PublicKey) (*PrecomputedKey, error) {
	if pub == nil || pub.point == nil {
		return nil, ErrPublicKeyEmpty
	}
	key := cacheKey(pub)
	if pk, ok := c.keys.Get(key); ok {
		return pk, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if pk, ok := c.keys.Get(key); ok {
			return pk, nil
		}
		pk, err := Precompute(pub)
		if err != nil {
			return nil, err
		}
		c.keys.Add(key, pk)
		return pk, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PrecomputedKey), nil
}

// Lookup returns the cached table for pub without building one.
func (c *PrecomputeCache) Lookup(pub *PublicKey) (*PrecomputedKey, bool) {
	if pub == nil || pub.point == nil {
		return nil, false
	}
	return c.keys.Get(cacheKey(pub))
}

// Len returns the number of cached keys.
func (c *PrecomputeCache) Len() int {
	return c.keys.Len()
}

func cacheKey(pub *PublicKey) string {
	return string(pub.Bytes(true))
}
