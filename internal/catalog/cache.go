package catalog

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/riftdeck/riftdeck-server/internal/deck"
)

// CachedCatalog is a read-through LRU cache in front of another catalog.
// Cards are immutable once imported, so entries never need invalidation.
type CachedCatalog struct {
	inner Catalog
	cache *lru.Cache
}

// NewCachedCatalog wraps a catalog with an LRU cache of the given size.
func NewCachedCatalog(inner Catalog, size int) (*CachedCatalog, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create catalog cache: %w", err)
	}
	return &CachedCatalog{inner: inner, cache: cache}, nil
}

// GetCardsByIDs serves what it can from the cache and fetches only the
// missing ids from the underlying catalog.
func (c *CachedCatalog) GetCardsByIDs(ctx context.Context, ids []string) (map[string]deck.Card, error) {
	out := make(map[string]deck.Card, len(ids))
	var missing []string
	for _, id := range ids {
		if v, ok := c.cache.Get(id); ok {
			out[id] = v.(deck.Card)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.GetCardsByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, card := range fetched {
		c.cache.Add(id, card)
		out[id] = card
	}
	return out, nil
}

// GetCard resolves a single card through the cache.
func (c *CachedCatalog) GetCard(ctx context.Context, id string) (deck.Card, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(deck.Card), nil
	}
	card, err := c.inner.GetCard(ctx, id)
	if err != nil {
		return deck.Card{}, err
	}
	c.cache.Add(id, card)
	return card, nil
}

// Search always hits the underlying catalog; result sets are not cached.
func (c *CachedCatalog) Search(ctx context.Context, filter SearchFilter) ([]deck.Card, error) {
	return c.inner.Search(ctx, filter)
}
