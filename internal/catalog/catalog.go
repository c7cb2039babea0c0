// Package catalog provides read-only access to card metadata.
package catalog

import (
	"context"

	"github.com/riftdeck/riftdeck-server/internal/deck"
)

// Catalog is the full read surface over card metadata. The deck package
// only depends on the GetCardsByIDs subset; Search and GetCard serve the
// HTTP card-browse endpoints.
type Catalog interface {
	deck.CardCatalog
	GetCard(ctx context.Context, id string) (deck.Card, error)
	Search(ctx context.Context, filter SearchFilter) ([]deck.Card, error)
}

// SearchFilter narrows a catalog search. Zero values are ignored.
type SearchFilter struct {
	Name     string
	Category deck.CardCategory
	Limit    int
}
