package deck

import (
	"context"
	"strings"
)

// CardCategory classifies a card for zone eligibility.
type CardCategory string

const (
	CategoryLegend      CardCategory = "legend"
	CategoryChampion    CardCategory = "champion"
	CategoryBattlefield CardCategory = "battlefield"
	CategoryRune        CardCategory = "rune"
	CategoryUnit        CardCategory = "unit"
	CategorySpell       CardCategory = "spell"
	CategoryGear        CardCategory = "gear"
)

// Card is catalog metadata for a single card. Immutable once fetched;
// the catalog owns it.
type Card struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Category   CardCategory `json:"category"`
	Domains    []string     `json:"domains"`
	Tags       []string     `json:"tags"`
	EnergyCost *int         `json:"energy_cost,omitempty"`
	PowerCost  *int         `json:"power_cost,omitempty"`
	Might      *int         `json:"might,omitempty"`
	Rarity     string       `json:"rarity"`
}

// HasTag reports whether the card carries the exact tag.
func (c Card) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ChampionTag returns the champion-affinity tag of a legend: the first tag
// that is not the literal "legend" marker (case-insensitive). The second
// return is false when no such tag exists.
func (c Card) ChampionTag() (string, bool) {
	for _, t := range c.Tags {
		if !strings.EqualFold(t, "legend") {
			return t, true
		}
	}
	return "", false
}

// SharesDomain reports whether any of the card's domains appears in the
// given set. Any overlap counts; the card's domains do not have to be a
// subset.
func (c Card) SharesDomain(domains []string) bool {
	for _, d := range c.Domains {
		for _, other := range domains {
			if d == other {
				return true
			}
		}
	}
	return false
}

// CardCatalog resolves card ids to catalog metadata. Ids absent from the
// catalog are simply missing from the returned map.
type CardCatalog interface {
	GetCardsByIDs(ctx context.Context, ids []string) (map[string]Card, error)
}
