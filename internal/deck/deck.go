package deck

import (
	"time"
)

// Entry is a single card placement in a deck zone. A deck holds at most one
// entry per (card id, zone) pair; repeated adds increment the quantity.
type Entry struct {
	ID       string `json:"id"`
	CardID   string `json:"card_id"`
	Zone     Zone   `json:"zone"`
	Quantity int    `json:"quantity"`
}

// Deck is the aggregate a user edits: card placements plus the
// legend/champion references. LegendCardID and ChampionCardID are empty
// when unset.
type Deck struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	LegendCardID   string    `json:"legend_card_id,omitempty"`
	ChampionCardID string    `json:"champion_card_id,omitempty"`
	ShareToken     string    `json:"share_token,omitempty"`
	Entries        []Entry   `json:"entries"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Entry returns the entry for (cardID, zone), if present.
func (d *Deck) Entry(cardID string, zone Zone) (*Entry, bool) {
	for i := range d.Entries {
		if d.Entries[i].CardID == cardID && d.Entries[i].Zone == zone {
			return &d.Entries[i], true
		}
	}
	return nil, false
}

// ZoneEntries returns the entries occupying a zone, in deck order.
func (d *Deck) ZoneEntries(zone Zone) []Entry {
	var out []Entry
	for _, e := range d.Entries {
		if e.Zone == zone {
			out = append(out, e)
		}
	}
	return out
}

// ZoneQuantity sums entry quantities in a zone.
func (d *Deck) ZoneQuantity(zone Zone) int {
	total := 0
	for _, e := range d.Entries {
		if e.Zone == zone {
			total += e.Quantity
		}
	}
	return total
}

// BoardCopies sums a card's quantity across the main and side zones. The
// single-card and rune/battlefield zones are excluded; they have their own
// exclusivity rules.
func (d *Deck) BoardCopies(cardID string) int {
	total := 0
	for _, e := range d.Entries {
		if e.CardID != cardID {
			continue
		}
		if e.Zone == ZoneMain || e.Zone == ZoneSide {
			total += e.Quantity
		}
	}
	return total
}

// CardIDs returns every card id the deck references (entries plus the
// legend/champion references), deduplicated, in first-appearance order.
func (d *Deck) CardIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(d.LegendCardID)
	add(d.ChampionCardID)
	for _, e := range d.Entries {
		add(e.CardID)
	}
	return ids
}

// removeEntryAt deletes the entry at index i, preserving order.
func (d *Deck) removeEntryAt(i int) {
	d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
}

// Clone returns a deep copy of the deck. Coordinator operations hand out
// clones so callers never alias the coordinator's working state.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	out := *d
	out.Entries = make([]Entry, len(d.Entries))
	copy(out.Entries, d.Entries)
	return &out
}
