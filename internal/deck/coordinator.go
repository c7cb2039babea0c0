package deck

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferencePatch updates a deck's legend/champion references. A field is
// only written when its Set flag is true; an empty card id clears the
// reference.
type ReferencePatch struct {
	SetLegend      bool
	LegendCardID   string
	SetChampion    bool
	ChampionCardID string
}

// EntryStore is the system of record for deck card placements.
type EntryStore interface {
	GetDeck(ctx context.Context, deckID string) (*Deck, error)
	ListEntries(ctx context.Context, deckID string) ([]Entry, error)
	UpsertEntry(ctx context.Context, deckID, cardID string, zone Zone, quantity int) (Entry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	PatchDeckReferences(ctx context.Context, deckID string, patch ReferencePatch) error
}

// Coordinator applies add/remove mutations to a deck while enforcing the
// zone, category, and copy-limit invariants. Changes are applied to local
// state optimistically before the persistence call; on persistence failure
// the local state is discarded and reloaded from the system of record
// rather than hand-patched back. Mutations are sequenced per deck so
// overlapping writes never race.
type Coordinator struct {
	store   EntryStore
	catalog CardCatalog
	logger  *zap.Logger

	mu    sync.Mutex
	decks map[string]*deckHandle
}

type deckHandle struct {
	mu   sync.Mutex
	deck *Deck
}

// NewCoordinator creates a mutation coordinator backed by the given store
// and catalog.
func NewCoordinator(store EntryStore, catalog CardCatalog, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:   store,
		catalog: catalog,
		logger:  logger,
		decks:   make(map[string]*deckHandle),
	}
}

// handle returns the per-deck handle, creating it on first use. The
// handle's mutex is the per-deck mutation queue.
func (c *Coordinator) handle(deckID string) *deckHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.decks[deckID]
	if !ok {
		h = &deckHandle{}
		c.decks[deckID] = h
	}
	return h
}

// current returns the handle's working state, loading it from the store on
// first access. Callers must hold h.mu.
func (c *Coordinator) current(ctx context.Context, h *deckHandle, deckID string) (*Deck, error) {
	if h.deck != nil {
		return h.deck, nil
	}
	d, err := c.store.GetDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	h.deck = d
	return d, nil
}

// reload discards the working state and re-reads the authoritative deck.
// Callers must hold h.mu.
func (c *Coordinator) reload(ctx context.Context, h *deckHandle, deckID string) *Deck {
	h.deck = nil
	fresh, err := c.store.GetDeck(ctx, deckID)
	if err != nil {
		c.logger.Error("failed to reload deck after persistence failure",
			zap.String("deck_id", deckID),
			zap.Error(err),
		)
		return nil
	}
	h.deck = fresh
	return fresh
}

// Invalidate drops any cached state for a deck, forcing the next operation
// to re-read the system of record. Used after out-of-band deck updates.
func (c *Coordinator) Invalidate(deckID string) {
	c.mu.Lock()
	h, ok := c.decks[deckID]
	c.mu.Unlock()
	if !ok {
		return
	}
	h.mu.Lock()
	h.deck = nil
	h.mu.Unlock()
}

// Forget removes a deck's handle entirely. Used when the deck is deleted.
func (c *Coordinator) Forget(deckID string) {
	c.mu.Lock()
	delete(c.decks, deckID)
	c.mu.Unlock()
}

// Add places quantity copies of a card into a zone. Preconditions are
// evaluated in order and the first failure aborts the whole operation with
// no effect. On success the returned deck is a snapshot of the new state
// and the returned entry carries the authoritative id from the system of
// record.
func (c *Coordinator) Add(ctx context.Context, deckID, cardID string, zone Zone, quantity int) (*Deck, Entry, error) {
	if quantity < 1 {
		return nil, Entry{}, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	h := c.handle(deckID)
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := c.current(ctx, h, deckID)
	if err != nil {
		return nil, Entry{}, err
	}

	cards, err := c.catalog.GetCardsByIDs(ctx, []string{cardID})
	if err != nil {
		return nil, Entry{}, fmt.Errorf("resolve card %s: %w", cardID, err)
	}
	card, ok := cards[cardID]
	if !ok {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}

	spec, known := SpecFor(zone)
	if !known || !spec.Allows(card.Category) {
		return nil, Entry{}, &PreconditionError{
			Reason:  ReasonInvalidZoneForCategory,
			Message: fmt.Sprintf("cards of category %q may not enter the %s zone", card.Category, zone),
		}
	}

	existing, hasEntry := d.Entry(cardID, zone)

	if singleCardZone(zone) {
		for _, e := range d.ZoneEntries(zone) {
			if e.CardID != cardID {
				return nil, Entry{}, &PreconditionError{
					Reason:  ReasonSingleCardZoneOccupied,
					Message: fmt.Sprintf("the %s zone is already occupied by another card", zone),
				}
			}
		}
		current := 0
		if hasEntry {
			current = existing.Quantity
		}
		if current+quantity > spec.Target {
			return nil, Entry{}, &PreconditionError{
				Reason:  ReasonSingleCardZoneOccupied,
				Message: fmt.Sprintf("the %s zone holds at most %d card", zone, spec.Target),
			}
		}
	} else {
		projected := d.BoardCopies(cardID)
		if zone == ZoneMain || zone == ZoneSide {
			projected += quantity
		}
		if projected > MaxCopies {
			return nil, Entry{}, &PreconditionError{
				Reason:  ReasonCardLimitExceeded,
				Message: fmt.Sprintf("at most %d copies of a card may be split across the main and side decks", MaxCopies),
			}
		}
	}

	// Optimistic local apply. A new entry gets a provisional id that is
	// replaced once the system of record answers.
	var entry *Entry
	if hasEntry {
		existing.Quantity += quantity
		entry = existing
	} else {
		d.Entries = append(d.Entries, Entry{
			ID:       "local-" + uuid.NewString(),
			CardID:   cardID,
			Zone:     zone,
			Quantity: quantity,
		})
		entry = &d.Entries[len(d.Entries)-1]
	}
	if zone == ZoneLegend {
		d.LegendCardID = cardID
	} else if zone == ZoneChampion {
		d.ChampionCardID = cardID
	}

	stored, err := c.store.UpsertEntry(ctx, deckID, cardID, zone, entry.Quantity)
	if err != nil {
		fresh := c.reload(ctx, h, deckID)
		return fresh, Entry{}, &ConflictError{Err: err}
	}
	entry.ID = stored.ID

	if singleCardZone(zone) {
		patch := ReferencePatch{}
		if zone == ZoneLegend {
			patch.SetLegend = true
			patch.LegendCardID = cardID
		} else {
			patch.SetChampion = true
			patch.ChampionCardID = cardID
		}
		if err := c.store.PatchDeckReferences(ctx, deckID, patch); err != nil {
			fresh := c.reload(ctx, h, deckID)
			return fresh, Entry{}, &ConflictError{Err: err}
		}
	}

	c.logger.Debug("card added",
		zap.String("deck_id", deckID),
		zap.String("card_id", cardID),
		zap.String("zone", string(zone)),
		zap.Int("quantity", entry.Quantity),
	)

	return d.Clone(), *entry, nil
}

// Remove decrements a card's quantity in a zone; when the quantity reaches
// zero the entry is deleted. Removing the legend/champion entry clears the
// corresponding deck reference as part of the same logical operation.
func (c *Coordinator) Remove(ctx context.Context, deckID, cardID string, zone Zone, quantity int) (*Deck, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	h := c.handle(deckID)
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := c.current(ctx, h, deckID)
	if err != nil {
		return nil, err
	}

	entry, ok := d.Entry(cardID, zone)
	if !ok {
		return nil, fmt.Errorf("%w: card %s in zone %s", ErrEntryNotFound, cardID, zone)
	}

	entryID := entry.ID
	remaining := entry.Quantity - quantity
	if remaining < 0 {
		remaining = 0
	}

	// Optimistic local apply.
	clearedLegend := false
	clearedChampion := false
	if remaining == 0 {
		for i := range d.Entries {
			if d.Entries[i].ID == entryID {
				d.removeEntryAt(i)
				break
			}
		}
		if zone == ZoneLegend && d.LegendCardID == cardID {
			d.LegendCardID = ""
			clearedLegend = true
		}
		if zone == ZoneChampion && d.ChampionCardID == cardID {
			d.ChampionCardID = ""
			clearedChampion = true
		}
	} else {
		entry.Quantity = remaining
	}

	if remaining == 0 {
		err = c.store.DeleteEntry(ctx, entryID)
	} else {
		_, err = c.store.UpsertEntry(ctx, deckID, cardID, zone, remaining)
	}
	if err != nil {
		fresh := c.reload(ctx, h, deckID)
		if fresh == nil {
			return nil, &ConflictError{Err: err}
		}
		return fresh, &ConflictError{Err: err}
	}

	if clearedLegend || clearedChampion {
		patch := ReferencePatch{SetLegend: clearedLegend, SetChampion: clearedChampion}
		if err := c.store.PatchDeckReferences(ctx, deckID, patch); err != nil {
			fresh := c.reload(ctx, h, deckID)
			return fresh, &ConflictError{Err: err}
		}
	}

	c.logger.Debug("card removed",
		zap.String("deck_id", deckID),
		zap.String("card_id", cardID),
		zap.String("zone", string(zone)),
		zap.Int("remaining", remaining),
	)

	return d.Clone(), nil
}

// Deck returns a snapshot of the deck's current state.
func (c *Coordinator) Deck(ctx context.Context, deckID string) (*Deck, error) {
	h := c.handle(deckID)
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := c.current(ctx, h, deckID)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// Validate recomputes the validation result for a deck from its current
// state and the catalog. Validation is a pure derived read; it never
// changes deck state.
func (c *Coordinator) Validate(ctx context.Context, deckID string) (ValidationResult, error) {
	h := c.handle(deckID)
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := c.current(ctx, h, deckID)
	if err != nil {
		return ValidationResult{}, err
	}

	ids := d.CardIDs()
	cards := map[string]Card{}
	if len(ids) > 0 {
		cards, err = c.catalog.GetCardsByIDs(ctx, ids)
		if err != nil {
			return ValidationResult{}, fmt.Errorf("resolve deck cards: %w", err)
		}
	}

	return Validate(d, cards), nil
}
