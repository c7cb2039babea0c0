package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory EntryStore with switchable failure injection.
type fakeStore struct {
	decks map[string]*Deck

	nextID     int
	failUpsert error
	failDelete error
	failPatch  error
}

func newFakeStore(decks ...*Deck) *fakeStore {
	s := &fakeStore{decks: make(map[string]*Deck)}
	for _, d := range decks {
		s.decks[d.ID] = d
	}
	return s
}

func (s *fakeStore) GetDeck(_ context.Context, deckID string) (*Deck, error) {
	d, ok := s.decks[deckID]
	if !ok {
		return nil, ErrDeckNotFound
	}
	return d.Clone(), nil
}

func (s *fakeStore) ListEntries(_ context.Context, deckID string) ([]Entry, error) {
	d, ok := s.decks[deckID]
	if !ok {
		return nil, ErrDeckNotFound
	}
	out := make([]Entry, len(d.Entries))
	copy(out, d.Entries)
	return out, nil
}

func (s *fakeStore) UpsertEntry(_ context.Context, deckID, cardID string, zone Zone, quantity int) (Entry, error) {
	if s.failUpsert != nil {
		return Entry{}, s.failUpsert
	}
	d, ok := s.decks[deckID]
	if !ok {
		return Entry{}, ErrDeckNotFound
	}
	if e, found := d.Entry(cardID, zone); found {
		e.Quantity = quantity
		return *e, nil
	}
	s.nextID++
	e := Entry{ID: fmt.Sprintf("db-%d", s.nextID), CardID: cardID, Zone: zone, Quantity: quantity}
	d.Entries = append(d.Entries, e)
	return e, nil
}

func (s *fakeStore) DeleteEntry(_ context.Context, entryID string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	for _, d := range s.decks {
		for i := range d.Entries {
			if d.Entries[i].ID == entryID {
				d.removeEntryAt(i)
				return nil
			}
		}
	}
	return ErrEntryNotFound
}

func (s *fakeStore) PatchDeckReferences(_ context.Context, deckID string, patch ReferencePatch) error {
	if s.failPatch != nil {
		return s.failPatch
	}
	d, ok := s.decks[deckID]
	if !ok {
		return ErrDeckNotFound
	}
	if patch.SetLegend {
		d.LegendCardID = patch.LegendCardID
	}
	if patch.SetChampion {
		d.ChampionCardID = patch.ChampionCardID
	}
	return nil
}

// fakeCatalog serves cards from a fixed map.
type fakeCatalog struct {
	cards map[string]Card
}

func (c *fakeCatalog) GetCardsByIDs(_ context.Context, ids []string) (map[string]Card, error) {
	out := make(map[string]Card, len(ids))
	for _, id := range ids {
		if card, ok := c.cards[id]; ok {
			out[id] = card
		}
	}
	return out, nil
}

func testFixture(t *testing.T) (*Coordinator, *fakeStore) {
	t.Helper()
	store := newFakeStore(&Deck{ID: "deck-1", OwnerID: "user-1"})
	catalog := &fakeCatalog{cards: buildCatalog(
		legendCard("leg-1", []string{"Fury"}, "sett"),
		legendCard("leg-2", []string{"Calm"}, "yasuo"),
		championCard("champ-1", "sett"),
		runeCard("rune-1", "Fury"),
		battlefieldCard("bf-1"),
		unitCard("unit-1"),
		unitCard("unit-2"),
	)}
	return NewCoordinator(store, catalog, nil), store
}

func TestCoordinatorAddCreatesEntry(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	d, entry, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, entry.Quantity)
	assert.True(t, strings.HasPrefix(entry.ID, "db-"), "expected reconciled id, got %s", entry.ID)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, entry, d.Entries[0])
	assert.Len(t, store.decks["deck-1"].Entries, 1)
}

func TestCoordinatorAddIncrementsExistingEntry(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 1)
	require.NoError(t, err)
	d, entry, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, entry.Quantity)
	assert.Len(t, d.Entries, 1, "repeated adds must increment, not duplicate")
	assert.Len(t, store.decks["deck-1"].Entries, 1)
}

func TestCoordinatorAddRejectsWrongCategory(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneRune, 1)

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonInvalidZoneForCategory, pre.Reason)
	assert.Empty(t, store.decks["deck-1"].Entries, "rejected add must have no effect")
}

func TestCoordinatorAddRejectsUnknownZone(t *testing.T) {
	coord, _ := testFixture(t)

	_, _, err := coord.Add(context.Background(), "deck-1", "unit-1", Zone("graveyard"), 1)

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonInvalidZoneForCategory, pre.Reason)
}

func TestCoordinatorAddSecondLegendRejected(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)

	_, _, err = coord.Add(ctx, "deck-1", "leg-2", ZoneLegend, 1)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonSingleCardZoneOccupied, pre.Reason)

	// The existing occupant is untouched.
	d := store.decks["deck-1"]
	entries := d.ZoneEntries(ZoneLegend)
	require.Len(t, entries, 1)
	assert.Equal(t, "leg-1", entries[0].CardID)
	assert.Equal(t, "leg-1", d.LegendCardID)
}

func TestCoordinatorAddLegendTwiceRejected(t *testing.T) {
	coord, _ := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)

	_, _, err = coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonSingleCardZoneOccupied, pre.Reason)
}

func TestCoordinatorAddSetsReferences(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)
	d, _, err := coord.Add(ctx, "deck-1", "champ-1", ZoneChampion, 1)
	require.NoError(t, err)

	assert.Equal(t, "leg-1", d.LegendCardID)
	assert.Equal(t, "champ-1", d.ChampionCardID)
	assert.Equal(t, "leg-1", store.decks["deck-1"].LegendCardID)
	assert.Equal(t, "champ-1", store.decks["deck-1"].ChampionCardID)
}

func TestCoordinatorCardLimitAcrossBoards(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 3)
	require.NoError(t, err)

	// A 4th copy in the side deck pushes the summed total past the cap.
	_, _, err = coord.Add(ctx, "deck-1", "unit-1", ZoneSide, 1)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonCardLimitExceeded, pre.Reason)

	d := store.decks["deck-1"]
	assert.Equal(t, 3, d.BoardCopies("unit-1"), "deck state must be unchanged")
	assert.Empty(t, d.ZoneEntries(ZoneSide))
}

func TestCoordinatorCardLimitCountsDelta(t *testing.T) {
	coord, _ := testFixture(t)

	_, _, err := coord.Add(context.Background(), "deck-1", "unit-1", ZoneMain, 4)

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonCardLimitExceeded, pre.Reason)
}

func TestCoordinatorRemoveDecrements(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 3)
	require.NoError(t, err)

	d, err := coord.Remove(ctx, "deck-1", "unit-1", ZoneMain, 1)
	require.NoError(t, err)

	entry, ok := d.Entry("unit-1", ZoneMain)
	require.True(t, ok)
	assert.Equal(t, 2, entry.Quantity)
	stored, _ := store.decks["deck-1"].Entry("unit-1", ZoneMain)
	assert.Equal(t, 2, stored.Quantity)
}

func TestCoordinatorRemoveLastCopyDeletesEntry(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 1)
	require.NoError(t, err)

	d, err := coord.Remove(ctx, "deck-1", "unit-1", ZoneMain, 1)
	require.NoError(t, err)

	_, ok := d.Entry("unit-1", ZoneMain)
	assert.False(t, ok, "no zero-quantity entries may persist")
	assert.Empty(t, store.decks["deck-1"].Entries)
}

func TestCoordinatorRemoveLegendClearsReference(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)

	d, err := coord.Remove(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)

	assert.Empty(t, d.LegendCardID)
	assert.Empty(t, store.decks["deck-1"].LegendCardID)
}

func TestCoordinatorRemoveMissingEntry(t *testing.T) {
	coord, _ := testFixture(t)

	_, err := coord.Remove(context.Background(), "deck-1", "unit-1", ZoneMain, 1)

	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestCoordinatorAddUnknownCard(t *testing.T) {
	coord, _ := testFixture(t)

	_, _, err := coord.Add(context.Background(), "deck-1", "no-such-card", ZoneMain, 1)

	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCoordinatorAddUnknownDeck(t *testing.T) {
	coord, _ := testFixture(t)

	_, _, err := coord.Add(context.Background(), "deck-404", "unit-1", ZoneMain, 1)

	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestCoordinatorPersistenceFailureReloads(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 2)
	require.NoError(t, err)

	store.failUpsert = errors.New("connection reset")
	d, _, err := coord.Add(ctx, "deck-1", "unit-2", ZoneMain, 1)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// The returned state is the reloaded authoritative one, without the
	// optimistic change.
	require.NotNil(t, d)
	_, ok := d.Entry("unit-2", ZoneMain)
	assert.False(t, ok)
	entry, ok := d.Entry("unit-1", ZoneMain)
	require.True(t, ok)
	assert.Equal(t, 2, entry.Quantity)

	// After the failure clears, the next mutation sees authoritative state.
	store.failUpsert = nil
	d, _, err = coord.Add(ctx, "deck-1", "unit-2", ZoneMain, 1)
	require.NoError(t, err)
	assert.Len(t, d.Entries, 2)
}

func TestCoordinatorRemoveFailureReloads(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "unit-1", ZoneMain, 1)
	require.NoError(t, err)

	store.failDelete = errors.New("connection reset")
	d, err := coord.Remove(ctx, "deck-1", "unit-1", ZoneMain, 1)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, d)
	entry, ok := d.Entry("unit-1", ZoneMain)
	require.True(t, ok, "authoritative state still holds the entry")
	assert.Equal(t, 1, entry.Quantity)
}

func TestCoordinatorReferencePatchFailureReloads(t *testing.T) {
	coord, store := testFixture(t)
	ctx := context.Background()

	store.failPatch = errors.New("connection reset")
	d, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, d)
	assert.Empty(t, d.LegendCardID)
}

func TestCoordinatorValidate(t *testing.T) {
	coord, _ := testFixture(t)
	ctx := context.Background()

	_, _, err := coord.Add(ctx, "deck-1", "leg-1", ZoneLegend, 1)
	require.NoError(t, err)
	_, _, err = coord.Add(ctx, "deck-1", "champ-1", ZoneChampion, 1)
	require.NoError(t, err)

	result, err := coord.Validate(ctx, "deck-1")
	require.NoError(t, err)

	assert.True(t, result.Checks.HasLegend)
	assert.True(t, result.Checks.HasChampion)
	assert.True(t, result.Checks.ChampionMatchesLegend)
	assert.False(t, result.Valid)
}

func TestCoordinatorRejectsNonPositiveQuantity(t *testing.T) {
	coord, _ := testFixture(t)

	_, _, err := coord.Add(context.Background(), "deck-1", "unit-1", ZoneMain, 0)
	assert.Error(t, err)

	_, err = coord.Remove(context.Background(), "deck-1", "unit-1", ZoneMain, -1)
	assert.Error(t, err)
}
