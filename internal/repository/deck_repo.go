package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riftdeck/riftdeck-server/internal/deck"
	"go.uber.org/zap"
)

// DeckRepository persists decks and their card placements. It is the
// system of record the mutation coordinator reconciles against.
type DeckRepository struct {
	db *DB
}

// NewDeckRepository creates a deck repository.
func NewDeckRepository(db *DB) *DeckRepository {
	return &DeckRepository{db: db}
}

// CreateDeck inserts a new deck.
func (r *DeckRepository) CreateDeck(ctx context.Context, d *deck.Deck) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO decks (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.OwnerID, d.Name, d.Description, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	return nil
}

// GetDeck loads a deck with its entries.
func (r *DeckRepository) GetDeck(ctx context.Context, deckID string) (*deck.Deck, error) {
	return r.getDeck(ctx, "id = $1", deckID)
}

// GetDeckByShareToken loads a deck by its share token.
func (r *DeckRepository) GetDeckByShareToken(ctx context.Context, token string) (*deck.Deck, error) {
	return r.getDeck(ctx, "share_token = $1", token)
}

func (r *DeckRepository) getDeck(ctx context.Context, where string, arg any) (*deck.Deck, error) {
	var (
		d          deck.Deck
		legend     *string
		champion   *string
		shareToken *string
	)
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, description, legend_card_id, champion_card_id,
		       share_token, created_at, updated_at
		FROM decks
		WHERE `+where,
		arg,
	).Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &legend, &champion,
		&shareToken, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deck.ErrDeckNotFound
		}
		return nil, fmt.Errorf("select deck: %w", err)
	}
	if legend != nil {
		d.LegendCardID = *legend
	}
	if champion != nil {
		d.ChampionCardID = *champion
	}
	if shareToken != nil {
		d.ShareToken = *shareToken
	}

	entries, err := r.ListEntries(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Entries = entries
	return &d, nil
}

// ListDecksByOwner returns a user's decks without their entries.
func (r *DeckRepository) ListDecksByOwner(ctx context.Context, ownerID string) ([]*deck.Deck, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, owner_id, name, description, legend_card_id, champion_card_id,
		       share_token, created_at, updated_at
		FROM decks
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var decks []*deck.Deck
	for rows.Next() {
		var (
			d          deck.Deck
			legend     *string
			champion   *string
			shareToken *string
		)
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &legend,
			&champion, &shareToken, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		if legend != nil {
			d.LegendCardID = *legend
		}
		if champion != nil {
			d.ChampionCardID = *champion
		}
		if shareToken != nil {
			d.ShareToken = *shareToken
		}
		decks = append(decks, &d)
	}
	return decks, rows.Err()
}

// UpdateDeckMeta renames or redescribes a deck.
func (r *DeckRepository) UpdateDeckMeta(ctx context.Context, deckID, name, description string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE decks SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, deckID, name, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update deck: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return deck.ErrDeckNotFound
	}
	return nil
}

// DeleteDeck removes a deck; its entries cascade.
func (r *DeckRepository) DeleteDeck(ctx context.Context, deckID string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM decks WHERE id = $1`, deckID)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return deck.ErrDeckNotFound
	}
	return nil
}

// SetShareToken stores a deck's share token; an empty token revokes it.
func (r *DeckRepository) SetShareToken(ctx context.Context, deckID, token string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE decks SET share_token = NULLIF($2, ''), updated_at = $3 WHERE id = $1
	`, deckID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set share token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return deck.ErrDeckNotFound
	}
	return nil
}

// ListEntries returns a deck's card placements in insertion order.
func (r *DeckRepository) ListEntries(ctx context.Context, deckID string) ([]deck.Entry, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, card_id, zone, quantity
		FROM deck_cards
		WHERE deck_id = $1
		ORDER BY created_at, id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []deck.Entry
	for rows.Next() {
		var e deck.Entry
		var zone string
		if err := rows.Scan(&e.ID, &e.CardID, &zone, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Zone = deck.Zone(zone)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertEntry creates an entry or replaces its quantity, returning the row
// with its authoritative id.
func (r *DeckRepository) UpsertEntry(ctx context.Context, deckID, cardID string, zone deck.Zone, quantity int) (deck.Entry, error) {
	var id string
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO deck_cards (deck_id, card_id, zone, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (deck_id, card_id, zone)
		DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING id
	`, deckID, cardID, string(zone), quantity).Scan(&id)
	if err != nil {
		return deck.Entry{}, fmt.Errorf("upsert entry: %w", err)
	}

	r.touch(ctx, deckID)
	return deck.Entry{ID: id, CardID: cardID, Zone: zone, Quantity: quantity}, nil
}

// DeleteEntry removes a single card placement.
func (r *DeckRepository) DeleteEntry(ctx context.Context, entryID string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM deck_cards WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return deck.ErrEntryNotFound
	}
	return nil
}

// PatchDeckReferences updates the legend/champion references. Only fields
// with their Set flag are written; empty card ids store NULL.
func (r *DeckRepository) PatchDeckReferences(ctx context.Context, deckID string, patch deck.ReferencePatch) error {
	if !patch.SetLegend && !patch.SetChampion {
		return nil
	}

	query := "UPDATE decks SET updated_at = $2"
	args := []any{deckID, time.Now().UTC()}
	if patch.SetLegend {
		args = append(args, nullable(patch.LegendCardID))
		query += fmt.Sprintf(", legend_card_id = $%d", len(args))
	}
	if patch.SetChampion {
		args = append(args, nullable(patch.ChampionCardID))
		query += fmt.Sprintf(", champion_card_id = $%d", len(args))
	}
	query += " WHERE id = $1"

	tag, err := r.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch deck references: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return deck.ErrDeckNotFound
	}
	return nil
}

// touch bumps a deck's updated_at after an entry mutation. Failures are
// non-fatal; the entry write already committed.
func (r *DeckRepository) touch(ctx context.Context, deckID string) {
	_, err := r.db.pool.Exec(ctx, `UPDATE decks SET updated_at = $2 WHERE id = $1`, deckID, time.Now().UTC())
	if err != nil && r.db.logger != nil {
		r.db.logger.Warn("failed to touch deck timestamp",
			zap.String("deck_id", deckID),
			zap.Error(err),
		)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
