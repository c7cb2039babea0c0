package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riftdeck/riftdeck-server/internal/deck"
)

const defaultSearchLimit = 50

// Store reads card metadata from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a catalog store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const cardColumns = "id, name, category, domains, tags, energy_cost, power_cost, might, rarity"

func scanCard(row pgx.Row) (deck.Card, error) {
	var c deck.Card
	var category string
	err := row.Scan(&c.ID, &c.Name, &category, &c.Domains, &c.Tags,
		&c.EnergyCost, &c.PowerCost, &c.Might, &c.Rarity)
	if err != nil {
		return deck.Card{}, err
	}
	c.Category = deck.CardCategory(category)
	return c, nil
}

// GetCardsByIDs resolves card ids to metadata. Unknown ids are simply
// absent from the returned map.
func (s *Store) GetCardsByIDs(ctx context.Context, ids []string) (map[string]deck.Card, error) {
	if len(ids) == 0 {
		return map[string]deck.Card{}, nil
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	out := make(map[string]deck.Card, len(ids))
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// GetCard resolves a single card id.
func (s *Store) GetCard(ctx context.Context, id string) (deck.Card, error) {
	c, err := scanCard(s.pool.QueryRow(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return deck.Card{}, deck.ErrCardNotFound
		}
		return deck.Card{}, fmt.Errorf("select card: %w", err)
	}
	return c, nil
}

// Search returns cards matching the filter, ordered by name.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]deck.Card, error) {
	query := "SELECT " + cardColumns + " FROM cards WHERE 1=1"
	args := []any{}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	defer rows.Close()

	var cards []deck.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
