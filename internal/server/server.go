// Package server exposes the deck construction API over HTTP and
// websocket.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riftdeck/riftdeck-server/internal/catalog"
	"github.com/riftdeck/riftdeck-server/internal/config"
	"github.com/riftdeck/riftdeck-server/internal/deck"
	"go.uber.org/zap"
)

// DeckStore is the deck CRUD surface the handlers need from persistence.
type DeckStore interface {
	CreateDeck(ctx context.Context, d *deck.Deck) error
	GetDeck(ctx context.Context, deckID string) (*deck.Deck, error)
	GetDeckByShareToken(ctx context.Context, token string) (*deck.Deck, error)
	ListDecksByOwner(ctx context.Context, ownerID string) ([]*deck.Deck, error)
	UpdateDeckMeta(ctx context.Context, deckID, name, description string) error
	DeleteDeck(ctx context.Context, deckID string) error
	SetShareToken(ctx context.Context, deckID, token string) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP handlers to the coordinator, stores, and hub.
type Server struct {
	cfg         *config.Config
	logger      *zap.Logger
	coordinator *deck.Coordinator
	decks       DeckStore
	catalog     catalog.Catalog
	hub         *Hub
	db          Pinger
}

// New creates the API server. db may be nil in tests.
func New(
	cfg *config.Config,
	coordinator *deck.Coordinator,
	decks DeckStore,
	cat catalog.Catalog,
	hub *Hub,
	db Pinger,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:         cfg,
		logger:      logger,
		coordinator: coordinator,
		decks:       decks,
		catalog:     cat,
		hub:         hub,
		db:          db,
	}
}

// Routes builds the router with all endpoints and middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	if s.cfg != nil && s.cfg.Server.RateLimit.Enabled {
		r.Use(s.rateLimiter(s.cfg.Server.RateLimit))
	}

	r.Get("/healthz", s.handleHealth)
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/decks", func(r chi.Router) {
			r.Post("/", s.handleCreateDeck)
			r.Get("/", s.handleListDecks)
			r.Route("/{deckID}", func(r chi.Router) {
				r.Get("/", s.handleGetDeck)
				r.Patch("/", s.handleUpdateDeck)
				r.Delete("/", s.handleDeleteDeck)
				r.Post("/cards", s.handleAddCard)
				r.Delete("/cards/{cardID}", s.handleRemoveCard)
				r.Get("/validation", s.handleValidateDeck)
				r.Post("/share", s.handleIssueShareToken)
				r.Delete("/share", s.handleRevokeShareToken)
			})
		})
		r.Get("/shared/{token}", s.handleGetSharedDeck)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleSearchCards)
			r.Get("/{cardID}", s.handleGetCard)
		})
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, reason string) {
	s.writeJSON(w, status, errorResponse{Error: message, Reason: reason})
}
