package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/riftdeck/riftdeck-server/internal/catalog"
	"github.com/riftdeck/riftdeck-server/internal/deck"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-ID"

func (s *Server) userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

// requireOwner loads the deck and checks the caller owns it. It writes the
// error response itself and returns nil when the request must not proceed.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request, deckID string) *deck.Deck {
	userID := s.userID(r)
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", "")
		return nil
	}
	d, err := s.coordinator.Deck(r.Context(), deckID)
	if err != nil {
		s.writeDeckError(w, err)
		return nil
	}
	if d.OwnerID != userID {
		s.writeError(w, http.StatusForbidden, "deck belongs to another user", "AccessDenied")
		return nil
	}
	return d
}

// writeDeckError maps domain errors to HTTP responses.
func (s *Server) writeDeckError(w http.ResponseWriter, err error) {
	var precond *deck.PreconditionError
	var conflict *deck.ConflictError
	switch {
	case errors.As(err, &precond):
		s.writeError(w, http.StatusConflict, precond.Message, string(precond.Reason))
	case errors.As(err, &conflict):
		s.writeError(w, http.StatusInternalServerError, "deck state could not be persisted", "ConsistencyConflict")
	case errors.Is(err, deck.ErrDeckNotFound):
		s.writeError(w, http.StatusNotFound, "deck not found", "")
	case errors.Is(err, deck.ErrCardNotFound):
		s.writeError(w, http.StatusNotFound, "card not found", "")
	case errors.Is(err, deck.ErrEntryNotFound):
		s.writeError(w, http.StatusNotFound, "deck entry not found", "")
	default:
		s.logger.Error("unhandled deck error", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

type createDeckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", "")
		return
	}
	var req createDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "deck name is required", "")
		return
	}

	now := time.Now().UTC()
	d := &deck.Deck{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.decks.CreateDeck(r.Context(), d); err != nil {
		s.logger.Error("failed to create deck", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create deck", "")
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", "")
		return
	}
	decks, err := s.decks.ListDecksByOwner(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list decks", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list decks", "")
		return
	}
	if decks == nil {
		decks = []*deck.Deck{}
	}
	s.writeJSON(w, http.StatusOK, decks)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	d := s.requireOwner(w, r, deckID)
	if d == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

type updateDeckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	var req updateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "deck name is required", "")
		return
	}
	if err := s.decks.UpdateDeckMeta(r.Context(), deckID, req.Name, req.Description); err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.coordinator.Invalidate(deckID)
	d, err := s.coordinator.Deck(r.Context(), deckID)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	if err := s.decks.DeleteDeck(r.Context(), deckID); err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.coordinator.Forget(deckID)
	s.writeJSON(w, http.StatusNoContent, nil)
}

type addCardRequest struct {
	CardID   string `json:"cardId"`
	Zone     string `json:"zone"`
	Quantity int    `json:"quantity"`
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	var req addCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.CardID == "" {
		s.writeError(w, http.StatusBadRequest, "cardId is required", "")
		return
	}
	zone := deck.Zone(req.Zone)
	if _, ok := deck.SpecFor(zone); !ok {
		s.writeError(w, http.StatusBadRequest, "unknown zone: "+req.Zone, "")
		return
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		s.writeError(w, http.StatusBadRequest, "quantity must be positive", "")
		return
	}

	d, entry, err := s.coordinator.Add(r.Context(), deckID, req.CardID, zone, quantity)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.NotifyDeckUpdated(deckID)
	}
	s.writeJSON(w, http.StatusCreated, struct {
		Entry deck.Entry `json:"entry"`
		Deck  *deck.Deck `json:"deck"`
	}{Entry: entry, Deck: d})
}

func (s *Server) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	cardID := chi.URLParam(r, "cardID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	zone := deck.Zone(r.URL.Query().Get("zone"))
	if _, ok := deck.SpecFor(zone); !ok {
		s.writeError(w, http.StatusBadRequest, "unknown zone: "+string(zone), "")
		return
	}
	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "quantity must be a positive integer", "")
			return
		}
		quantity = parsed
	}

	d, err := s.coordinator.Remove(r.Context(), deckID, cardID, zone, quantity)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.NotifyDeckUpdated(deckID)
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleValidateDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	result, err := s.coordinator.Validate(r.Context(), deckID)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIssueShareToken(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	token := uuid.NewString()
	if err := s.decks.SetShareToken(r.Context(), deckID, token); err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.coordinator.Invalidate(deckID)
	s.writeJSON(w, http.StatusOK, struct {
		ShareToken string `json:"shareToken"`
	}{ShareToken: token})
}

func (s *Server) handleRevokeShareToken(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if s.requireOwner(w, r, deckID) == nil {
		return
	}
	if err := s.decks.SetShareToken(r.Context(), deckID, ""); err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.coordinator.Invalidate(deckID)
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetSharedDeck(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	d, err := s.decks.GetDeckByShareToken(r.Context(), token)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSearchCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if rawIDs := q.Get("ids"); rawIDs != "" {
		ids := strings.Split(rawIDs, ",")
		cards, err := s.catalog.GetCardsByIDs(r.Context(), ids)
		if err != nil {
			s.logger.Error("failed to fetch cards", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to fetch cards", "")
			return
		}
		s.writeJSON(w, http.StatusOK, cards)
		return
	}

	filter := catalog.SearchFilter{
		Name:     q.Get("name"),
		Category: deck.CardCategory(q.Get("category")),
	}
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		filter.Limit = parsed
	}
	cards, err := s.catalog.Search(r.Context(), filter)
	if err != nil {
		s.logger.Error("card search failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "card search failed", "")
		return
	}
	if cards == nil {
		cards = []deck.Card{}
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	card, err := s.catalog.GetCard(r.Context(), cardID)
	if err != nil {
		s.writeDeckError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("health check database ping failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, code, struct {
		Status string `json:"status"`
	}{Status: status})
}
