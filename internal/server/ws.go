package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected websocket clients and pushes deck update
// notifications to clients subscribed to the affected deck.
type Hub struct {
	logger     *zap.Logger
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	subscribe  chan subscription
	notify     chan deckEvent
}

type subscription struct {
	client *wsClient
	deckID string
	active bool
}

type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	deckIDs map[string]bool
}

type deckEvent struct {
	Type   string `json:"type"`
	DeckID string `json:"deckId"`
}

type wsMessage struct {
	Type   string `json:"type"`
	DeckID string `json:"deckId"`
}

// NewHub creates an idle hub. Run must be started on its own goroutine.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		subscribe:  make(chan subscription),
		notify:     make(chan deckEvent, 64),
	}
}

// Run dispatches register, unregister, and notification events until the
// process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("websocket client disconnected")
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			if sub.active {
				sub.client.deckIDs[sub.deckID] = true
			} else {
				delete(sub.client.deckIDs, sub.deckID)
			}

		case event := <-h.notify:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal deck event", zap.Error(err))
				continue
			}
			for client := range h.clients {
				if !client.deckIDs[event.DeckID] {
					continue
				}
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// NotifyDeckUpdated tells subscribed clients that the deck changed. Drops
// the event rather than blocking when the hub is saturated.
func (h *Hub) NotifyDeckUpdated(deckID string) {
	select {
	case h.notify <- deckEvent{Type: "deck_updated", DeckID: deckID}:
	default:
		h.logger.Warn("dropping deck update notification", zap.String("deck_id", deckID))
	}
}

// ServeWS upgrades the connection and starts the client pumps. Clients
// subscribe by sending {"type":"subscribe","deckId":"..."}.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:    conn,
		send:    make(chan []byte, 256),
		deckIDs: make(map[string]bool),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debug("ignoring malformed websocket message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.DeckID != "" {
				h.subscribe <- subscription{client: c, deckID: msg.DeckID, active: true}
			}
		case "unsubscribe":
			h.subscribe <- subscription{client: c, deckID: msg.DeckID}
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
