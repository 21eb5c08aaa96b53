package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/conversation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware does not cover upgrades
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Inbound and outbound WebSocket message types.
const (
	WSTypeChat     = "chat"
	WSTypeReset    = "reset"
	WSTypeStats    = "stats"
	WSTypePing     = "ping"
	WSTypeGreeting = "greeting"
	WSTypeReply    = "reply"
	WSTypePong     = "pong"
	WSTypeError    = "error"
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSRequest is a message received from a client.
type WSRequest struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Format  string `json:"format,omitempty"`
}

// WSHub tracks connected WebSocket clients.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

// WSClient represents a single WebSocket connection and its conversation.
type WSClient struct {
	hub   *WSHub
	send  chan WSMessage
	store *conversation.Store
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and runs a chat session that
// lives as long as the connection. Turns are processed one at a time.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &WSClient{
		hub:   s.wsHub,
		send:  make(chan WSMessage, 16),
		store: conversation.NewStore(),
	}
	s.wsHub.Register(client)
	log.Debug().Str("remote", r.RemoteAddr).Int("clients", s.wsHub.ClientCount()).Msg("websocket connected")

	client.send <- WSMessage{Type: WSTypeGreeting, Data: map[string]string{
		"greeting":   assistant.Greeting,
		"disclaimer": assistant.Disclaimer,
	}}

	go wsWritePump(conn, client)
	go wsReadPump(conn, client, s)
}

// wsReadPump reads client requests and answers them in order.
func wsReadPump(conn *websocket.Conn, client *WSClient, s *Server) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var req WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			client.send <- WSMessage{Type: WSTypeError, Data: "invalid message"}
			continue
		}
		client.send <- s.handleWSRequest(ctx, client, req)
	}
}

func (s *Server) handleWSRequest(ctx context.Context, client *WSClient, req WSRequest) WSMessage {
	switch req.Type {
	case WSTypeChat:
		if req.Message == "" {
			return WSMessage{Type: WSTypeError, Data: "message is required"}
		}
		reply := s.assistant.Respond(ctx, client.store, req.Message)
		return WSMessage{Type: WSTypeReply, Data: s.chatResponse(reply, req.Format)}
	case WSTypeReset:
		client.store.Clear()
		return WSMessage{Type: WSTypeStats, Data: storeStats(client.store)}
	case WSTypeStats:
		return WSMessage{Type: WSTypeStats, Data: storeStats(client.store)}
	case WSTypePing:
		return WSMessage{Type: WSTypePong}
	}
	return WSMessage{Type: WSTypeError, Data: "unknown message type: " + req.Type}
}

func storeStats(store *conversation.Store) SessionStats {
	return SessionStats{
		Label:          assistant.QuestionCountLabel,
		TotalQuestions: store.UserCount(),
		Turns:          store.Len(),
	}
}

// wsWritePump writes queued messages and keeps the connection alive with pings.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Reader finished
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Str("type", msg.Type).Msg("websocket marshal failed")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
