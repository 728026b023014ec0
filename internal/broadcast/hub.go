// Package broadcast pushes committed match states to websocket
// subscribers. Every subscriber receives the view projected for its own
// player id, never the raw state.
package broadcast

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/projection"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 16
)

type subscriber struct {
	playerID string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

// Hub fans committed states out to the subscribers of each match.
type Hub struct {
	mu      sync.Mutex
	matches map[string]map[*subscriber]struct{}
	log     *zap.Logger
	encode  func(projection.View) ([]byte, error)
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		matches: make(map[string]map[*subscriber]struct{}),
		log:     log,
		encode:  func(v projection.View) ([]byte, error) { return json.Marshal(v) },
	}
}

// NewUpgrader returns a websocket upgrader accepting the given origins.
// An empty list accepts any origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[strings.ToLower(r.Header.Get("Origin"))]
		},
	}
}

// Subscribers returns how many connections currently follow matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.matches[matchID])
}

// Publish sends the projected view of g to every subscriber of matchID.
// It never blocks: a subscriber whose buffer is full misses the update and
// catches up with the next one.
func (h *Hub) Publish(matchID string, g *game.GameState) {
	if g == nil {
		return
	}
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.matches[matchID]))
	for s := range h.matches[matchID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		payload, err := h.encode(projection.ForPlayer(g, s.playerID))
		if err != nil {
			h.log.Error("encode view",
				zap.String("match_id", matchID),
				zap.String("player_id", s.playerID),
				zap.Error(err))
			continue
		}
		h.offer(matchID, s, payload)
	}
}

func (h *Hub) offer(matchID string, s *subscriber, payload []byte) {
	select {
	case s.send <- payload:
	case <-s.done:
	default:
		h.log.Warn("subscriber too slow, dropping update",
			zap.String("match_id", matchID),
			zap.String("player_id", s.playerID))
	}
}

// Serve registers conn as a subscriber of matchID and blocks until the
// client disconnects. initial, when non-nil, is sent first.
func (h *Hub) Serve(matchID, playerID string, conn *websocket.Conn, initial *game.GameState) {
	s := &subscriber{playerID: playerID, conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.add(matchID, s)
	h.log.Debug("subscriber joined", zap.String("match_id", matchID), zap.String("player_id", playerID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(s)
	}()
	if initial != nil {
		if payload, err := h.encode(projection.ForPlayer(initial, playerID)); err == nil {
			h.offer(matchID, s, payload)
		}
	}

	h.readPump(s)
	h.remove(matchID, s)
	close(s.done)
	<-done
	h.log.Debug("subscriber left", zap.String("match_id", matchID), zap.String("player_id", playerID))
}

func (h *Hub) add(matchID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.matches[matchID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.matches[matchID] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) remove(matchID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.matches[matchID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.matches, matchID)
	}
}

// readPump discards client frames; it only exists to notice the close and
// answer pings.
func (h *Hub) readPump(s *subscriber) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
