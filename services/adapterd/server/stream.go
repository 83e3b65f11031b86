package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"nhooyr.io/websocket"

	"venusadapter/services/adapterd/api"
)

const (
	wsWriteTimeout   = 10 * time.Second
	subscriberBuffer = 32
)

// Hub fans receipts out to stream subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the message.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan api.StreamMessage]struct{}
	closed  bool
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan api.StreamMessage]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release it.
func (h *Hub) Subscribe() (<-chan api.StreamMessage, func()) {
	ch := make(chan api.StreamMessage, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) Publish(msg api.StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.dropped++
		}
	}
}

// Dropped reports how many messages slow subscribers have missed.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Subscribers reports the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// handleStream upgrades to a websocket and pushes every receipt, optionally
// filtered by ?caller=.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var filter *common.Address
	if raw := strings.TrimSpace(r.URL.Query().Get("caller")); raw != "" {
		if !common.IsHexAddress(raw) {
			writeError(w, http.StatusBadRequest, "caller must be a hex address", "bad_request")
			return
		}
		addr := common.HexToAddress(raw)
		filter = &addr
	}
	// Subscribe before the handshake completes so nothing published after
	// the client sees the upgrade is missed.
	updates, cancel := s.hub.Subscribe()
	defer cancel()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	// Clients never send; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if filter != nil && msg.Receipt != nil && msg.Receipt.Caller != *filter {
				continue
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				if websocket.CloseStatus(err) == -1 {
					s.logger.Debug("stream write failed", "error", err)
				}
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg api.StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
