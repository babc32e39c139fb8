// Package transport provides a websocket implementation of the peer link
// consumed by the mirror layer. The host runs a Hub; clients Dial it.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Inbound is one message received from a peer.
type Inbound struct {
	PeerID string
	Data   []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ErrUnknownPeer is returned when sending to a peer that is not connected.
var ErrUnknownPeer = errors.New("unknown peer")

// Hub accepts websocket peers on the host side and fans messages in/out.
// Implements mirror.PeerLink.
type Hub struct {
	mu       sync.RWMutex
	peers    map[string]*peer
	inbound  chan Inbound
	departed chan string
}

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		peers:    make(map[string]*peer),
		inbound:  make(chan Inbound, 256),
		departed: make(chan string, 64),
	}
}

// ServeWS upgrades an HTTP request into a peer connection. The peer id
// comes from the "id" query parameter, or is generated.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = uuid.NewString()
	}

	p := &peer{id: id, conn: conn, send: make(chan []byte, 256)}

	h.mu.Lock()
	if old, ok := h.peers[id]; ok {
		close(old.send)
	}
	h.peers[id] = p
	h.mu.Unlock()

	slog.Info("peer connected", "peer", id, "remote", r.RemoteAddr)

	go h.writePump(p)
	go h.readPump(p)
}

func (h *Hub) readPump(p *peer) {
	defer h.drop(p)
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case h.inbound <- Inbound{PeerID: p.id, Data: msg}:
		default:
			// Inbound backlog full; drop rather than stall the socket.
			slog.Warn("inbound queue full, dropping message", "peer", p.id)
		}
	}
}

func (h *Hub) writePump(p *peer) {
	defer p.conn.Close()
	for msg := range p.send {
		if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	gone := false
	if cur, ok := h.peers[p.id]; ok && cur == p {
		delete(h.peers, p.id)
		close(p.send)
		gone = true
	}
	h.mu.Unlock()
	p.conn.Close()

	// Only the peer's current connection reports the departure; a replaced
	// connection dying later must not evict its successor's state.
	if gone {
		select {
		case h.departed <- p.id:
		default:
			slog.Warn("departure queue full, dropping notification", "peer", p.id)
		}
		slog.Info("peer disconnected", "peer", p.id)
	}
}

// Broadcast queues a message to every connected peer. Slow peers have the
// message dropped instead of blocking the tick.
func (h *Hub) Broadcast(msg []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.peers {
		select {
		case p.send <- msg:
		default:
		}
	}
	return nil
}

// SendToPeer queues a message to one peer.
func (h *Hub) SendToPeer(peerID string, msg []byte) error {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("sending to %s: %w", peerID, ErrUnknownPeer)
	}
	select {
	case p.send <- msg:
		return nil
	default:
		return fmt.Errorf("sending to %s: send queue full", peerID)
	}
}

// Inbound returns the stream of messages received from peers.
func (h *Hub) Inbound() <-chan Inbound {
	return h.inbound
}

// Departures returns the stream of peer ids whose connection dropped.
func (h *Hub) Departures() <-chan string {
	return h.departed
}

// PeerCount returns the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
