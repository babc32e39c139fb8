package mirror

import (
	"log/slog"
	"sync"

	"github.com/duskforge/revenant/internal/model"
)

// RemotePlayer is a thin Target proxy for a player on another process.
// Position is fed by inbound player-state updates; TakeDamage and
// GainExperience route through the peer link instead of mutating locally.
type RemotePlayer struct {
	id   string
	link PeerLink

	mu       sync.RWMutex
	position model.Vec3
	level    int
}

// NewRemotePlayer creates a proxy for a remote peer.
func NewRemotePlayer(id string, link PeerLink, pos model.Vec3, level int) *RemotePlayer {
	return &RemotePlayer{id: id, link: link, position: pos, level: level}
}

// ID returns the remote peer id.
func (p *RemotePlayer) ID() string { return p.id }

// Position returns the last known remote position.
func (p *RemotePlayer) Position() model.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// UpdatePosition records a position update received from the peer.
func (p *RemotePlayer) UpdatePosition(pos model.Vec3) {
	if !pos.IsFinite() {
		return
	}
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
}

// TakeDamage sends a damage message to the owning peer. Delivery failures
// are logged and dropped; the authoritative health lives on the peer.
func (p *RemotePlayer) TakeDamage(amount float64) {
	frame, err := Encode(MsgPlayerDamage, PlayerDamage{PlayerID: p.id, Amount: amount})
	if err != nil {
		slog.Warn("encoding player damage", "peer", p.id, "error", err)
		return
	}
	if err := p.link.SendToPeer(p.id, frame); err != nil {
		slog.Warn("sending player damage", "peer", p.id, "error", err)
	}
}

// GainExperience sends an experience share message to the owning peer.
func (p *RemotePlayer) GainExperience(amount float64) {
	frame, err := Encode(MsgExpShare, ExpShare{PlayerID: p.id, Amount: amount})
	if err != nil {
		slog.Warn("encoding exp share", "peer", p.id, "error", err)
		return
	}
	if err := p.link.SendToPeer(p.id, frame); err != nil {
		slog.Warn("sending exp share", "peer", p.id, "error", err)
	}
}

// Level returns the last known remote player level.
func (p *RemotePlayer) Level() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}
