package mirror

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

// Publisher serializes the authoritative enemy population for broadcast.
// Runs on the host only.
type Publisher struct {
	registry *world.Registry
	link     PeerLink
	session  uuid.UUID
}

// NewPublisher creates a snapshot publisher with a fresh session id.
func NewPublisher(registry *world.Registry, link PeerLink) *Publisher {
	return &Publisher{
		registry: registry,
		link:     link,
		session:  uuid.New(),
	}
}

// Session returns the host session id stamped on every snapshot.
func (p *Publisher) Session() uuid.UUID { return p.session }

// BuildSnapshot captures the current population. Enemies with non-finite
// positions are silently omitted rather than erroring; hidden enemies
// (awaiting disposal) are skipped because they are already visually gone.
func (p *Publisher) BuildSnapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Session: p.session,
		SentAt:  now.UnixMilli(),
		Enemies: make(map[uint32]EnemyEntry),
	}

	p.registry.Range(func(e *model.Enemy) bool {
		if e.IsHidden() {
			return true
		}
		pos := e.Position()
		if !pos.IsFinite() {
			return true
		}
		snap.Enemies[e.ID()] = EnemyEntry{
			ID:        e.ID(),
			X:         pos.X,
			Y:         pos.Y,
			Z:         pos.Z,
			Health:    e.Health(),
			Archetype: int32(e.Archetype()),
			Boss:      e.IsBoss(),
		}
		return true
	})

	return snap
}

// Publish broadcasts the current snapshot to all peers.
func (p *Publisher) Publish(now time.Time) error {
	snap := p.BuildSnapshot(now)

	frame, err := Encode(MsgEnemySnapshot, snap)
	if err != nil {
		return err
	}
	if err := p.link.Broadcast(frame); err != nil {
		return fmt.Errorf("broadcasting snapshot: %w", err)
	}

	slog.Debug("snapshot published", "enemies", len(snap.Enemies))
	return nil
}
