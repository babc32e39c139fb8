// Package reaper tears enemies down in two phases: terminal records are
// collected into a removal batch whose side effects run exactly once, then
// resource release drains from a queue at a bounded rate per tick so a mass
// death never stalls a frame.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/duskforge/revenant/internal/ai"
	"github.com/duskforge/revenant/internal/drop"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/spawn"
	"github.com/duskforge/revenant/internal/world"
)

// Disposer releases the graphical/resource footprint of an enemy.
// The real implementation lives with the renderer; nil is tolerated.
type Disposer interface {
	Release(e *model.Enemy)
}

// EncounterStore persists combat outcomes. Writes are best-effort: a
// failure logs a warning and never blocks the tick. Nil disables persistence.
type EncounterStore interface {
	RecordKill(ctx context.Context, e *model.Enemy, playerLevel int) error
	SaveKillCounter(ctx context.Context, n int) error
}

// Manager owns the removal batch and the disposal queue. Both are simple
// append/drain structures consumed once per tick by the session that owns
// them; nothing else mutates them.
type Manager struct {
	registry *world.Registry
	aiMgr    *ai.Manager
	spawner  *spawn.Manager // nil on the mirrored side
	drops    *drop.Resolver
	quests   model.QuestTracker
	store    EncounterStore
	disposer Disposer
	levelFn  func() int

	maxPerTick int

	batch   []*model.Enemy
	batched map[uint32]struct{} // ids in the batch, de-duplication guard
	queue   []*model.Enemy
}

// NewManager creates a removal/disposal manager. spawner, quests, store and
// disposer may each be nil; side effects they back are skipped.
func NewManager(
	registry *world.Registry,
	aiMgr *ai.Manager,
	spawner *spawn.Manager,
	drops *drop.Resolver,
	quests model.QuestTracker,
	store EncounterStore,
	disposer Disposer,
	levelFn func() int,
	maxPerTick int,
) *Manager {
	if maxPerTick <= 0 {
		maxPerTick = 5
	}
	return &Manager{
		registry:   registry,
		aiMgr:      aiMgr,
		spawner:    spawner,
		drops:      drops,
		quests:     quests,
		store:      store,
		disposer:   disposer,
		levelFn:    levelFn,
		maxPerTick: maxPerTick,
		batched:    make(map[uint32]struct{}),
	}
}

// Tick runs collection, batch processing and one disposal drain.
func (m *Manager) Tick(ctx context.Context, now time.Time) {
	m.collect(now)
	m.processBatch(ctx, now)
	m.drainDisposals()
}

// collect pushes every record whose death-animation window has elapsed into
// the removal batch and force-flags it dead so it is batched at most once.
func (m *Manager) collect(now time.Time) {
	m.registry.Range(func(e *model.Enemy) bool {
		if e.State() != model.StateDying || !e.DeathAnimExpired(now) {
			return true
		}
		if _, seen := m.batched[e.ID()]; seen {
			return true
		}
		e.ForceRemoved()
		m.batched[e.ID()] = struct{}{}
		m.batch = append(m.batch, e)
		return true
	})
}

// processBatch applies the one-time death side effects and hands each
// record to the disposal queue. Quest/drop/counter effects run on the
// authoritative side only; the spawner being nil marks the mirrored side.
func (m *Manager) processBatch(ctx context.Context, now time.Time) {
	if len(m.batch) == 0 {
		return
	}

	level := 1
	if m.levelFn != nil {
		level = m.levelFn()
	}

	for _, e := range m.batch {
		m.registry.Remove(e.ID())
		m.aiMgr.Unregister(e.ID())
		delete(m.batched, e.ID())

		if !e.IsMirrored() {
			if m.quests != nil {
				m.quests.UpdateEnemyKill(e)
			}
			if m.drops != nil {
				m.drops.Resolve(e, level)
			}
			if m.spawner != nil {
				m.spawner.RecordKill(now, e)
			}
			if m.store != nil {
				if err := m.store.RecordKill(ctx, e, level); err != nil {
					slog.Warn("recording kill failed", "id", e.ID(), "error", err)
				}
				if m.spawner != nil {
					if err := m.store.SaveKillCounter(ctx, m.spawner.KillCounter()); err != nil {
						slog.Warn("saving kill counter failed", "error", err)
					}
				}
			}
		}

		m.EnqueueDisposal(e)
	}

	slog.Debug("removal batch processed", "count", len(m.batch))
	m.batch = m.batch[:0]
}

// EnqueueDisposal hides the enemy immediately and queues its resource
// release. Also the discard path for mirrored records removed by the
// reconciler.
func (m *Manager) EnqueueDisposal(e *model.Enemy) {
	e.Hide()
	m.queue = append(m.queue, e)
}

// drainDisposals releases at most maxPerTick enemies, bounding per-frame
// teardown cost regardless of how many died simultaneously.
func (m *Manager) drainDisposals() {
	n := min(m.maxPerTick, len(m.queue))
	if n == 0 {
		return
	}

	for _, e := range m.queue[:n] {
		if m.disposer != nil {
			m.disposer.Release(e)
		}
	}
	m.queue = m.queue[n:]

	if ai.IsDebugEnabled() {
		slog.Debug("disposals drained", "released", n, "pending", len(m.queue))
	}
}

// PendingDisposals returns the disposal queue length.
func (m *Manager) PendingDisposals() int {
	return len(m.queue)
}
