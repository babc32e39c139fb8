package mirror

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/spawn"
	"github.com/duskforge/revenant/internal/world"
)

// DiscardFunc hands a removed mirrored enemy to the disposal pipeline so its
// resource teardown stays frame-rate bounded.
type DiscardFunc func(*model.Enemy)

// Reconciler merges authoritative snapshots into the local registry on the
// mirrored side and garbage-collects records that stop receiving updates.
type Reconciler struct {
	cfg      config.Mirror
	registry *world.Registry
	factory  *spawn.Factory
	terrain  world.Terrain
	discard  DiscardFunc

	zoneFn  func() model.ZoneID
	levelFn func() int

	// Apply runs in the inbound-message goroutine while SweepStale runs in
	// the tick goroutine; the session bookkeeping below is shared by both.
	mu             sync.Mutex
	session        uuid.UUID
	haveSession    bool
	lastSnapshotAt time.Time
}

// NewReconciler creates a snapshot reconciler. zoneFn/levelFn feed the
// local scaling of newly created shadow records.
func NewReconciler(
	cfg config.Mirror,
	registry *world.Registry,
	factory *spawn.Factory,
	terrain world.Terrain,
	discard DiscardFunc,
	zoneFn func() model.ZoneID,
	levelFn func() int,
) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		registry: registry,
		factory:  factory,
		terrain:  terrain,
		discard:  discard,
		zoneFn:   zoneFn,
		levelFn:  levelFn,
	}
}

// Apply merges one incoming snapshot.
//
// Creation uses the same construction path as local spawning, tagged
// Mirrored. Updates move position (with local terrain re-resolution for
// non-boss entities so they don't snap through ground seams) and health.
// Mirrored records absent from the snapshot are removed immediately: the
// authority no longer knows them.
func (r *Reconciler) Apply(snap Snapshot, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.haveSession && snap.Session != r.session {
		// New host session: hard desync, not per-entity reconciliation.
		slog.Warn("host session changed, clearing mirrored state",
			"old", r.session, "new", snap.Session)
		r.clearMirrored()
	}
	r.session = snap.Session
	r.haveSession = true
	r.lastSnapshotAt = now

	for id, entry := range snap.Enemies {
		pos := model.NewVec3(entry.X, entry.Y, entry.Z)
		if !pos.IsFinite() || math.IsNaN(entry.Health) {
			continue
		}

		if e, ok := r.registry.Get(id); ok {
			if !e.IsMirrored() {
				continue
			}
			r.applyEntry(e, pos, entry.Health, now)
			continue
		}

		e, err := r.factory.Create(
			model.Archetype(entry.Archetype),
			id,
			pos,
			model.OwnershipMirrored,
			r.zoneFn(),
			r.levelFn(),
		)
		if err != nil {
			slog.Warn("failed to create mirrored enemy", "id", id, "error", err)
			continue
		}
		e.SetHealth(entry.Health)
		e.Touch(now)

		slog.Debug("mirrored enemy created", "id", id, "archetype", entry.Archetype)
	}

	// Drop every mirrored record the authority no longer reports.
	r.registry.Range(func(e *model.Enemy) bool {
		if !e.IsMirrored() {
			return true
		}
		if _, ok := snap.Enemies[e.ID()]; !ok {
			r.remove(e, "absent from snapshot")
		}
		return true
	})
}

func (r *Reconciler) applyEntry(e *model.Enemy, pos model.Vec3, health float64, now time.Time) {
	// Non-boss heights are re-resolved locally to avoid visual snapping;
	// boss heights are pinned by their first resolution.
	if !e.IsBoss() {
		if h, ok := r.terrain.HeightAt(pos.X, pos.Z); ok {
			pos.Y = h + e.Template().HeightOffset
		} else {
			pos.Y = e.Position().Y
		}
	}
	e.SetPosition(pos)
	e.SetHealth(health)
	e.Touch(now)

	if health <= 0 && !e.IsDead() {
		e.SetState(model.StateDying)
	}
}

// SweepStale removes mirrored records that stopped receiving updates.
// Independent of snapshot arrival: a single dropped entity goes stale on
// its own timer, while total snapshot silence beyond the desync window
// clears everything at once.
func (r *Reconciler) SweepStale(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.haveSession {
		return
	}

	if !r.lastSnapshotAt.IsZero() && now.Sub(r.lastSnapshotAt) > r.cfg.DesyncAfter {
		slog.Warn("connection lost, clearing all mirrored enemies",
			"silence", now.Sub(r.lastSnapshotAt))
		r.clearMirrored()
		r.haveSession = false
		return
	}

	r.registry.Range(func(e *model.Enemy) bool {
		if !e.IsMirrored() {
			return true
		}
		last := e.LastUpdatedAt()
		if !last.IsZero() && now.Sub(last) > r.cfg.StaleAfter {
			r.remove(e, "stale")
		}
		return true
	})
}

func (r *Reconciler) clearMirrored() {
	r.registry.Range(func(e *model.Enemy) bool {
		if e.IsMirrored() {
			r.remove(e, "desync clear")
		}
		return true
	})
}

func (r *Reconciler) remove(e *model.Enemy, reason string) {
	if _, ok := r.registry.Remove(e.ID()); !ok {
		return
	}
	e.ForceRemoved()
	if r.discard != nil {
		r.discard(e)
	}
	slog.Debug("mirrored enemy removed", "id", e.ID(), "reason", reason)
}
