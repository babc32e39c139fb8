package model

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the spawn-time scaled stats of an enemy.
// Produced by internal/scale from a Template; immutable after spawn.
type Stats struct {
	MaxHealth  float64
	Damage     float64
	Speed      float64
	Experience float64
}

// Enemy is one live hostile entity.
//
// The record is owned by the registry; everything else holds the id only.
// Position, rotation and health are guarded by a mutex because the sync
// loop reads them while the tick loop writes. State, timers and one-shot
// flags are atomics; timers store unix-milli deadlines and are expired
// when now is past the stored value.
type Enemy struct {
	id        uint32
	archetype Archetype
	tmpl      *Template
	stats     Stats
	ownership Ownership

	mu       sync.RWMutex
	position Vec3
	rotation float64 // facing angle, radians
	health   float64

	state atomic.Int32 // EnemyState

	// Deadlines, UnixMilli. Zero means "not set".
	attackReadyAt  atomic.Int64
	knockbackUntil atomic.Int64
	stunUntil      atomic.Int64
	aggroUntil     atomic.Int64
	deathAnimUntil atomic.Int64

	// lastUpdatedAt is maintained for mirrored records only and feeds
	// the staleness sweep.
	lastUpdatedAt atomic.Int64

	// dropProcessed guarantees at-most-one loot resolution per enemy.
	dropProcessed atomic.Bool

	// hidden is set when the enemy is handed to the disposal queue, so it
	// vanishes from view before its resources are actually released.
	hidden atomic.Bool

	// Boss vertical position is write-once after the first successful
	// terrain resolution; later terrain queries are suppressed.
	heightLocked atomic.Bool
	lockedY      float64
}

// NewEnemy creates an enemy record with full health.
func NewEnemy(id uint32, tmpl *Template, stats Stats, ownership Ownership, pos Vec3) *Enemy {
	e := &Enemy{
		id:        id,
		archetype: tmpl.Archetype,
		tmpl:      tmpl,
		stats:     stats,
		ownership: ownership,
		position:  pos,
		health:    stats.MaxHealth,
	}
	e.state.Store(int32(StateIdle))
	return e
}

// ID returns the unique enemy id (immutable).
func (e *Enemy) ID() uint32 { return e.id }

// Archetype returns the archetype tag.
func (e *Enemy) Archetype() Archetype { return e.archetype }

// Template returns the archetype template resolved at spawn time.
func (e *Enemy) Template() *Template { return e.tmpl }

// Stats returns the scaled spawn-time stats.
func (e *Enemy) Stats() Stats { return e.stats }

// IsBoss reports whether the enemy uses a boss archetype.
func (e *Enemy) IsBoss() bool { return e.tmpl.IsBoss() }

// Ownership returns who decides outcomes for this enemy.
func (e *Enemy) Ownership() Ownership { return e.ownership }

// IsMirrored reports whether the enemy is a local shadow of a remote authority.
func (e *Enemy) IsMirrored() bool { return e.ownership == OwnershipMirrored }

// Position returns current world position.
func (e *Enemy) Position() Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// SetPosition updates the position. For a boss with a locked height the
// vertical coordinate is pinned and only X/Z move.
func (e *Enemy) SetPosition(pos Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.heightLocked.Load() {
		pos.Y = e.lockedY
	}
	e.position = pos
}

// ResolveHeight applies a terrain-resolved vertical coordinate.
// For bosses the first successful resolution wins and all later ones are
// no-ops; for everyone else the height simply updates.
func (e *Enemy) ResolveHeight(y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.IsBoss() {
		if e.heightLocked.Load() {
			return
		}
		e.lockedY = y
		e.heightLocked.Store(true)
	}
	e.position.Y = y
}

// HeightLocked reports whether the boss vertical position has been pinned.
func (e *Enemy) HeightLocked() bool { return e.heightLocked.Load() }

// Rotation returns the facing angle in radians.
func (e *Enemy) Rotation() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rotation
}

// SetRotation sets the facing angle.
func (e *Enemy) SetRotation(r float64) {
	e.mu.Lock()
	e.rotation = r
	e.mu.Unlock()
}

// Health returns current health.
func (e *Enemy) Health() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

// MaxHealth returns the scaled health ceiling.
func (e *Enemy) MaxHealth() float64 { return e.stats.MaxHealth }

// SetHealth sets health clamped to [0, MaxHealth].
func (e *Enemy) SetHealth(h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = clampHealth(h, e.stats.MaxHealth)
}

// ReduceHealth subtracts damage and returns the remaining health.
func (e *Enemy) ReduceHealth(dmg float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = clampHealth(e.health-dmg, e.stats.MaxHealth)
	return e.health
}

func clampHealth(h, maxHealth float64) float64 {
	if h < 0 {
		return 0
	}
	if h > maxHealth {
		return maxHealth
	}
	return h
}

// State returns the current behavior state (atomic read).
func (e *Enemy) State() EnemyState {
	return EnemyState(e.state.Load())
}

// SetState sets the behavior state (atomic write).
func (e *Enemy) SetState(s EnemyState) {
	e.state.Store(int32(s))
}

// BeginDying transitions into Dying exactly once. Returns false if the
// enemy is already Dying or Removed, making repeated death calls no-ops.
func (e *Enemy) BeginDying(animUntil time.Time) bool {
	for {
		cur := e.state.Load()
		if EnemyState(cur).IsTerminal() {
			return false
		}
		if e.state.CompareAndSwap(cur, int32(StateDying)) {
			e.deathAnimUntil.Store(animUntil.UnixMilli())
			return true
		}
	}
}

// ForceRemoved marks the enemy terminal regardless of current state.
// Used by the removal batch so an enemy is collected at most once.
func (e *Enemy) ForceRemoved() {
	e.state.Store(int32(StateRemoved))
}

// DeathAnimExpired reports whether the death-animation window has elapsed.
func (e *Enemy) DeathAnimExpired(now time.Time) bool {
	until := e.deathAnimUntil.Load()
	return until != 0 && now.UnixMilli() >= until
}

// AttackReady reports whether the attack cooldown has elapsed.
func (e *Enemy) AttackReady(now time.Time) bool {
	return now.UnixMilli() >= e.attackReadyAt.Load()
}

// SetAttackReadyAt stores the next moment the enemy may attack.
func (e *Enemy) SetAttackReadyAt(t time.Time) {
	e.attackReadyAt.Store(t.UnixMilli())
}

// Knockback puts the enemy into Knockback until the given deadline.
func (e *Enemy) Knockback(until time.Time) {
	e.knockbackUntil.Store(until.UnixMilli())
	e.state.Store(int32(StateKnockback))
}

// InKnockback reports whether the knockback timer is still running.
func (e *Enemy) InKnockback(now time.Time) bool {
	return now.UnixMilli() < e.knockbackUntil.Load()
}

// Stun puts the enemy into Stunned until the given deadline.
func (e *Enemy) Stun(until time.Time) {
	e.stunUntil.Store(until.UnixMilli())
	e.state.Store(int32(StateStunned))
}

// IsStunned reports whether the stun timer is still running.
func (e *Enemy) IsStunned(now time.Time) bool {
	return now.UnixMilli() < e.stunUntil.Load()
}

// RefreshAggro extends the sticky-pursuit window.
func (e *Enemy) RefreshAggro(until time.Time) {
	e.aggroUntil.Store(until.UnixMilli())
}

// HasAggro reports whether the sticky-pursuit window is still open.
func (e *Enemy) HasAggro(now time.Time) bool {
	return now.UnixMilli() < e.aggroUntil.Load()
}

// Touch records an authoritative update for a mirrored record.
func (e *Enemy) Touch(now time.Time) {
	e.lastUpdatedAt.Store(now.UnixMilli())
}

// LastUpdatedAt returns the last authoritative update time (zero if never).
func (e *Enemy) LastUpdatedAt() time.Time {
	ms := e.lastUpdatedAt.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// MarkDropProcessed flips the drop guard. Returns true only for the first
// caller; loot is resolved at most once per enemy.
func (e *Enemy) MarkDropProcessed() bool {
	return e.dropProcessed.CompareAndSwap(false, true)
}

// DropProcessed reports whether loot has already been resolved.
func (e *Enemy) DropProcessed() bool { return e.dropProcessed.Load() }

// Hide flags the enemy as visually gone while awaiting disposal.
func (e *Enemy) Hide() { e.hidden.Store(true) }

// IsHidden reports whether the enemy has been hidden pending disposal.
func (e *Enemy) IsHidden() bool { return e.hidden.Load() }

// IsDead reports whether the enemy is in a terminal state.
func (e *Enemy) IsDead() bool { return e.State().IsTerminal() }
