package ai

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

// Manager owns the state-machine agents of all authoritative enemies and
// advances them once per session tick. Mirrored enemies are never
// registered here: they are driven by incoming snapshots.
type Manager struct {
	combat  config.Combat
	targets TargetsFunc
	terrain world.Terrain
	sink    model.EventSink

	agents     sync.Map     // map[uint32]*Agent
	agentCount atomic.Int32 // cached count (O(1) access)

	ticks atomic.Int64 // total ticks, drives the position self-repair cadence
}

// NewManager creates an agent manager.
func NewManager(combat config.Combat, targets TargetsFunc, terrain world.Terrain, sink model.EventSink) *Manager {
	return &Manager{
		combat:  combat,
		targets: targets,
		terrain: terrain,
		sink:    sink,
	}
}

// Register creates and stores an agent for an authoritative enemy.
// immunity is the post-spawn target-acquisition grace period.
func (m *Manager) Register(e *model.Enemy, now time.Time, immunity time.Duration) *Agent {
	agent := NewAgent(e, m.combat, m.targets, m.terrain, m.sink, now.Add(immunity))
	m.agents.Store(e.ID(), agent)
	m.agentCount.Add(1)

	slog.Debug("AI agent registered", "id", e.ID(), "archetype", e.Template().Name)
	return agent
}

// Unregister drops the agent for an enemy id.
func (m *Manager) Unregister(id uint32) {
	if _, loaded := m.agents.LoadAndDelete(id); loaded {
		m.agentCount.Add(-1)
		slog.Debug("AI agent unregistered", "id", id)
	}
}

// Get returns the agent for an enemy id.
func (m *Manager) Get(id uint32) (*Agent, error) {
	value, ok := m.agents.Load(id)
	if !ok {
		return nil, fmt.Errorf("no agent for enemy %d", id)
	}
	return value.(*Agent), nil
}

// Count returns the number of registered agents (cached, O(1)).
func (m *Manager) Count() int {
	return int(m.agentCount.Load())
}

// TickAll advances every agent by one frame. Runs synchronously inside the
// session tick; no agent update blocks.
func (m *Manager) TickAll(now time.Time, delta float64) {
	count := 0
	m.agents.Range(func(_, value any) bool {
		value.(*Agent).Tick(now, delta)
		count++
		return true
	})

	if n := m.ticks.Add(1); m.combat.RepairEveryTicks > 0 && n%int64(m.combat.RepairEveryTicks) == 0 {
		m.repairPositions()
	}

	if count > 0 && IsDebugEnabled() {
		slog.Debug("AI tick completed", "agents", count)
	}
}

// repairPositions relocates enemies whose position went non-finite (physics
// jitter, bad upstream data) next to the local player instead of letting
// the record poison every distance computation.
func (m *Manager) repairPositions() {
	targets := m.targets()
	if len(targets) == 0 {
		return
	}
	anchor := targets[0].Position()
	if !anchor.IsFinite() {
		return
	}

	i := 0
	m.agents.Range(func(_, value any) bool {
		e := value.(*Agent).Enemy()
		if e.Position().IsFinite() {
			return true
		}
		i++
		offset := model.NewVec3(float64(3+i), 0, float64(3+i))
		e.SetPosition(anchor.Add(offset))
		slog.Warn("repaired invalid enemy position", "id", e.ID(), "archetype", e.Template().Name)
		return true
	})
}

// DamageEnemy routes incoming damage to the enemy's agent.
// Unknown ids are ignored (the enemy may already be disposed).
func (m *Manager) DamageEnemy(now time.Time, id uint32, raw float64, attacker model.Target) float64 {
	agent, err := m.Get(id)
	if err != nil {
		return 0
	}
	return agent.ApplyDamage(now, raw, attacker)
}

// KnockbackEnemy routes a knockback request to the enemy's agent.
func (m *Manager) KnockbackEnemy(now time.Time, id uint32, dir model.Vec3) {
	if agent, err := m.Get(id); err == nil {
		agent.ApplyKnockback(now, dir)
	}
}

// StunEnemy routes a stun request to the enemy's agent.
func (m *Manager) StunEnemy(now time.Time, id uint32) {
	if agent, err := m.Get(id); err == nil {
		agent.ApplyStun(now)
	}
}
