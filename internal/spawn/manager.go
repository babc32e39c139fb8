package spawn

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/duskforge/revenant/internal/ai"
	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

// Environment is what the scheduler queries from its surroundings each
// decision: player location/facing for placement, the current zone for
// archetype picks, the player level for scaling, and the intensity
// multiplier of any temporary world effect driving wave pressure.
type Environment interface {
	PlayerPosition() model.Vec3
	PlayerFacing() model.Vec3
	CurrentZone() model.ZoneID
	PlayerLevel() int
	Intensity() float64
}

// Manager decides when, where and what to spawn. It only ever runs on the
// authoritative side; mirrored processes create enemies exclusively through
// snapshot application.
type Manager struct {
	cfg      config.Spawning
	factory  *Factory
	registry *world.Registry
	ids      *world.IDGenerator
	aiMgr    *ai.Manager
	env      Environment
	sink     model.EventSink

	// Cumulative non-boss kill counter backing the boss trigger.
	// Exposed for persistence restore across host restarts.
	killCounter atomic.Int64

	spawnTimer float64 // seconds accumulated toward the next timed spawn

	// Proximity wave bookkeeping.
	waveAnchor   model.Vec3 // player position when distance tracking (re)started
	waveAnchorOK bool
	movedSince   float64
	lastWaveAt   time.Time

	// Swapped in tests for deterministic scheduling decisions.
	randFloat func() float64
	randIntN  func(int) int
}

// NewManager creates a spawn scheduler.
func NewManager(
	cfg config.Spawning,
	factory *Factory,
	registry *world.Registry,
	ids *world.IDGenerator,
	aiMgr *ai.Manager,
	env Environment,
	sink model.EventSink,
) *Manager {
	return &Manager{
		cfg:       cfg,
		factory:   factory,
		registry:  registry,
		ids:       ids,
		aiMgr:     aiMgr,
		env:       env,
		sink:      sink,
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
	}
}

// KillCounter returns the cumulative non-boss kill count toward the next boss.
func (m *Manager) KillCounter() int {
	return int(m.killCounter.Load())
}

// RestoreKillCounter seeds the counter from persisted state at startup.
func (m *Manager) RestoreKillCounter(n int) {
	m.killCounter.Store(int64(n))
}

// Tick advances all spawn schedules by one frame.
func (m *Manager) Tick(now time.Time, delta float64) {
	m.trackMovement(now)

	m.spawnTimer += delta
	if m.spawnTimer < m.cfg.Interval.Seconds() {
		m.maybeRepeatWave(now)
		return
	}
	m.spawnTimer = 0

	if m.registry.Count() >= m.cfg.MaxEnemies {
		m.maybeRepeatWave(now)
		return
	}

	if m.randFloat() < m.cfg.DangerousGroupChance {
		m.spawnDangerousGroup(now)
	} else {
		m.spawnTimed(now)
	}

	m.maybeRepeatWave(now)
}

// RecordKill feeds the boss trigger. Called once per authoritative non-boss
// death during batch removal. When the counter reaches the threshold it
// resets and exactly one boss spawn fires.
func (m *Manager) RecordKill(now time.Time, e *model.Enemy) {
	if e.IsBoss() {
		return
	}

	n := m.killCounter.Add(1)
	if m.cfg.BossKillThreshold <= 0 || n < int64(m.cfg.BossKillThreshold) {
		return
	}

	m.killCounter.Store(0)
	m.spawnBoss(now)
}

// spawnTimed places one zone-appropriate enemy at a randomized ring
// distance from the player.
func (m *Manager) spawnTimed(now time.Time) {
	arch, ok := data.ZoneArchetype(m.env.CurrentZone())
	if !ok {
		slog.Warn("timed spawn skipped, empty archetype catalog")
		return
	}

	pos := m.ringPosition(m.env.PlayerPosition(), m.cfg.RingMin, m.cfg.RingMax)
	if _, err := m.spawnOne(arch, pos, now); err != nil {
		slog.Warn("timed spawn failed", "archetype", arch, "error", err)
	}
}

// spawnDangerousGroup bursts a tight cluster of one archetype in front of
// the player's facing direction.
func (m *Manager) spawnDangerousGroup(now time.Time) {
	arch, ok := data.ZoneArchetype(m.env.CurrentZone())
	if !ok {
		return
	}

	count := m.cfg.DangerousGroupMin
	if spread := m.cfg.DangerousGroupMax - m.cfg.DangerousGroupMin; spread > 0 {
		count += m.randIntN(spread + 1)
	}

	playerPos := m.env.PlayerPosition()
	facing := m.env.PlayerFacing().Normalized()
	center := playerPos.Add(facing.Scale(m.cfg.RingMin))

	spawned := 0
	for range count {
		if m.registry.Count() >= m.cfg.MaxEnemies {
			break
		}
		offset := model.NewVec3(
			(m.randFloat()*2-1)*m.cfg.DangerousGroupSpread,
			0,
			(m.randFloat()*2-1)*m.cfg.DangerousGroupSpread,
		)
		if _, err := m.spawnOne(arch, center.Add(offset), now); err != nil {
			continue
		}
		spawned++
	}

	slog.Info("dangerous group spawned", "archetype", arch, "requested", count, "spawned", spawned)
}

// spawnBoss selects a boss preferring the current zone and places it at the
// configured distance from the player.
func (m *Manager) spawnBoss(now time.Time) {
	arch, ok := data.ZoneBoss(m.env.CurrentZone())
	if !ok {
		slog.Warn("boss spawn skipped, no boss archetypes registered")
		return
	}

	if m.registry.Count() >= m.cfg.MaxEnemies {
		slog.Warn("boss spawn skipped, at capacity", "archetype", arch)
		return
	}

	pos := m.ringPosition(m.env.PlayerPosition(), m.cfg.BossSpawnDistance, m.cfg.BossSpawnDistance)
	boss, err := m.spawnOne(arch, pos, now)
	if err != nil {
		slog.Warn("boss spawn failed", "archetype", arch, "error", err)
		return
	}

	model.Notify(m.sink, func(s model.EventSink) { s.BossSpawned(boss) })
	slog.Info("boss spawned", "id", boss.ID(), "archetype", boss.Template().Name)
}

// trackMovement accumulates player travel distance and fires a wave when
// the threshold is crossed.
func (m *Manager) trackMovement(now time.Time) {
	pos := m.env.PlayerPosition()
	if !pos.IsFinite() {
		return
	}
	if !m.waveAnchorOK {
		m.waveAnchor = pos
		m.waveAnchorOK = true
		return
	}

	m.movedSince += pos.HorizontalDistance(m.waveAnchor)
	m.waveAnchor = pos

	if m.movedSince >= m.cfg.WaveMoveThreshold {
		m.movedSince = 0
		m.spawnWave(now)
	}
}

// maybeRepeatWave repeats waves on a timer while a world effect holds the
// intensity multiplier above baseline.
func (m *Manager) maybeRepeatWave(now time.Time) {
	if m.env.Intensity() <= 1 || m.cfg.WaveRepeat <= 0 {
		return
	}
	if m.lastWaveAt.IsZero() || now.Sub(m.lastWaveAt) >= m.cfg.WaveRepeat {
		m.spawnWave(now)
	}
}

// spawnWave arranges groups of enemies around the player. Group count and
// size scale with the intensity multiplier.
func (m *Manager) spawnWave(now time.Time) {
	m.lastWaveAt = now

	intensity := m.env.Intensity()
	if intensity < 1 {
		intensity = 1
	}

	groups := int(math.Round(float64(m.cfg.WaveGroupCount) * intensity))
	perGroup := int(math.Round(float64(m.cfg.WaveGroupSize) * intensity))
	if groups <= 0 || perGroup <= 0 {
		return
	}

	playerPos := m.env.PlayerPosition()
	zone := m.env.CurrentZone()
	total := 0

	for g := range groups {
		arch, ok := data.ZoneArchetype(zone)
		if !ok {
			return
		}

		angle := 2 * math.Pi * float64(g) / float64(groups)
		center := playerPos.Add(model.NewVec3(
			math.Cos(angle)*m.cfg.WaveGroupRadius,
			0,
			math.Sin(angle)*m.cfg.WaveGroupRadius,
		))

		for range perGroup {
			if m.registry.Count() >= m.cfg.MaxEnemies {
				break
			}
			offset := model.NewVec3((m.randFloat()*2-1)*4, 0, (m.randFloat()*2-1)*4)
			if _, err := m.spawnOne(arch, center.Add(offset), now); err != nil {
				continue
			}
			total++
		}
	}

	if total > 0 {
		model.Notify(m.sink, func(s model.EventSink) { s.WaveSpawned(total) })
		slog.Info("wave spawned", "groups", groups, "enemies", total, "intensity", intensity)
	}
}

// spawnOne runs the shared construction path and registers the AI agent.
func (m *Manager) spawnOne(arch model.Archetype, pos model.Vec3, now time.Time) (*model.Enemy, error) {
	if m.registry.Count() >= m.cfg.MaxEnemies {
		return nil, ErrAtCapacity
	}

	e, err := m.factory.Create(
		arch,
		m.ids.Next(),
		pos,
		model.OwnershipAuthoritative,
		m.env.CurrentZone(),
		m.env.PlayerLevel(),
	)
	if err != nil {
		return nil, err
	}

	m.aiMgr.Register(e, now, m.cfg.ImmunityTime)
	model.Notify(m.sink, func(s model.EventSink) { s.EnemySpawned(e) })

	if ai.IsDebugEnabled() {
		slog.Debug("enemy spawned",
			"id", e.ID(),
			"archetype", e.Template().Name,
			"pos", pos,
			"active", m.registry.Count())
	}
	return e, nil
}

// ringPosition picks a random point on a ring around center.
func (m *Manager) ringPosition(center model.Vec3, minR, maxR float64) model.Vec3 {
	angle := m.randFloat() * 2 * math.Pi
	r := minR
	if maxR > minR {
		r += m.randFloat() * (maxR - minR)
	}
	return center.Add(model.NewVec3(math.Cos(angle)*r, 0, math.Sin(angle)*r))
}
