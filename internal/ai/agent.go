package ai

import (
	"log/slog"
	"math"
	"time"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

// TargetsFunc returns the current attackable targets: the local player
// first, then remote players in registration order. The ordering is the
// tie-break for equidistant targets.
// Injected by the session to avoid an import cycle with the mirror layer.
type TargetsFunc func() []model.Target

// Ability damage multipliers relative to the scaled base damage.
const (
	shadowBoltDamageMult = 0.8
	groundSlamDamageMult = 1.5
)

// Agent runs the state machine for one authoritative enemy.
//
// State machine: Idle → Chasing → Attacking, with Knockback/Stunned as
// interrupting states and Dying → Removed as terminal. Accessed only from
// the owning session's tick except for damage/knockback entry points, which
// are themselves serialized by the session.
type Agent struct {
	enemy  *model.Enemy
	combat config.Combat

	targets TargetsFunc
	terrain world.Terrain
	sink    model.EventSink

	// Ability cooldowns: map[AbilityKind]readyAtUnixMilli.
	// Only touched from Tick, no locking needed.
	abilityReady map[model.AbilityKind]int64

	// contributors collects every target that damaged this enemy, for the
	// even experience split on death.
	contributors map[string]model.Target

	// immuneUntil is the post-spawn grace period before target acquisition.
	immuneUntil time.Time
}

// NewAgent creates the state-machine controller for an enemy.
func NewAgent(
	enemy *model.Enemy,
	combat config.Combat,
	targets TargetsFunc,
	terrain world.Terrain,
	sink model.EventSink,
	immuneUntil time.Time,
) *Agent {
	return &Agent{
		enemy:        enemy,
		combat:       combat,
		targets:      targets,
		terrain:      terrain,
		sink:         sink,
		abilityReady: make(map[model.AbilityKind]int64),
		contributors: make(map[string]model.Target),
	}
}

// Enemy returns the controlled enemy record.
func (a *Agent) Enemy() *model.Enemy { return a.enemy }

// Tick advances the state machine by one frame.
func (a *Agent) Tick(now time.Time, delta float64) {
	e := a.enemy
	if e.IsDead() {
		return
	}

	// Interrupting states suspend all targeting and combat logic; only
	// terrain smoothing runs until the timer expires.
	switch e.State() {
	case model.StateKnockback:
		if e.InKnockback(now) {
			a.resolveTerrain()
			return
		}
	case model.StateStunned:
		if e.IsStunned(now) {
			a.resolveTerrain()
			return
		}
	}

	if now.Before(a.immuneUntil) {
		a.resolveTerrain()
		return
	}

	target, dist := a.acquireTarget()
	if target == nil {
		e.SetState(model.StateIdle)
		a.resolveTerrain()
		return
	}

	tmpl := e.Template()

	// Boss special abilities pre-empt the normal attack branch.
	if tmpl.IsBoss() && a.tryAbility(now, target, dist) {
		a.resolveTerrain()
		return
	}

	switch {
	case dist <= tmpl.AttackRange:
		e.SetState(model.StateAttacking)
		a.faceTarget(target)
		if e.AttackReady(now) {
			a.attack(now, target)
		}

	case dist <= tmpl.DetectRange || e.HasAggro(now):
		if dist <= tmpl.DetectRange {
			// Detection is an aggression event: keeps pursuit sticky
			// once the target slips out of range.
			e.RefreshAggro(now.Add(a.combat.AggroDuration))
		}
		e.SetState(model.StateChasing)
		a.moveToward(target, delta)

	default:
		e.SetState(model.StateIdle)
	}

	a.resolveTerrain()
}

// acquireTarget picks the nearest target. The local player comes first in
// the slice, so it wins distance ties.
func (a *Agent) acquireTarget() (model.Target, float64) {
	if a.targets == nil {
		return nil, 0
	}

	pos := a.enemy.Position()
	var best model.Target
	bestDist := math.Inf(1)

	for _, t := range a.targets() {
		tp := t.Position()
		if !tp.IsFinite() {
			continue
		}
		if d := pos.Distance(tp); d < bestDist {
			best = t
			bestDist = d
		}
	}

	return best, bestDist
}

func (a *Agent) attack(now time.Time, target model.Target) {
	e := a.enemy
	target.TakeDamage(e.Stats().Damage)
	e.SetAttackReadyAt(now.Add(time.Duration(float64(time.Second) / e.Template().AttackSpeed)))
	e.RefreshAggro(now.Add(a.combat.AggroDuration))

	if IsDebugEnabled() {
		slog.Debug("enemy attacked",
			"id", e.ID(),
			"archetype", e.Template().Name,
			"target", target.ID(),
			"damage", e.Stats().Damage)
	}
}

// tryAbility fires at most one boss ability, each gated by its own cooldown.
// Returns true when an ability pre-empted the normal attack branch.
func (a *Agent) tryAbility(now time.Time, target model.Target, dist float64) bool {
	e := a.enemy
	tmpl := e.Template()
	nowMs := now.UnixMilli()

	for _, kind := range tmpl.Abilities {
		if readyAt, ok := a.abilityReady[kind]; ok && nowMs < readyAt {
			continue
		}

		var cooldown time.Duration
		switch kind {
		case model.AbilityShadowBolt:
			if dist > a.combat.RangedAbilityRange || dist <= tmpl.AttackRange {
				continue
			}
			target.TakeDamage(e.Stats().Damage * shadowBoltDamageMult)
			cooldown = a.combat.RangedAbilityCooldown

		case model.AbilityGroundSlam:
			if dist > a.combat.CloseAbilityRange {
				continue
			}
			target.TakeDamage(e.Stats().Damage * groundSlamDamageMult)
			cooldown = a.combat.CloseAbilityCooldown

		default:
			continue
		}

		a.faceTarget(target)
		a.abilityReady[kind] = nowMs + cooldown.Milliseconds()
		e.RefreshAggro(now.Add(a.combat.AggroDuration))
		a.rememberContributor(target)

		if IsDebugEnabled() {
			slog.Debug("boss ability fired",
				"id", e.ID(),
				"ability", kind,
				"target", target.ID(),
				"dist", dist)
		}
		return true
	}

	return false
}

// moveToward advances along the normalized vector to the target.
func (a *Agent) moveToward(target model.Target, delta float64) {
	e := a.enemy
	pos := e.Position()
	dir := target.Position().Sub(pos).Normalized()
	step := e.Stats().Speed * delta
	e.SetPosition(pos.Add(dir.Scale(step)))
	a.faceTarget(target)
}

func (a *Agent) faceTarget(target model.Target) {
	pos := a.enemy.Position()
	tp := target.Position()
	a.enemy.SetRotation(math.Atan2(tp.X-pos.X, tp.Z-pos.Z))
}

// resolveTerrain applies the per-tick terrain height query. Query failure
// keeps the previous height; bosses lock their height on first success.
func (a *Agent) resolveTerrain() {
	e := a.enemy
	if e.IsBoss() && e.HeightLocked() {
		return
	}
	pos := e.Position()
	h, ok := a.terrain.HeightAt(pos.X, pos.Z)
	if !ok {
		return
	}
	e.ResolveHeight(h + e.Template().HeightOffset)
}

// ApplyDamage resolves incoming raw damage against the archetype defense,
// using reduction = defense / (defense + 100). The result is rounded and
// floored at 1, so any hit always costs at least one point of health.
// Returns the damage actually dealt (0 when already dead).
func (a *Agent) ApplyDamage(now time.Time, raw float64, attacker model.Target) float64 {
	e := a.enemy
	if e.IsDead() || raw < 0 {
		return 0
	}

	defense := e.Template().Defense
	reduction := defense / (defense + 100)
	dmg := math.Round(raw * (1 - reduction))
	if dmg < 1 {
		dmg = 1
	}

	a.rememberContributor(attacker)

	// Damage cancels spawn immunity and refreshes pursuit.
	a.immuneUntil = time.Time{}
	e.RefreshAggro(now.Add(a.combat.AggroDuration))

	if e.ReduceHealth(dmg) <= 0 {
		a.die(now)
	}
	return dmg
}

// ApplyKnockback puts the enemy into Knockback and displaces it along the
// given direction. Bosses incur the state and timer but are not displaced.
func (a *Agent) ApplyKnockback(now time.Time, dir model.Vec3) {
	e := a.enemy
	if e.IsDead() {
		return
	}

	e.Knockback(now.Add(a.combat.KnockbackDuration))

	if !e.IsBoss() {
		e.SetPosition(e.Position().Add(dir.Normalized().Scale(a.combat.KnockbackDistance)))
		a.resolveTerrain()
	}
}

// ApplyStun puts the enemy into Stunned for the configured duration.
func (a *Agent) ApplyStun(now time.Time) {
	if a.enemy.IsDead() {
		return
	}
	a.enemy.Stun(now.Add(a.combat.StunDuration))
}

func (a *Agent) rememberContributor(t model.Target) {
	if t == nil {
		return
	}
	a.contributors[t.ID()] = t
}

// die transitions into Dying exactly once and awards experience split
// evenly across every contributor. Bosses get a short fixed animation
// window to bound worst-case teardown; everyone else uses the archetype's
// eased window.
func (a *Agent) die(now time.Time) {
	e := a.enemy

	window := time.Duration(e.Template().DeathAnimSeconds * float64(time.Second))
	if !e.BeginDying(now.Add(window)) {
		return
	}

	if len(a.contributors) > 0 {
		share := e.Stats().Experience / float64(len(a.contributors))
		for _, t := range a.contributors {
			t.GainExperience(share)
		}
	}

	model.Notify(a.sink, func(s model.EventSink) { s.EnemyDied(e) })

	slog.Info("enemy died",
		"id", e.ID(),
		"archetype", e.Template().Name,
		"boss", e.IsBoss(),
		"contributors", len(a.contributors))
}
