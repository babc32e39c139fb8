// Package scale turns archetype base stats into spawn-time stats.
//
// The transform is a pure function: same template and inputs always produce
// the same stats. Randomness (zone choice, boss selection) is resolved by
// the caller before this package is involved.
package scale

import (
	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/model"
)

// Inputs carries everything the multiplier chains depend on.
type Inputs struct {
	Scaling     config.Scaling
	Zone        model.ZoneID
	PlayerLevel int
}

// LevelFactor returns the level scaling multiplier for a player level.
// Level 1 is the 1.0 baseline; levels below 1 are treated as 1.
func LevelFactor(s config.Scaling, playerLevel int) float64 {
	if playerLevel < 1 {
		playerLevel = 1
	}
	return 1 + s.LevelFactor*float64(playerLevel-1)
}

// classBonus returns the flat multiplier for elite/champion/boss archetypes.
func classBonus(s config.Scaling, class model.ArchetypeClass) float64 {
	switch class {
	case model.ClassElite:
		return s.EliteBonus
	case model.ClassChampion:
		return s.ChampionBonus
	case model.ClassBoss:
		return s.BossBonus
	default:
		return 1.0
	}
}

// Apply composes the multiplier chains onto template base stats.
//
// health'     = base × combatBalance × difficultyHealth × zone × level × class
// damage'     = base × combatBalance × difficultyDamage × zone × level × class
// experience' = base × difficultyExperience × zone × level × class
func Apply(tmpl *model.Template, in Inputs) model.Stats {
	zone := in.Scaling.ZoneMultiplier(int32(in.Zone))
	level := LevelFactor(in.Scaling, in.PlayerLevel)
	class := classBonus(in.Scaling, tmpl.Class)

	return model.Stats{
		MaxHealth:  tmpl.Health * in.Scaling.CombatBalanceHealth * in.Scaling.DifficultyHealth * zone * level * class,
		Damage:     tmpl.Damage * in.Scaling.CombatBalanceDamage * in.Scaling.DifficultyDamage * zone * level * class,
		Speed:      tmpl.Speed,
		Experience: tmpl.Experience * in.Scaling.DifficultyExperience * zone * level * class,
	}
}
