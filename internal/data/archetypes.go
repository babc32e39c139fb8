package data

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/duskforge/revenant/internal/model"
)

// Zone identifiers. Zones carry difficulty multipliers in config and an
// archetype association used by zone-appropriate spawn picks.
const (
	ZoneGraveMeadows model.ZoneID = iota
	ZoneAshenWastes
	ZoneSunkenCrypts
	ZoneObsidianPeaks
)

// ZoneName returns human-readable zone name.
func ZoneName(z model.ZoneID) string {
	switch z {
	case ZoneAshenWastes:
		return "Ashen Wastes"
	case ZoneSunkenCrypts:
		return "Sunken Crypts"
	case ZoneObsidianPeaks:
		return "Obsidian Peaks"
	default:
		return "Grave Meadows"
	}
}

// Archetype tags. The set is closed: behavior never inspects names,
// only registered template metadata.
const (
	ArchGhoul model.Archetype = iota + 1
	ArchSkeleton
	ArchWraith
	ArchHellhound
	ArchCryptStalker
	ArchAshRevenant
	ArchBoneColossus // boss
	ArchPlagueTitan  // boss
	ArchEmberLich    // boss
)

var (
	mu        sync.RWMutex
	catalog   = map[model.Archetype]*model.Template{}
	normals   []model.Archetype
	bosses    []model.Archetype
	catalogOK bool
)

// RegisterArchetype adds a template to the catalog. Later registrations of
// the same tag replace earlier ones (used by tests).
func RegisterArchetype(t *model.Template) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := catalog[t.Archetype]; !exists {
		if t.IsBoss() {
			bosses = append(bosses, t.Archetype)
		} else {
			normals = append(normals, t.Archetype)
		}
	}
	catalog[t.Archetype] = t
	catalogOK = true
}

// GetTemplate returns the template for an archetype, or nil if unknown.
func GetTemplate(a model.Archetype) *model.Template {
	mu.RLock()
	defer mu.RUnlock()
	return catalog[a]
}

// RandomArchetype returns a random registered non-boss archetype.
// Returns false only when the catalog is empty.
func RandomArchetype() (model.Archetype, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if len(normals) == 0 {
		return 0, false
	}
	return normals[rand.IntN(len(normals))], true
}

// ZoneArchetype returns a random non-boss archetype associated with the
// zone, falling back to any registered non-boss archetype.
func ZoneArchetype(zone model.ZoneID) (model.Archetype, bool) {
	mu.RLock()
	var candidates []model.Archetype
	for _, a := range normals {
		if catalog[a].InZone(zone) {
			candidates = append(candidates, a)
		}
	}
	mu.RUnlock()

	if len(candidates) > 0 {
		return candidates[rand.IntN(len(candidates))], true
	}
	return RandomArchetype()
}

// ZoneBoss returns a boss archetype preferring one associated with the zone,
// falling back to any registered boss.
func ZoneBoss(zone model.ZoneID) (model.Archetype, bool) {
	mu.RLock()
	var candidates []model.Archetype
	for _, a := range bosses {
		if catalog[a].InZone(zone) {
			candidates = append(candidates, a)
		}
	}
	all := make([]model.Archetype, len(bosses))
	copy(all, bosses)
	mu.RUnlock()

	if len(candidates) > 0 {
		return candidates[rand.IntN(len(candidates))], true
	}
	if len(all) == 0 {
		return 0, false
	}
	return all[rand.IntN(len(all))], true
}

// ResolveArchetype returns the template for the requested archetype, falling
// back to a random registered one when the tag is unknown. A spawn request
// never fails outright on a bad tag.
func ResolveArchetype(a model.Archetype) *model.Template {
	if t := GetTemplate(a); t != nil {
		return t
	}
	fallback, ok := RandomArchetype()
	if !ok {
		return nil
	}
	slog.Warn("unknown archetype, falling back to random", "requested", a, "fallback", fallback)
	return GetTemplate(fallback)
}

// Loaded reports whether any archetype has been registered.
func Loaded() bool {
	mu.RLock()
	defer mu.RUnlock()
	return catalogOK
}

// LoadArchetypes registers the built-in archetype set.
func LoadArchetypes() {
	templates := []*model.Template{
		{
			Archetype: ArchGhoul, Name: "Ghoul", Class: model.ClassNormal,
			Health: 60, Damage: 8, Defense: model.DefenseForTier(model.DefenseTierLight),
			Speed: 3.2, AttackRange: 1.8, DetectRange: 14, AttackSpeed: 1.0,
			Experience: 12, HeightOffset: 0.9, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneGraveMeadows, ZoneSunkenCrypts},
		},
		{
			Archetype: ArchSkeleton, Name: "Skeleton", Class: model.ClassNormal,
			Health: 45, Damage: 10, Defense: model.DefenseForTier(model.DefenseTierLight),
			Speed: 3.6, AttackRange: 2.0, DetectRange: 16, AttackSpeed: 1.2,
			Experience: 14, HeightOffset: 1.0, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneGraveMeadows, ZoneSunkenCrypts},
		},
		{
			Archetype: ArchWraith, Name: "Wraith", Class: model.ClassElite,
			Health: 90, Damage: 14, Defense: model.DefenseForTier(model.DefenseTierMedium),
			Speed: 4.2, AttackRange: 2.2, DetectRange: 20, AttackSpeed: 0.9,
			Experience: 30, HeightOffset: 1.4, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneSunkenCrypts, ZoneObsidianPeaks},
		},
		{
			Archetype: ArchHellhound, Name: "Hellhound", Class: model.ClassNormal,
			Health: 70, Damage: 12, Defense: model.DefenseForTier(model.DefenseTierMedium),
			Speed: 5.0, AttackRange: 1.6, DetectRange: 18, AttackSpeed: 1.4,
			Experience: 18, HeightOffset: 0.7, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneAshenWastes},
		},
		{
			Archetype: ArchCryptStalker, Name: "Crypt Stalker", Class: model.ClassChampion,
			Health: 140, Damage: 18, Defense: model.DefenseForTier(model.DefenseTierHeavy),
			Speed: 3.8, AttackRange: 2.4, DetectRange: 22, AttackSpeed: 0.8,
			Experience: 55, HeightOffset: 1.1, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneSunkenCrypts},
		},
		{
			Archetype: ArchAshRevenant, Name: "Ash Revenant", Class: model.ClassElite,
			Health: 110, Damage: 16, Defense: model.DefenseForTier(model.DefenseTierMedium),
			Speed: 4.0, AttackRange: 2.0, DetectRange: 20, AttackSpeed: 1.0,
			Experience: 40, HeightOffset: 1.2, DeathAnimSeconds: 5,
			Zones: []model.ZoneID{ZoneAshenWastes, ZoneObsidianPeaks},
		},
		{
			Archetype: ArchBoneColossus, Name: "Bone Colossus", Class: model.ClassBoss,
			Health: 900, Damage: 35, Defense: model.DefenseForTier(model.DefenseTierBoss),
			Speed: 2.8, AttackRange: 3.5, DetectRange: 40, AttackSpeed: 0.6,
			Experience: 400, HeightOffset: 2.5, DeathAnimSeconds: 2,
			Abilities: []model.AbilityKind{model.AbilityShadowBolt, model.AbilityGroundSlam},
			Zones:     []model.ZoneID{ZoneGraveMeadows, ZoneSunkenCrypts},
		},
		{
			Archetype: ArchPlagueTitan, Name: "Plague Titan", Class: model.ClassBoss,
			Health: 1100, Damage: 40, Defense: model.DefenseForTier(model.DefenseTierBoss),
			Speed: 2.6, AttackRange: 3.8, DetectRange: 42, AttackSpeed: 0.5,
			Experience: 500, HeightOffset: 2.8, DeathAnimSeconds: 2,
			Abilities: []model.AbilityKind{model.AbilityGroundSlam},
			Zones:     []model.ZoneID{ZoneAshenWastes},
		},
		{
			Archetype: ArchEmberLich, Name: "Ember Lich", Class: model.ClassBoss,
			Health: 800, Damage: 45, Defense: model.DefenseForTier(model.DefenseTierBoss),
			Speed: 3.0, AttackRange: 3.0, DetectRange: 45, AttackSpeed: 0.7,
			Experience: 450, HeightOffset: 2.2, DeathAnimSeconds: 2,
			Abilities: []model.AbilityKind{model.AbilityShadowBolt},
			Zones:     []model.ZoneID{ZoneObsidianPeaks},
		},
	}

	for _, t := range templates {
		RegisterArchetype(t)
	}

	mu.RLock()
	n, b := len(normals), len(bosses)
	mu.RUnlock()
	slog.Info("archetype catalog loaded", "normals", n, "bosses", b)
}
