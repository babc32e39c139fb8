package model

// Archetype identifies a registered enemy template.
// Closed set: all archetypes are registered once at startup (see internal/data);
// string matching on names is never used for behavior decisions.
type Archetype int32

// ArchetypeClass ranks an archetype for flat stat bonuses and drop tables.
type ArchetypeClass int32

const (
	ClassNormal ArchetypeClass = iota
	ClassElite
	ClassChampion
	ClassBoss
)

// String returns human-readable class name.
func (c ArchetypeClass) String() string {
	switch c {
	case ClassElite:
		return "ELITE"
	case ClassChampion:
		return "CHAMPION"
	case ClassBoss:
		return "BOSS"
	default:
		return "NORMAL"
	}
}

// AbilityKind identifies a boss special ability. Each ability runs on its own
// cooldown and pre-empts the normal attack branch for the tick it fires.
type AbilityKind int32

const (
	AbilityNone AbilityKind = iota
	// AbilityShadowBolt - ranged projectile used while the target is outside melee range
	AbilityShadowBolt
	// AbilityGroundSlam - close-range burst used while the target is inside melee range
	AbilityGroundSlam
)

// String returns human-readable ability name.
func (a AbilityKind) String() string {
	switch a {
	case AbilityShadowBolt:
		return "SHADOW_BOLT"
	case AbilityGroundSlam:
		return "GROUND_SLAM"
	default:
		return "NONE"
	}
}

// ZoneID identifies a world zone. Zones carry their own difficulty multiplier
// and an associated set of archetypes.
type ZoneID int32

// DefenseTier buckets archetypes by toughness. The tier resolves to a flat
// defense value used in the diminishing-returns damage reduction.
type DefenseTier int32

const (
	DefenseTierLight DefenseTier = iota
	DefenseTierMedium
	DefenseTierHeavy
	DefenseTierBoss
)

// Template holds the base stats and ability set of an archetype.
// Immutable after registration; scaling never mutates a template,
// it produces per-enemy stats (see internal/scale).
type Template struct {
	Archetype Archetype
	Name      string
	Class     ArchetypeClass

	Health      float64
	Damage      float64
	Defense     float64 // resolved from DefenseTier at registration
	Speed       float64
	AttackRange float64
	DetectRange float64
	AttackSpeed float64 // attacks per second
	Experience  float64

	// HeightOffset lifts the model above resolved terrain height.
	HeightOffset float64

	// DeathAnimSeconds bounds the Dying state before batched removal.
	DeathAnimSeconds float64

	Abilities []AbilityKind
	Zones     []ZoneID
}

// IsBoss reports whether the template describes a boss archetype.
func (t *Template) IsBoss() bool {
	return t.Class == ClassBoss
}

// HasAbility reports whether the template carries the given ability.
func (t *Template) HasAbility(kind AbilityKind) bool {
	for _, a := range t.Abilities {
		if a == kind {
			return true
		}
	}
	return false
}

// InZone reports whether the archetype is associated with the zone.
func (t *Template) InZone(zone ZoneID) bool {
	for _, z := range t.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// DefenseForTier maps a defense tier to its flat defense value.
// reduction = defense / (defense + 100), so tier values are chosen for
// roughly 9%, 17%, 23% and 33% reduction.
func DefenseForTier(tier DefenseTier) float64 {
	switch tier {
	case DefenseTierMedium:
		return 20
	case DefenseTierHeavy:
		return 30
	case DefenseTierBoss:
		return 50
	default:
		return 10
	}
}
