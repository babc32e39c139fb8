// Package drop decides whether and what rarity of loot a dead enemy yields.
// Item construction and world placement belong to external collaborators;
// only the decision lives here.
package drop

import (
	"log/slog"
	"math/rand/v2"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/model"
)

// Rarity is a loot tier, ordered common → legendary.
type Rarity int32

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// String returns human-readable rarity name.
func (r Rarity) String() string {
	switch r {
	case RarityUncommon:
		return "UNCOMMON"
	case RarityRare:
		return "RARE"
	case RarityEpic:
		return "EPIC"
	case RarityLegendary:
		return "LEGENDARY"
	default:
		return "COMMON"
	}
}

// ItemGenerator constructs a loot item for a level hint and rarity.
type ItemGenerator interface {
	GenerateItem(level int, rarity Rarity) any
}

// ItemDropper places a generated item into the world.
type ItemDropper interface {
	DropItem(item any, pos model.Vec3)
}

// Resolver rolls drops against the configured boss/normal tables.
type Resolver struct {
	cfg     config.Drops
	gen     ItemGenerator
	dropper ItemDropper

	// randFloat is swapped in tests for deterministic rolls.
	randFloat func() float64
}

// NewResolver creates a drop resolver. Generator and dropper may be nil,
// in which case a successful roll still marks the enemy processed but
// produces no item.
func NewResolver(cfg config.Drops, gen ItemGenerator, dropper ItemDropper) *Resolver {
	return &Resolver{
		cfg:       cfg,
		gen:       gen,
		dropper:   dropper,
		randFloat: rand.Float64,
	}
}

// Resolve rolls loot for a terminal enemy. The dropProcessed guard makes
// this exactly-once per enemy id: every call after the first is a no-op.
// Returns true when an item was actually dropped.
func (r *Resolver) Resolve(e *model.Enemy, playerLevel int) bool {
	if !e.MarkDropProcessed() {
		return false
	}

	table := r.cfg.Normal
	if e.IsBoss() {
		table = r.cfg.Boss
	}

	if r.randFloat() >= table.Chance {
		return false
	}

	rarity := r.pickRarity(table.Rarities)

	if r.gen == nil || r.dropper == nil {
		return false
	}

	item := r.gen.GenerateItem(playerLevel, rarity)
	r.dropper.DropItem(item, e.Position())

	slog.Info("loot dropped",
		"enemy", e.ID(),
		"archetype", e.Template().Name,
		"rarity", rarity,
		"level", playerLevel)
	return true
}

// pickRarity walks the cumulative distribution. Weights are normalized so
// the table doesn't need to sum to 1. An empty table yields common.
func (r *Resolver) pickRarity(weights []float64) Rarity {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return RarityCommon
	}

	roll := r.randFloat() * total
	var cum float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if roll < cum {
			return Rarity(i)
		}
	}
	return Rarity(len(weights) - 1)
}
