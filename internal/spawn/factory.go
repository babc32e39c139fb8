package spawn

import (
	"errors"
	"fmt"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/scale"
	"github.com/duskforge/revenant/internal/world"
)

var (
	// ErrAtCapacity is returned when spawning would exceed the active-entity cap.
	ErrAtCapacity = errors.New("active enemy cap reached")
	// ErrInvalidPosition is returned for NaN/Inf spawn coordinates.
	ErrInvalidPosition = errors.New("invalid spawn position")
	// ErrNoArchetypes is returned when the archetype catalog is empty.
	ErrNoArchetypes = errors.New("no archetypes registered")
)

// Factory is the single construction path for enemy records. Local spawns
// and mirrored creations both go through it, so a mirrored enemy is built
// exactly like an authoritative one apart from its ownership tag.
type Factory struct {
	registry *world.Registry
	terrain  world.Terrain
	scaling  config.Scaling
}

// NewFactory creates an enemy factory.
func NewFactory(registry *world.Registry, terrain world.Terrain, scaling config.Scaling) *Factory {
	return &Factory{registry: registry, terrain: terrain, scaling: scaling}
}

// Create builds an enemy record, resolves its initial height and registers
// it. The horizontal position is placed first; the vertical coordinate is
// always resolved by a terrain query after placement, never before, so the
// archetype height offset composes with real ground height.
//
// Unknown archetypes fall back to a random registered one rather than
// failing the spawn.
func (f *Factory) Create(
	arch model.Archetype,
	id uint32,
	pos model.Vec3,
	ownership model.Ownership,
	zone model.ZoneID,
	playerLevel int,
) (*model.Enemy, error) {
	if !pos.IsFinite() {
		return nil, fmt.Errorf("spawning archetype %d: %w", arch, ErrInvalidPosition)
	}

	tmpl := data.ResolveArchetype(arch)
	if tmpl == nil {
		return nil, ErrNoArchetypes
	}

	stats := scale.Apply(tmpl, scale.Inputs{
		Scaling:     f.scaling,
		Zone:        zone,
		PlayerLevel: playerLevel,
	})

	e := model.NewEnemy(id, tmpl, stats, ownership, pos)

	// Post-hoc vertical resolution. For bosses this is the one query that
	// pins their height; failure leaves the placement height untouched.
	if h, ok := f.terrain.HeightAt(pos.X, pos.Z); ok {
		e.ResolveHeight(h + tmpl.HeightOffset)
	}

	if err := f.registry.Add(e); err != nil {
		return nil, fmt.Errorf("registering enemy %d: %w", id, err)
	}

	return e, nil
}
