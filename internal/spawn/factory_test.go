package spawn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

func newTestFactory(terrain world.Terrain) (*Factory, *world.Registry) {
	registry := world.NewRegistry()
	f := NewFactory(registry, terrain, config.Scaling{
		CombatBalanceHealth: 1, CombatBalanceDamage: 1,
		DifficultyHealth: 1, DifficultyDamage: 1, DifficultyExperience: 1,
		EliteBonus: 1, ChampionBonus: 1, BossBonus: 1,
	})
	return f, registry
}

func TestCreate_RegistersEnemy(t *testing.T) {
	f, registry := newTestFactory(world.FlatTerrain{Height: 2})

	e, err := f.Create(data.ArchGhoul, 1, model.NewVec3(10, 0, 10), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, data.ArchGhoul, e.Archetype())
	assert.Equal(t, e.MaxHealth(), e.Health(), "spawns at full health")
	assert.Equal(t, model.StateIdle, e.State())

	// height resolved post-placement: ground plus archetype offset
	tmpl := data.GetTemplate(data.ArchGhoul)
	assert.InDelta(t, 2+tmpl.HeightOffset, e.Position().Y, 1e-9)
}

func TestCreate_InvalidPosition(t *testing.T) {
	f, registry := newTestFactory(world.FlatTerrain{})

	_, err := f.Create(data.ArchGhoul, 1, model.NewVec3(math.NaN(), 0, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.ErrorIs(t, err, ErrInvalidPosition)
	assert.Equal(t, 0, registry.Count())
}

func TestCreate_UnknownArchetypeFallsBack(t *testing.T) {
	f, _ := newTestFactory(world.FlatTerrain{})

	e, err := f.Create(model.Archetype(9999), 1, model.NewVec3(0, 0, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.NoError(t, err, "a bad tag never fails the spawn")
	assert.NotNil(t, data.GetTemplate(e.Archetype()), "fell back to a registered archetype")
}

func TestCreate_MirroredOwnership(t *testing.T) {
	f, _ := newTestFactory(world.FlatTerrain{})

	e, err := f.Create(data.ArchSkeleton, 1, model.NewVec3(0, 0, 0), model.OwnershipMirrored, data.ZoneGraveMeadows, 1)
	require.NoError(t, err)
	assert.True(t, e.IsMirrored())
}

func TestCreate_DuplicateID(t *testing.T) {
	f, registry := newTestFactory(world.FlatTerrain{})

	_, err := f.Create(data.ArchGhoul, 5, model.NewVec3(0, 0, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.NoError(t, err)

	_, err = f.Create(data.ArchGhoul, 5, model.NewVec3(1, 0, 1), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	assert.Error(t, err)
	assert.Equal(t, 1, registry.Count())
}

type noTerrain struct{}

func (noTerrain) HeightAt(x, z float64) (float64, bool) { return 0, false }

func TestCreate_TerrainFailureKeepsPlacementHeight(t *testing.T) {
	f, _ := newTestFactory(noTerrain{})

	e, err := f.Create(data.ArchGhoul, 1, model.NewVec3(0, 4, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, e.Position().Y)
}

func TestCreate_BossHeightPinnedAtSpawn(t *testing.T) {
	f, _ := newTestFactory(world.FlatTerrain{Height: 3})

	e, err := f.Create(data.ArchBoneColossus, 1, model.NewVec3(0, 0, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 1)
	require.NoError(t, err)
	require.True(t, e.HeightLocked())

	y := e.Position().Y
	e.SetPosition(model.NewVec3(50, -20, 50))
	assert.Equal(t, y, e.Position().Y)
}
