package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskforge/revenant/internal/model"
)

func testTemplate() *model.Template {
	return &model.Template{
		Archetype: 1, Name: "Test Ghoul", Class: model.ClassNormal,
		Health: 50, Damage: 5, Defense: 10,
		Speed: 3, AttackRange: 2, DetectRange: 10, AttackSpeed: 1,
		Experience: 10, HeightOffset: 1, DeathAnimSeconds: 5,
	}
}

func testEnemy(id uint32) *model.Enemy {
	tmpl := testTemplate()
	stats := model.Stats{MaxHealth: 50, Damage: 5, Speed: 3, Experience: 10}
	return model.NewEnemy(id, tmpl, stats, model.OwnershipAuthoritative, model.NewVec3(0, 0, 0))
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()

	e := testEnemy(1)
	require.NoError(t, r.Add(e))
	assert.Equal(t, 1, r.Count())

	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, e, got)

	removed, ok := r.Remove(1)
	require.True(t, ok)
	assert.Same(t, e, removed)
	assert.Equal(t, 0, r.Count())

	_, ok = r.Get(1)
	assert.False(t, ok)
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Add(testEnemy(7)))
	err := r.Add(testEnemy(7))
	require.Error(t, err)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RemoveMissing(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Remove(99)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_Range(t *testing.T) {
	r := NewRegistry()
	for id := uint32(1); id <= 5; id++ {
		require.NoError(t, r.Add(testEnemy(id)))
	}

	seen := map[uint32]bool{}
	r.Range(func(e *model.Enemy) bool {
		seen[e.ID()] = true
		return true
	})
	assert.Len(t, seen, 5)
}

func TestIDGenerator_Unique(t *testing.T) {
	g := NewIDGenerator(100000)

	seen := map[uint32]bool{}
	for range 1000 {
		id := g.Next()
		assert.False(t, seen[id], "id %d reused", id)
		assert.Greater(t, id, uint32(100000))
		seen[id] = true
	}
}

func TestIDGenerator_IndependentInstances(t *testing.T) {
	a := NewIDGenerator(0)
	b := NewIDGenerator(0)

	assert.Equal(t, a.Next(), b.Next(), "independent generators start from the same floor")
}
