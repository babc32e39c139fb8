package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/duskforge/revenant/internal/model"
)

// Registry is the active-enemy registry. It is the sole owner of enemy
// records; every other component holds ids only.
//
// An id lives in exactly one of {registry, disposal queue}: Remove hands the
// record to the caller (the reaper) and the id is never reused afterwards
// because ids come from a monotonically increasing generator.
type Registry struct {
	enemies sync.Map     // map[uint32]*model.Enemy
	count   atomic.Int32 // cached count (O(1) access, see Count)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add inserts an enemy. Duplicate ids are rejected.
func (r *Registry) Add(e *model.Enemy) error {
	if _, loaded := r.enemies.LoadOrStore(e.ID(), e); loaded {
		return fmt.Errorf("enemy %d already registered", e.ID())
	}
	r.count.Add(1)
	return nil
}

// Remove deletes an enemy and returns the record, if present.
func (r *Registry) Remove(id uint32) (*model.Enemy, bool) {
	value, loaded := r.enemies.LoadAndDelete(id)
	if !loaded {
		return nil, false
	}
	r.count.Add(-1)
	return value.(*model.Enemy), true
}

// Get returns the enemy with the given id.
func (r *Registry) Get(id uint32) (*model.Enemy, bool) {
	value, ok := r.enemies.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*model.Enemy), true
}

// Range iterates over all enemies. Return false from fn to stop.
func (r *Registry) Range(fn func(*model.Enemy) bool) {
	r.enemies.Range(func(_, value any) bool {
		return fn(value.(*model.Enemy))
	})
}

// Count returns the number of live enemies (cached, O(1)).
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// IDGenerator hands out unique enemy ids. Owned by the session that creates
// it; separate manager instances (tests) get independent sequences instead
// of sharing a package-level counter.
type IDGenerator struct {
	counter atomic.Uint32
}

// NewIDGenerator creates a generator starting above the given floor.
func NewIDGenerator(start uint32) *IDGenerator {
	g := &IDGenerator{}
	g.counter.Store(start)
	return g
}

// Next returns the next unique id.
func (g *IDGenerator) Next() uint32 {
	return g.counter.Add(1)
}
