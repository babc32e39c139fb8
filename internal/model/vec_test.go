package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestVec3_Arithmetic(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	assert.Equal(t, NewVec3(5, 7, 9), a.Add(b))
	assert.Equal(t, NewVec3(-3, -3, -3), a.Sub(b))
	assert.Equal(t, NewVec3(2, 4, 6), a.Scale(2))
	assert.Equal(t, NewVec3(1, 9, 3), a.WithY(9))
}

func TestVec3_Distances(t *testing.T) {
	a := NewVec3(0, 0, 0)
	b := NewVec3(3, 4, 0)

	assert.Equal(t, 25.0, a.DistanceSquared(b))
	assert.Equal(t, 5.0, a.Distance(b))
	assert.Equal(t, 3.0, a.HorizontalDistance(b))
}

func TestVec3_NormalizedZero(t *testing.T) {
	zero := NewVec3(0, 0, 0)
	assert.Equal(t, zero, zero.Normalized())
}

func TestVec3_NormalizedUnitLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVec3(
			rapid.Float64Range(-1000, 1000).Draw(t, "x"),
			rapid.Float64Range(-1000, 1000).Draw(t, "y"),
			rapid.Float64Range(-1000, 1000).Draw(t, "z"),
		)
		if v.Length() == 0 {
			t.Skip("zero vector")
		}
		if l := v.Normalized().Length(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("normalized length %v", l)
		}
	})
}

func TestVec3_IsFinite(t *testing.T) {
	assert.True(t, NewVec3(1, 2, 3).IsFinite())
	assert.False(t, NewVec3(math.NaN(), 0, 0).IsFinite())
	assert.False(t, NewVec3(0, math.Inf(1), 0).IsFinite())
	assert.False(t, NewVec3(0, 0, math.Inf(-1)).IsFinite())
}
