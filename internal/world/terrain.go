package world

import "math"

// Terrain resolves ground height at a horizontal position.
// A false return means "no information"; callers keep the previous height.
type Terrain interface {
	HeightAt(x, z float64) (float64, bool)
}

// FlatTerrain answers every query with a constant height.
type FlatTerrain struct {
	Height float64
}

// HeightAt implements Terrain.
func (t FlatTerrain) HeightAt(x, z float64) (float64, bool) {
	return t.Height, true
}

// RollingTerrain is a deterministic analytic heightfield used by the server
// binary when no real terrain collaborator is wired in.
type RollingTerrain struct {
	Amplitude  float64
	Wavelength float64
}

// HeightAt implements Terrain.
func (t RollingTerrain) HeightAt(x, z float64) (float64, bool) {
	if t.Wavelength == 0 {
		return 0, true
	}
	return t.Amplitude * (math.Sin(x/t.Wavelength) + math.Cos(z/t.Wavelength)) / 2, true
}
