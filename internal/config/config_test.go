package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Complete(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 60, cfg.Spawning.MaxEnemies)
	assert.Equal(t, 25, cfg.Spawning.BossKillThreshold)
	assert.Equal(t, 5, cfg.Disposal.MaxPerTick)
	assert.Greater(t, cfg.Mirror.DesyncAfter, cfg.Mirror.StaleAfter)
	assert.Len(t, cfg.Drops.Normal.Rarities, 5)
	assert.Len(t, cfg.Drops.Boss.Rarities, 5)
	assert.Equal(t, 1.0, cfg.Drops.Boss.Chance, "boss drops are guaranteed")
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
log_level: debug
tick_interval: 100ms
spawning:
  max_enemies: 10
  boss_kill_threshold: 3
mirror:
  stale_after: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 10, cfg.Spawning.MaxEnemies)
	assert.Equal(t, 3, cfg.Spawning.BossKillThreshold)
	assert.Equal(t, 2*time.Second, cfg.Mirror.StaleAfter)
	// untouched keys keep defaults
	assert.Equal(t, 8777, cfg.Port)
	assert.Equal(t, 0.35, cfg.Drops.Normal.Chance)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestZoneMultiplier(t *testing.T) {
	s := Scaling{ZoneDifficulty: map[int32]float64{1: 1.5, 2: 0}}

	assert.Equal(t, 1.5, s.ZoneMultiplier(1))
	assert.Equal(t, 1.0, s.ZoneMultiplier(2), "non-positive entries fall back to 1")
	assert.Equal(t, 1.0, s.ZoneMultiplier(9))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "rev", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/rev?sslmode=disable", d.DSN())
}
