package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN builds a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// Scaling holds the difficulty multiplier chains. Health, damage and
// experience are configured independently (see internal/scale).
type Scaling struct {
	CombatBalanceHealth float64 `yaml:"combat_balance_health"`
	CombatBalanceDamage float64 `yaml:"combat_balance_damage"`

	DifficultyHealth     float64 `yaml:"difficulty_health"`
	DifficultyDamage     float64 `yaml:"difficulty_damage"`
	DifficultyExperience float64 `yaml:"difficulty_experience"`

	// LevelFactor adds this fraction per player level above 1.
	LevelFactor float64 `yaml:"level_factor"`

	// Flat class bonuses applied after the multiplier chain.
	EliteBonus    float64 `yaml:"elite_bonus"`
	ChampionBonus float64 `yaml:"champion_bonus"`
	BossBonus     float64 `yaml:"boss_bonus"`

	// ZoneDifficulty maps zone id to its difficulty multiplier.
	ZoneDifficulty map[int32]float64 `yaml:"zone_difficulty"`
}

// ZoneMultiplier returns the multiplier for a zone (1.0 if unset).
func (s Scaling) ZoneMultiplier(zone int32) float64 {
	if m, ok := s.ZoneDifficulty[zone]; ok && m > 0 {
		return m
	}
	return 1.0
}

// Spawning holds spawn scheduler settings.
type Spawning struct {
	Interval     time.Duration `yaml:"interval"`      // timed spawn cadence
	MaxEnemies   int           `yaml:"max_enemies"`   // active-entity cap
	RingMin      float64       `yaml:"ring_min"`      // min spawn distance from player
	RingMax      float64       `yaml:"ring_max"`      // max spawn distance from player
	ImmunityTime time.Duration `yaml:"immunity_time"` // post-spawn target-acquisition grace

	// Dangerous group burst. Size is independent from the boss threshold
	// even though defaults coincide.
	DangerousGroupChance float64 `yaml:"dangerous_group_chance"`
	DangerousGroupMin    int     `yaml:"dangerous_group_min"`
	DangerousGroupMax    int     `yaml:"dangerous_group_max"`
	DangerousGroupSpread float64 `yaml:"dangerous_group_spread"`

	// Boss spawn trigger.
	BossKillThreshold int     `yaml:"boss_kill_threshold"`
	BossSpawnDistance float64 `yaml:"boss_spawn_distance"`

	// Proximity waves.
	WaveMoveThreshold float64       `yaml:"wave_move_threshold"`
	WaveGroupCount    int           `yaml:"wave_group_count"`
	WaveGroupSize     int           `yaml:"wave_group_size"`
	WaveGroupRadius   float64       `yaml:"wave_group_radius"`
	WaveRepeat        time.Duration `yaml:"wave_repeat"` // repeat cadence at elevated intensity
}

// Combat holds state-machine timing settings.
type Combat struct {
	KnockbackDuration time.Duration `yaml:"knockback_duration"`
	KnockbackDistance float64       `yaml:"knockback_distance"`
	StunDuration      time.Duration `yaml:"stun_duration"`
	AggroDuration     time.Duration `yaml:"aggro_duration"`

	// Boss ability cooldowns.
	RangedAbilityCooldown time.Duration `yaml:"ranged_ability_cooldown"`
	CloseAbilityCooldown  time.Duration `yaml:"close_ability_cooldown"`
	RangedAbilityRange    float64       `yaml:"ranged_ability_range"`
	CloseAbilityRange     float64       `yaml:"close_ability_range"`

	// Position self-repair cadence (ticks between scans).
	RepairEveryTicks int `yaml:"repair_every_ticks"`
}

// Mirror holds replication settings.
type Mirror struct {
	SyncInterval time.Duration `yaml:"sync_interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`  // per-entity staleness
	DesyncAfter  time.Duration `yaml:"desync_after"` // no snapshot at all: bulk clear
}

// DropTable holds a drop chance and a cumulative rarity distribution.
// Rarities are ordered common → legendary; weights need not sum to 1,
// they are normalized at roll time.
type DropTable struct {
	Chance   float64   `yaml:"chance"`
	Rarities []float64 `yaml:"rarities"`
}

// Drops holds loot resolution settings.
type Drops struct {
	Normal DropTable `yaml:"normal"`
	Boss   DropTable `yaml:"boss"`
}

// Disposal bounds per-frame teardown cost.
type Disposal struct {
	MaxPerTick int `yaml:"max_per_tick"`
}

// Config is the root configuration for the enemy population server.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	TickInterval time.Duration `yaml:"tick_interval"`

	Database DatabaseConfig `yaml:"database"`
	Scaling  Scaling        `yaml:"scaling"`
	Spawning Spawning       `yaml:"spawning"`
	Combat   Combat         `yaml:"combat"`
	Mirror   Mirror         `yaml:"mirror"`
	Drops    Drops          `yaml:"drops"`
	Disposal Disposal       `yaml:"disposal"`
}

// Default returns a Config with complete defaults.
func Default() Config {
	return Config{
		LogLevel:     "info",
		BindAddress:  "0.0.0.0",
		Port:         8777,
		TickInterval: 50 * time.Millisecond,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "revenant",
			Password: "revenant",
			DBName:   "revenant",
			SSLMode:  "disable",
		},
		Scaling: Scaling{
			CombatBalanceHealth:  1.0,
			CombatBalanceDamage:  1.0,
			DifficultyHealth:     1.0,
			DifficultyDamage:     1.0,
			DifficultyExperience: 1.0,
			LevelFactor:          0.12,
			EliteBonus:           1.5,
			ChampionBonus:        2.0,
			BossBonus:            3.0,
			ZoneDifficulty: map[int32]float64{
				0: 1.0,
				1: 1.35,
				2: 1.75,
				3: 2.25,
			},
		},
		Spawning: Spawning{
			Interval:             4 * time.Second,
			MaxEnemies:           60,
			RingMin:              25,
			RingMax:              45,
			ImmunityTime:         1500 * time.Millisecond,
			DangerousGroupChance: 0.05,
			DangerousGroupMin:    20,
			DangerousGroupMax:    25,
			DangerousGroupSpread: 8,
			BossKillThreshold:    25,
			BossSpawnDistance:    35,
			WaveMoveThreshold:    80,
			WaveGroupCount:       3,
			WaveGroupSize:        4,
			WaveGroupRadius:      30,
			WaveRepeat:           20 * time.Second,
		},
		Combat: Combat{
			KnockbackDuration:     400 * time.Millisecond,
			KnockbackDistance:     3.5,
			StunDuration:          1200 * time.Millisecond,
			AggroDuration:         6 * time.Second,
			RangedAbilityCooldown: 8 * time.Second,
			CloseAbilityCooldown:  12 * time.Second,
			RangedAbilityRange:    25,
			CloseAbilityRange:     6,
			RepairEveryTicks:      100,
		},
		Mirror: Mirror{
			SyncInterval: 100 * time.Millisecond,
			StaleAfter:   5 * time.Second,
			DesyncAfter:  30 * time.Second,
		},
		Drops: Drops{
			Normal: DropTable{
				Chance:   0.35,
				Rarities: []float64{0.60, 0.25, 0.10, 0.04, 0.01},
			},
			Boss: DropTable{
				Chance:   1.0,
				Rarities: []float64{0.05, 0.20, 0.35, 0.25, 0.15},
			},
		},
		Disposal: Disposal{
			MaxPerTick: 5,
		},
	}
}

// Load reads config from a YAML file. A missing file returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
