// Package config loads city settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	// Seed feeds the random source. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
	// PresetDB is the sqlite file holding saved presets. Empty keeps
	// presets in memory only.
	PresetDB string `yaml:"preset_db"`
	// MeshCells is the marching cubes resolution of roof slabs.
	MeshCells int `yaml:"mesh_cells"`
	// SubdivideMin and SubdivideMax bound the spacing of points added by
	// auto close.
	SubdivideMin float64       `yaml:"subdivide_min"`
	SubdivideMax float64       `yaml:"subdivide_max"`
	EvalTimeout  time.Duration `yaml:"eval_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MeshCells:    64,
		SubdivideMin: 8,
		SubdivideMax: 16,
		EvalTimeout:  5 * time.Second,
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// CITY_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.Seed = getEnvAsInt64("CITY_SEED", cfg.Seed)
	cfg.PresetDB = getEnv("CITY_PRESET_DB", cfg.PresetDB)
	cfg.MeshCells = getEnvAsInt("CITY_MESH_CELLS", cfg.MeshCells)
	cfg.SubdivideMin = getEnvAsFloat("CITY_SUBDIVIDE_MIN", cfg.SubdivideMin)
	cfg.SubdivideMax = getEnvAsFloat("CITY_SUBDIVIDE_MAX", cfg.SubdivideMax)
	cfg.EvalTimeout = getEnvAsDuration("CITY_EVAL_TIMEOUT", cfg.EvalTimeout)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the city cannot run with.
func (c *Config) Validate() error {
	if c.MeshCells < 8 {
		return fmt.Errorf("mesh_cells must be at least 8, got %d", c.MeshCells)
	}
	if c.SubdivideMin <= 0 || c.SubdivideMax < c.SubdivideMin {
		return fmt.Errorf("invalid subdivide range [%g, %g]", c.SubdivideMin, c.SubdivideMax)
	}
	if c.EvalTimeout <= 0 {
		return fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
