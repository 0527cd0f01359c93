package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World    WorldConfig    `toml:"world"`
	Mesh     MeshConfig     `toml:"mesh"`
	Generate GenerateConfig `toml:"generate"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type WorldConfig struct {
	Workers        int  `toml:"workers"`
	PanicOnCorrupt bool `toml:"panic_on_corrupt"`
}

type MeshConfig struct {
	Format      string `toml:"format"` // "meshlet" or "flat"
	Concurrency int    `toml:"concurrency"`
}

type GenerateConfig struct {
	Seed   int64 `toml:"seed"`
	Radius int   `toml:"radius"` // chunks around the origin
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Addr string `toml:"addr"` // empty disables the endpoint
}

// Load reads the config at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mesh.Format {
	case "meshlet", "flat":
	default:
		return fmt.Errorf("unknown mesh format %q", c.Mesh.Format)
	}
	if c.World.Workers < 1 {
		return fmt.Errorf("world.workers must be positive, got %d", c.World.Workers)
	}
	if c.Mesh.Concurrency < 1 {
		return fmt.Errorf("mesh.concurrency must be positive, got %d", c.Mesh.Concurrency)
	}
	if c.Generate.Radius < 0 {
		return fmt.Errorf("generate.radius must not be negative, got %d", c.Generate.Radius)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			Workers:        runtime.NumCPU(),
			PanicOnCorrupt: true,
		},
		Mesh: MeshConfig{
			Format:      "meshlet",
			Concurrency: runtime.NumCPU(),
		},
		Generate: GenerateConfig{
			Seed:   1,
			Radius: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
