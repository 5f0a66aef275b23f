package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"resman/pkg/resman"
)

// config describes the resmand YAML configuration.
type config struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Store struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		RedisAddr  string `yaml:"redis_addr"`
	} `yaml:"store"`
	Audit struct {
		Path string `yaml:"path"`
	} `yaml:"audit"`
	Maintenance struct {
		SweepIntervalSeconds int  `yaml:"sweep_interval_seconds"`
		Disabled             bool `yaml:"disabled"`
	} `yaml:"maintenance"`
	Pools []poolSeed `yaml:"pools"`
}

// poolSeed overrides one default pool at startup.
type poolSeed struct {
	Type          string  `yaml:"type"`
	Capacity      float64 `yaml:"capacity"`
	CostPerUnit   float64 `yaml:"cost_per_unit"`
	ReplenishRate float64 `yaml:"replenish_rate"`
}

// loadConfig reads and validates the configuration file.
func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	switch cfg.Store.Backend {
	case "":
		cfg.Store.Backend = "memory"
	case "memory":
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			return cfg, fmt.Errorf("store.sqlite_path is required for sqlite backend")
		}
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return cfg, fmt.Errorf("store.redis_addr is required for redis backend")
		}
	default:
		return cfg, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
	for _, seed := range cfg.Pools {
		if seed.Type == "" || seed.Capacity <= 0 {
			return cfg, fmt.Errorf("pool seeds need a type and a positive capacity")
		}
	}
	return cfg, nil
}

// sweepInterval returns the configured maintenance interval.
func sweepInterval(cfg config) time.Duration {
	if cfg.Maintenance.SweepIntervalSeconds > 0 {
		return time.Duration(cfg.Maintenance.SweepIntervalSeconds) * time.Second
	}
	return 0
}

// seedPools converts pool seed overrides into full pool definitions, keeping
// defaults for any type not named.
func seedPools(cfg config, now time.Time) []resman.ResourcePool {
	if len(cfg.Pools) == 0 {
		return nil
	}
	overrides := map[resman.ResourceType]poolSeed{}
	for _, seed := range cfg.Pools {
		overrides[resman.ResourceType(seed.Type)] = seed
	}
	var pools []resman.ResourcePool
	for _, pool := range defaultPoolSeeds(now) {
		if seed, ok := overrides[pool.Type]; ok {
			pool.Capacity = seed.Capacity
			pool.Available = seed.Capacity
			if seed.CostPerUnit > 0 {
				pool.CostPerUnit = seed.CostPerUnit
			}
			pool.ReplenishRate = seed.ReplenishRate
			delete(overrides, pool.Type)
		}
		pools = append(pools, pool)
	}
	for rt, seed := range overrides {
		pools = append(pools, resman.ResourcePool{
			Type:          rt,
			Capacity:      seed.Capacity,
			Available:     seed.Capacity,
			CostPerUnit:   seed.CostPerUnit,
			ReplenishRate: seed.ReplenishRate,
			LastReplenish: now,
		})
	}
	return pools
}
