package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

func defaultSystemCfg() *SystemCfg {
	return &SystemCfg{
		Cache: cacheCfg{
			Capacity:      1000,
			DefaultTTL:    10 * time.Minute,
			SweepInterval: 1 * time.Second,
			SweepDelay:    1 * time.Minute,
			StartSweeper:  true,
		},
		Overflow: overflowCfg{
			Bucket:      "overflow",
			LockTimeout: 1 * time.Second,
			OpTimeout:   5 * time.Second,
		},
	}
}

// Default returns the configuration used when no file is given.
func Default() *SystemCfg {
	return defaultSystemCfg()
}

// LoadConfig decodes the TOML file at path over the defaults. Durations are
// written as strings, e.g. sweepInterval = "1s".
func LoadConfig(path string) (*SystemCfg, error) {
	config := defaultSystemCfg()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse decodes TOML from a string over the defaults.
func Parse(data string) (*SystemCfg, error) {
	config := defaultSystemCfg()
	if _, err := toml.Decode(data, config); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *SystemCfg) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("config: cache.capacity must be > 0, got %d", c.Cache.Capacity)
	}
	if c.Cache.DefaultTTL < time.Minute || c.Cache.DefaultTTL > 2*time.Hour {
		return fmt.Errorf("config: cache.defaultTTL must be within [1m, 2h], got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("config: cache.sweepInterval must be > 0, got %s", c.Cache.SweepInterval)
	}
	if c.Cache.SweepDelay < 0 {
		return fmt.Errorf("config: cache.sweepDelay must be >= 0, got %s", c.Cache.SweepDelay)
	}
	if c.Overflow.OpTimeout <= 0 {
		return fmt.Errorf("config: overflow.opTimeout must be > 0, got %s", c.Overflow.OpTimeout)
	}
	return nil
}
