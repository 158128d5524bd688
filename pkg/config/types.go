package config

import "time"

type cacheCfg struct {
	Capacity      int           `toml:"capacity"`
	DefaultTTL    time.Duration `toml:"defaultTTL"`
	SweepInterval time.Duration `toml:"sweepInterval"`
	SweepDelay    time.Duration `toml:"sweepDelay"`
	StartSweeper  bool          `toml:"startSweeper"`
}

type overflowCfg struct {
	// Path of the bbolt file. Empty keeps overflow entries in memory.
	Path        string        `toml:"path"`
	Bucket      string        `toml:"bucket"`
	LockTimeout time.Duration `toml:"lockTimeout"`
	OpTimeout   time.Duration `toml:"opTimeout"`
}

type SystemCfg struct {
	Cache    cacheCfg    `toml:"cache"`
	Overflow overflowCfg `toml:"overflow"`
}
