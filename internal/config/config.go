// Package config loads toolchain settings from the environment.
package config

import (
	"github.com/xyproto/env/v2"

	"github.com/bolide-lang/bolide/internal/logger"
	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Config holds the settings shared by the CLI, the code generator and the
// runtime. Command-line flags override individual fields after Load.
type Config struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // text or json

	// PoolSize is used when pool(n) evaluates to n <= 0.
	PoolSize int

	VerifyIR bool   // verify IR after every pass
	DumpIR   string // pass name, or "*", to dump around

	// CheckLeaks reports live heap objects when a program ends.
	CheckLeaks bool

	TargetTriple string

	// ImportPath is the search root for import statements.
	ImportPath string
}

const defaultPoolSize = 4

// Load reads the BOLIDE_* environment variables. The env cache is refreshed
// first so variables set after process start are seen.
func Load() *Config {
	env.Load()
	return &Config{
		LogLevel:     env.Str("BOLIDE_LOG_LEVEL", "warn"),
		LogFormat:    env.Str("BOLIDE_LOG_FORMAT", "text"),
		PoolSize:     env.Int("BOLIDE_POOL_SIZE", defaultPoolSize),
		VerifyIR:     env.Bool("BOLIDE_VERIFY_IR"),
		DumpIR:       env.Str("BOLIDE_DUMP_IR"),
		CheckLeaks:   env.Bool("BOLIDE_CHECK_LEAKS"),
		TargetTriple: env.Str("BOLIDE_TARGET_TRIPLE", rtabi.DefaultTargetTriple),
		ImportPath:   env.Str("BOLIDE_PATH", "."),
	}
}

// Logger returns the logger configuration described by c.
func (c *Config) Logger() (logger.Config, error) {
	lc := logger.DefaultConfig()
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return lc, err
	}
	lc.Level = level
	if c.LogFormat == "json" {
		lc.Format = "json"
	}
	return lc, nil
}

// EffectivePoolSize returns n, or the configured default when n <= 0.
func (c *Config) EffectivePoolSize(n int64) int {
	if n > 0 {
		return int(n)
	}
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return defaultPoolSize
}
