// Package config loads the runtime configuration file. The file is CUE;
// it is unified with an embedded schema so defaults and constraints
// live in one place and a bad file fails loudly at startup.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/hollis-dev/loam/internal/op"
)

//go:embed schema.cue
var schemaCUE string

// PurgeConfig selects the operation log retention strategy.
type PurgeConfig struct {
	Strategy      string `json:"strategy"`
	KeepLast      int    `json:"keep_last"`
	RetentionDays int    `json:"retention_days"`
}

// Config is the validated runtime configuration.
type Config struct {
	DeviceID     string      `json:"device_id"`
	DatabasePath string      `json:"database_path"`
	Purge        PurgeConfig `json:"purge"`
}

// Load reads and validates a CUE configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse validates CUE source against the embedded schema and applies
// its defaults.
func Parse(source string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("internal config schema: %w", err)
	}
	val := ctx.CompileString(source)
	if err := val.Err(); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// PurgeStrategy converts the configured retention into the strategy the
// store consumes.
func (c Config) PurgeStrategy() op.PurgeStrategy {
	switch c.Purge.Strategy {
	case "with_sync":
		return op.WithSync{RetentionDays: c.Purge.RetentionDays}
	default:
		return op.LocalOnly{KeepLast: c.Purge.KeepLast}
	}
}
