package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/loam/internal/op"
)

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse(`device_id: "laptop"`)
	require.NoError(t, err)

	assert.Equal(t, "laptop", cfg.DeviceID)
	assert.Equal(t, "loam.db", cfg.DatabasePath)
	assert.Equal(t, "local_only", cfg.Purge.Strategy)
	assert.Equal(t, 1000, cfg.Purge.KeepLast)
}

func TestParse_ExplicitValues(t *testing.T) {
	cfg, err := Parse(`
device_id:     "phone"
database_path: "/data/notes.loam"
purge: {
	strategy:       "with_sync"
	retention_days: 7
}
`)
	require.NoError(t, err)

	assert.Equal(t, "/data/notes.loam", cfg.DatabasePath)
	assert.Equal(t, op.WithSync{RetentionDays: 7}, cfg.PurgeStrategy())
}

func TestParse_MissingDeviceID(t *testing.T) {
	_, err := Parse(`database_path: "x.db"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParse_UnknownStrategyRejected(t *testing.T) {
	_, err := Parse(`
device_id: "laptop"
purge: strategy: "yolo"
`)
	require.Error(t, err)
}

func TestParse_NonPositiveKeepLastRejected(t *testing.T) {
	_, err := Parse(`
device_id: "laptop"
purge: keep_last: 0
`)
	require.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loam.cue")
	require.NoError(t, os.WriteFile(path, []byte(`device_id: "laptop"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, op.LocalOnly{KeepLast: 1000}, cfg.PurgeStrategy())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
}
