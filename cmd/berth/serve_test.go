package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/berth/pkg/config"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 0.0.0.0:7000
storage:
  backend: bolt
  dataDir: /var/lib/berth
policy:
  strategy: round-robin
`), 0o600))

	require.NoError(t, serveCmd.ParseFlags([]string{
		"--config", path,
		"--storage", "memory",
		"--read-only",
		"--no-drain",
	}))

	cfg, err := loadConfig(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend)
	assert.True(t, cfg.Server.ReadOnly)
	assert.False(t, cfg.Drain.Enabled)
	assert.Equal(t, types.StrategyRoundRobin, cfg.Policy.Strategy)
}

func TestSeedPolicy(t *testing.T) {
	store := storage.NewMemoryStore()
	cfg := config.Default()
	cfg.Policy.MaxInstancesPerNode = 3

	require.NoError(t, seedPolicy(store, cfg))
	stored, err := store.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, 3, stored.MaxInstancesPerNode)

	// An existing policy wins over the file
	cfg.Policy.MaxInstancesPerNode = 7
	require.NoError(t, seedPolicy(store, cfg))
	stored, err = store.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, 3, stored.MaxInstancesPerNode)
}
