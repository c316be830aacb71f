package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsEmptyAppName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppName = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveParallelism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.MaxParallelOperations = 0
	assert.Error(t, cfg.Validate())
}

func TestNewManagerFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), mgr.GetConfig())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rescene.yaml")
	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Batch.MaxParallelOperations = 8

	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestUpdateConfigPersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rescene.yaml")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	updated := DefaultConfig()
	updated.Batch.MaxParallelOperations = 2
	require.NoError(t, mgr.UpdateConfig(updated))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Batch.MaxParallelOperations)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "rescene.yaml"))
	require.NoError(t, err)

	bad := DefaultConfig()
	bad.AppName = ""
	assert.Error(t, mgr.UpdateConfig(bad))
}

func TestGetConfigReturnsIndependentCopy(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "rescene.yaml"))
	require.NoError(t, err)

	cfg := mgr.GetConfig()
	cfg.AppName = "mutated"
	assert.Equal(t, "rescene", mgr.GetConfig().AppName)
}
