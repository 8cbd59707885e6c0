package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelManager_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	mm, err := NewModelManager(dir)
	require.NoError(t, err)
	assert.Nil(t, mm.GetCurrentVersion())

	require.NoError(t, mm.AddVersion("v1", "v1.json", ModelMetrics{RMSE: 5}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mm.AddVersion("v2", "v2.json", ModelMetrics{RMSE: 4}))
	assert.Error(t, mm.AddVersion("v2", "other.json", ModelMetrics{}))

	versions := mm.ListVersions()
	require.Len(t, versions, 2)
	assert.Equal(t, "v2", versions[0].Version, "newest first")

	require.NoError(t, mm.ActivateVersion("v2"))
	assert.Equal(t, "v2", mm.GetCurrentVersion().Version)
	assert.Error(t, mm.ActivateVersion("v9"))

	require.NoError(t, mm.Rollback())
	assert.Equal(t, "v1", mm.GetCurrentVersion().Version)
	assert.Error(t, mm.Rollback(), "v1 is the oldest")

	// State survives a reload.
	reloaded, err := NewModelManager(dir)
	require.NoError(t, err)
	require.NotNil(t, reloaded.GetCurrentVersion())
	assert.Equal(t, "v1", reloaded.GetCurrentVersion().Version)
	assert.Equal(t, 5.0, reloaded.GetCurrentVersion().Metrics.RMSE)
}

func TestModelManager_RollbackNeedsActive(t *testing.T) {
	mm, err := NewModelManager(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, mm.Rollback())

	require.NoError(t, mm.AddVersion("a", "a.json", ModelMetrics{}))
	require.NoError(t, mm.AddVersion("b", "b.json", ModelMetrics{}))
	assert.ErrorContains(t, mm.Rollback(), "no active version")
}

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "model.json")
	require.NoError(t, SavePipeline(file, NewFixturePipeline(1, nil)))

	got, err := ResolveModelPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = ResolveModelPath(dir)
	assert.ErrorContains(t, err, "no active model version")

	mm, err := NewModelManager(dir)
	require.NoError(t, err)
	require.NoError(t, mm.AddVersion("fixture", "model.json", MetricsFromMetadata(NewFixturePipeline(1, nil).Metadata)))
	require.NoError(t, mm.ActivateVersion("fixture"))

	got, err = ResolveModelPath(dir)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = ResolveModelPath(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestModelManager_HasVersion(t *testing.T) {
	mm, err := NewModelManager(t.TempDir())
	require.NoError(t, err)

	assert.False(t, mm.HasVersion("v1"))
	require.NoError(t, mm.AddVersion("v1", "v1.json", ModelMetrics{}))
	assert.True(t, mm.HasVersion("v1"))
	assert.False(t, mm.HasVersion("v2"))
}

func TestNewModelManager_CorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, VersionsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewModelManager(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), VersionsFile)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "registry left untouched")
}
