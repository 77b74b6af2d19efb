package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "generic", cfg.GPU.Family)
	assert.Equal(t, 10*time.Second, cfg.ImageProcessing.FenceTimeout())
	assert.Equal(t, "warn", cfg.Loader.DuplicateNames)
	assert.True(t, cfg.Loader.GenerateMipMaps)
	assert.True(t, cfg.Animator.Looping)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileYAMLMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gear.yaml")
	content := `
gpu:
  family: d3d12
image_processing:
  fence_timeout_ms: 250
loader:
  duplicate_names: reject
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "d3d12", cfg.GPU.Family)
	assert.Equal(t, 250*time.Millisecond, cfg.ImageProcessing.FenceTimeout())
	assert.Equal(t, "reject", cfg.Loader.DuplicateNames)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Loader.DecodeWorkers)
	assert.True(t, cfg.Animator.Looping)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gear.toml")
	content := `
[animator]
looping = false

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.False(t, cfg.Animator.Looping)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "generic", cfg.GPU.Family)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveToRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Bake.OutSize = 1024
	cfg.ImageProcessing.PipelineDir = "/tmp/pipelines"

	for _, name := range []string{"out.yaml", "nested/out.toml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveTo(path))

		loaded, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, 1024, loaded.Bake.OutSize, name)
		assert.Equal(t, "/tmp/pipelines", loaded.ImageProcessing.PipelineDir, name)
	}
}
