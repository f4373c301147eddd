package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_Defaults tests that tag defaults are applied when nothing
// else is set.
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "hd", cfg.Mirror.Quality)
	assert.Equal(t, 300, cfg.Mirror.WaitSeconds)
	assert.True(t, cfg.Mirror.Cleanup)
	assert.Equal(t, 3, cfg.Transfer.MaxRetries)
	assert.False(t, cfg.Replica.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoadConfig_EnvOverride tests that environment variables override the
// tag defaults via the key replacer.
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MIRROR_EVENT", "39c3")
	t.Setenv("MIRROR_QUALITY", "opus")
	t.Setenv("TRANSFER_MAX_RETRIES", "5")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "39c3", cfg.Mirror.Event)
	assert.Equal(t, "opus", cfg.Mirror.Quality)
	assert.Equal(t, 5, cfg.Transfer.MaxRetries)
}

// TestLoadConfig_DotEnvFile tests that a .env file in the config path is
// honored.
func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := []byte("MIRROR_EVENT=38c3\nMIRROR_CONCURRENCY=4\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), env, 0o644))

	// godotenv mutates the process environment. Register both keys with the
	// test so their original (unset) state is restored afterwards and the
	// loaded values cannot bleed into other tests in this package.
	t.Setenv("MIRROR_EVENT", "")
	t.Setenv("MIRROR_CONCURRENCY", "")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "38c3", cfg.Mirror.Event)
	assert.Equal(t, 4, cfg.Mirror.Concurrency)
}

// TestPresetFor tests preset lookup and the error for unknown names.
func TestPresetFor(t *testing.T) {
	p, err := PresetFor("webm-sd")
	require.NoError(t, err)
	assert.Equal(t, "webm", p.FeedName)
	assert.Equal(t, ".webm", p.Extension)

	_, err = PresetFor("4k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown quality")
}

// TestResolve_Layout tests that paths and URLs are derived from one place.
func TestResolve_Layout(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Mirror.Event = "39c3"
	cfg.Mirror.BaseDir = "/srv/media"

	layout, err := Resolve(cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/srv/media", "39c3"), layout.EventDir)
	assert.Equal(t, filepath.Join("/srv/media", "39c3", "releases"), layout.ReleasesDir)
	assert.Equal(t, filepath.Join("/srv/media", "39c3", "relive"), layout.ReliveDir)
	assert.Equal(t, "https://media.ccc.de/c/39c3/podcast/mp4-hq.xml", layout.FeedURL)
	assert.Equal(t, "https://streaming.media.ccc.de/39c3/relive", layout.ReliveListURL)
	assert.Equal(t, "https://cdn.c3voc.de/relive/39c3", layout.ReliveCDN)
	assert.Equal(t, filepath.Join("/srv/media", "39c3", "history.db"), layout.CatalogPath)
	assert.Equal(t, 5*time.Minute, layout.WaitTime)
	assert.Equal(t, 1, layout.Concurrency)
}

// TestResolve_RequiresEvent tests that a missing event is rejected.
func TestResolve_RequiresEvent(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	_, err = Resolve(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event configured")
}

// TestEnsureDirectories tests that the event tree is created and that
// repeated calls are harmless.
func TestEnsureDirectories(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Mirror.Event = "39c3"
	cfg.Mirror.BaseDir = t.TempDir()

	layout, err := Resolve(cfg)
	require.NoError(t, err)

	require.NoError(t, layout.EnsureDirectories())
	require.NoError(t, layout.EnsureDirectories())

	for _, dir := range []string{layout.ReleasesDir, layout.ReliveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
