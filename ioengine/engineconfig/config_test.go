package engineconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestGetPresetKnownNames(t *testing.T) {
	for _, name := range []string{"", "default", "low-latency", "batch"} {
		c, err := GetPreset(name)
		require.NoErrorf(t, err, "GetPreset(%q)", name)
		assert.NoErrorf(t, c.Validate(), "preset %q invalid", name)
	}
}

func TestGetPresetUnknownErrors(t *testing.T) {
	_, err := GetPreset("bogus")
	require.Error(t, err)
}

func TestLoadFromFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("IOENGINE_MAX_PARALLEL", "99")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, c.MaxParallel, "env override should win over file value")
}

func TestValidateRejectsInconsistentParallelism(t *testing.T) {
	c := DefaultConfig()
	c.MinParallel = 10
	c.MaxParallel = 2
	require.Error(t, c.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	c := DefaultConfig()
	c.Logging.Level = "not-a-level"
	require.Error(t, c.Validate())
}

func TestSaveToFileRoundTrips(t *testing.T) {
	c := BatchPreset()
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, c.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.MaxParallel, loaded.MaxParallel)
	assert.Equal(t, c.MinParallel, loaded.MinParallel)
}
