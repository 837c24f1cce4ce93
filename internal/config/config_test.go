package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "COMMAND_PREFIXES", "STORAGE_DRIVER", "COMMAND_MENTIONS", "RATELIMIT_SWEEP_INTERVAL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.StorageDriver)
	assert.True(t, cfg.MentionsEnabled)
	assert.Equal(t, time.Minute, cfg.RatelimitSweep)
	assert.Equal(t, []string{"!"}, cfg.Prefixes)
}

func TestLoad_CommandSettings(t *testing.T) {
	t.Setenv("COMMAND_PREFIXES", "!,!!,bot.")
	t.Setenv("COMMAND_ACTIVATE_ON_EDITS", "true")
	t.Setenv("COMMAND_MAX_EDIT_DURATION", "30s")
	t.Setenv("COMMAND_MENTIONS", "false")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	d := cfg.Dispatch()
	assert.Equal(t, []string{"!", "!!", "bot."}, d.Prefixes)
	assert.True(t, d.ActivateOnEdits)
	assert.Equal(t, 30*time.Second, d.MaxEditDuration)
	assert.False(t, d.MentionsEnabled)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")
	_, err := Load()
	assert.Error(t, err)
}

func TestIsDeveloper(t *testing.T) {
	cfg := &Config{DeveloperID: "42"}
	assert.True(t, IsDeveloper(cfg, "42"))
	assert.False(t, IsDeveloper(cfg, "43"))
	assert.False(t, IsDeveloper(&Config{}, ""))
	assert.False(t, IsDeveloper(nil, "42"))
}
