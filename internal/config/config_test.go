package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg map[string]interface{}) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "betterui.json")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Builtins.Enabled)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Audit.DBPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, map[string]interface{}{
		"data_dir": t.TempDir(),
		"server": map[string]interface{}{
			"enabled": true,
			"port":    8080,
		},
		"builtins": map[string]interface{}{
			"enabled":     true,
			"allow_fetch": true,
		},
		"schedules": []map[string]interface{}{
			{"name": "echo", "spec": "*/5 * * * *", "input": map[string]interface{}{"message": "tick"}},
		},
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Builtins.AllowFetch)
	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, "echo", cfg.Schedules[0].Name)
	assert.Equal(t, "*/5 * * * *", cfg.Schedules[0].Spec)
	assert.Equal(t, "tick", cfg.Schedules[0].Input["message"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BETTERUI_SERVER_PORT", "9999")

	path := writeConfig(t, map[string]interface{}{
		"data_dir": t.TempDir(),
		"server":   map[string]interface{}{"enabled": true, "port": 3001},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("BETTERUI_SERVER_PORT", "8088")
	t.Setenv("BETTERUI_BUILTINS_ALLOW_FETCH", "true")
	t.Setenv("BETTERUI_LOGGING_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.True(t, cfg.Builtins.AllowFetch)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betterui.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "negative rate limit", mutate: func(c *Config) { c.Server.RateLimitPerMinute = -1 }, wantErr: "rate limit"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "schedule without name", mutate: func(c *Config) {
			c.Schedules = []ScheduleConfig{{Spec: "* * * * *"}}
		}, wantErr: "missing a capability name"},
		{name: "schedule without spec", mutate: func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "echo"}}
		}, wantErr: "missing a cron spec"},
		{name: "duplicate schedule", mutate: func(c *Config) {
			c.Schedules = []ScheduleConfig{
				{Name: "echo", Spec: "* * * * *"},
				{Name: "echo", Spec: "* * * * *"},
			}
		}, wantErr: "duplicate schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betterui.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Server.Port = 9999
	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.Server.Port)
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/x.log"

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "/tmp/x.log", lc.File)
	assert.True(t, lc.Redaction)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "betterui.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir":"`+dir+`","server":{"enabled":true,"port":3001}}`), 0o644))

	loader := NewLoader(path)
	reloaded := make(chan *Config, 1)

	w, err := NewWatcher(loader, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir":"`+dir+`","server":{"enabled":true,"port":4242}}`), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 4242, cfg.Server.Port)
	case <-time.After(3 * time.Second):
		t.Fatal("config reload was not observed")
	}
}

func TestWatcher_RequiresCallback(t *testing.T) {
	_, err := NewWatcher(NewLoader(""), nil, zerolog.Nop())
	assert.Error(t, err)
}
