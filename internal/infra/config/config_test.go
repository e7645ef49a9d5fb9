package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 768, cfg.Window.Height)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, 9229, cfg.Browser.DebugPort)
	assert.Equal(t, 15, cfg.Browser.StartupTimeout)
	assert.True(t, cfg.Notification.Enabled)
	assert.Equal(t, "auto", cfg.Notification.Backend)
	assert.Equal(t, "audio-x-generic", cfg.Notification.Icon)
	assert.True(t, cfg.IPC.Enabled)
	assert.True(t, cfg.MPRIS.Enabled)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
browser:
  path: /usr/bin/chromium
  debug_port: 9333
  extra_args: ["--disable-gpu"]
window:
  width: 800
  height: 600
store:
  type: sqlite
  settings:
    path: /tmp/tracks.db
notification:
  enabled: false
  icon: /usr/share/icons/xiami.png
mpris:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Path)
	assert.Equal(t, 9333, cfg.Browser.DebugPort)
	assert.Equal(t, []string{"--disable-gpu"}, cfg.Browser.ExtraArgs)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/tracks.db", cfg.Store.Settings["path"])
	assert.False(t, cfg.Notification.Enabled, "explicit false must not be replaced by the default")
	assert.Equal(t, "/usr/share/icons/xiami.png", cfg.Notification.Icon)
	assert.False(t, cfg.MPRIS.Enabled)
	assert.True(t, cfg.IPC.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
store:
  type: file
`)
	t.Setenv("XIAMIBOX_BROWSER_PATH", "/opt/chrome/chrome")
	t.Setenv("XIAMIBOX_STORE_TYPE", "redis")
	t.Setenv("XIAMIBOX_REDIS_PASSWORD", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser.Path)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "secret", cfg.Store.Settings["password"])
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown store type",
			content: "store:\n  type: mongo\n",
			errMsg:  "Type",
		},
		{
			name:    "debug port out of range",
			content: "browser:\n  debug_port: 80\n",
			errMsg:  "DebugPort",
		},
		{
			name:    "window too small",
			content: "window:\n  width: 10\n",
			errMsg:  "Width",
		},
		{
			name:    "unknown notification backend",
			content: "notification:\n  backend: growl\n",
			errMsg:  "Backend",
		},
		{
			name:    "malformed yaml",
			content: "store: [unterminated",
			errMsg:  "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Store.Type)
}
