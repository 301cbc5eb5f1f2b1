package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	c, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"features"}, c.Features)
	assert.Equal(t, "@leapp", c.CleanupSkipTag)
	assert.Equal(t, []string{
		"/org/gnome/terminal/legacy/",
		"/org/gtk/settings/debug/enable-inspector-keybinding",
	}, c.CleanupPaths)
	assert.Equal(t, time.Second, c.RetryInterval)
	assert.Equal(t, 27, c.DecorationOffset)
	assert.False(t, c.AbortOnSetupFailure)
	assert.Equal(t, "pretty", c.Format)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terminal-bdd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tags: "@smoke"
setup:
  abort_on_failure: true
cleanup:
  skip_tag: upgrade
retry:
  interval: 250ms
`), 0o644))

	t.Setenv("TERMINAL_BDD_GEOMETRY_DECORATION_OFFSET", "37")
	t.Setenv("TERMINAL_BDD_SESSION_TYPE", "wayland")

	v := viper.New()
	require.NoError(t, Load(v, path))
	c, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, "@smoke", c.Tags)
	assert.True(t, c.AbortOnSetupFailure)
	assert.Equal(t, "@upgrade", c.CleanupSkipTag, "tag gains a leading @")
	assert.Equal(t, 250*time.Millisecond, c.RetryInterval)
	assert.Equal(t, 37, c.DecorationOffset)
	assert.Equal(t, "wayland", c.SessionType)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Load(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		v := viper.New()
		SetDefaults(v)
		c, err := Decode(v)
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.AppAttempts = 0 }},
		{"negative interval", func(c *Config) { c.RetryInterval = -time.Second }},
		{"scale too large", func(c *Config) { c.ScreenshotScale = 2 }},
		{"unknown session", func(c *Config) { c.SessionType = "mir" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
