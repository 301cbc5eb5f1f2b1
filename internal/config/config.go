// Package config loads run settings from .env, an optional YAML file,
// TERMINAL_BDD_* environment variables and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TERMINAL_BDD"

// Config is the decoded view of all settings used by a run.
type Config struct {
	Features []string
	Tags     string
	Format   string // godog formatter
	Strict   bool

	ReportDir string

	AbortOnSetupFailure bool
	CleanupSkipTag      string
	CleanupPaths        []string

	RetryInterval    time.Duration
	AppAttempts      int
	FindAttempts     int
	DecorationOffset int

	SessionType string
	Resolution  string

	ScreenshotOnFailure bool
	ScreenshotScale     float64

	MetricsTextfile string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("features", []string{"features"})
	v.SetDefault("tags", "")
	v.SetDefault("format", "pretty")
	v.SetDefault("strict", true)
	v.SetDefault("report.dir", "")
	v.SetDefault("setup.abort_on_failure", false)
	v.SetDefault("cleanup.skip_tag", "@leapp")
	v.SetDefault("cleanup.paths", []string{
		"/org/gnome/terminal/legacy/",
		"/org/gtk/settings/debug/enable-inspector-keybinding",
	})
	v.SetDefault("retry.interval", time.Second)
	v.SetDefault("retry.app_attempts", 30)
	v.SetDefault("retry.find_attempts", 5)
	v.SetDefault("geometry.decoration_offset", 27)
	v.SetDefault("session.type", "")
	v.SetDefault("session.resolution", "")
	v.SetDefault("screenshot.on_failure", true)
	v.SetDefault("screenshot.scale", 0.5)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads .env (if present), then cfgFile or ./terminal-bdd.yaml, and
// enables environment overrides. A missing default config file is not an
// error; a missing explicit one is.
func Load(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("terminal-bdd")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	slog.Debug("using config file", "path", v.ConfigFileUsed())
	return nil
}

// Decode builds a Config from v and validates it.
func Decode(v *viper.Viper) (Config, error) {
	c := Config{
		Features:            v.GetStringSlice("features"),
		Tags:                v.GetString("tags"),
		Format:              v.GetString("format"),
		Strict:              v.GetBool("strict"),
		ReportDir:           v.GetString("report.dir"),
		AbortOnSetupFailure: v.GetBool("setup.abort_on_failure"),
		CleanupSkipTag:      v.GetString("cleanup.skip_tag"),
		CleanupPaths:        v.GetStringSlice("cleanup.paths"),
		RetryInterval:       v.GetDuration("retry.interval"),
		AppAttempts:         v.GetInt("retry.app_attempts"),
		FindAttempts:        v.GetInt("retry.find_attempts"),
		DecorationOffset:    v.GetInt("geometry.decoration_offset"),
		SessionType:         v.GetString("session.type"),
		Resolution:          v.GetString("session.resolution"),
		ScreenshotOnFailure: v.GetBool("screenshot.on_failure"),
		ScreenshotScale:     v.GetFloat64("screenshot.scale"),
		MetricsTextfile:     v.GetString("metrics.textfile"),
		LogLevel:            v.GetString("log.level"),
		LogFormat:           v.GetString("log.format"),
		LogFile:             v.GetString("log.file"),
	}
	if c.CleanupSkipTag != "" && !strings.HasPrefix(c.CleanupSkipTag, "@") {
		c.CleanupSkipTag = "@" + c.CleanupSkipTag
	}
	return c, c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.AppAttempts < 1 {
		return fmt.Errorf("retry.app_attempts must be at least 1, got %d", c.AppAttempts)
	}
	if c.FindAttempts < 1 {
		return fmt.Errorf("retry.find_attempts must be at least 1, got %d", c.FindAttempts)
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("retry.interval must not be negative, got %s", c.RetryInterval)
	}
	if c.ScreenshotScale <= 0 || c.ScreenshotScale > 1 {
		return fmt.Errorf("screenshot.scale must be in (0, 1], got %g", c.ScreenshotScale)
	}
	switch c.SessionType {
	case "", "x11", "wayland":
	default:
		return fmt.Errorf("session.type must be x11 or wayland, got %q", c.SessionType)
	}
	return nil
}
