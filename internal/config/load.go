package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loaded captures the resolved config path and parsed values.
type Loaded struct {
	Path   string
	Config Config
	Exists bool
}

// Load resolves, reads, and validates the runtime configuration. A missing
// file is not an error; environment overrides still apply on top of defaults.
func Load(explicitPath string) (Loaded, error) {
	// A local .env is optional; absence is the common case.
	_ = godotenv.Load()

	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	v := viper.New()
	v.SetConfigFile(resolvedPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	exists := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			exists = false
		} else {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	if err := Validate(cfg); err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{Path: resolvedPath, Config: cfg, Exists: exists}, nil
}

// ResolvePath selects the explicit path when given, otherwise the XDG config location.
func ResolvePath(explicitPath string) (string, error) {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "frontdesk", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for config: %w", err)
	}
	return filepath.Join(home, ".config", "frontdesk", "config.yaml"), nil
}

func setDefaults(v *viper.Viper, base Config) {
	v.SetDefault("backend.base_url", base.Backend.BaseURL)
	v.SetDefault("backend.timeout", base.Backend.Timeout)
	v.SetDefault("backend.health_path", base.Backend.HealthPath)
	v.SetDefault("audio.input", base.Audio.Input)
	v.SetDefault("audio.fallback", base.Audio.Fallback)
	v.SetDefault("speech.command", base.Speech.Command)
	v.SetDefault("playback.latency_seconds", base.Playback.LatencySeconds)
	v.SetDefault("debug.audio_dump", base.Debug.AudioDump)
}
