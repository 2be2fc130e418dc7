// Package config resolves, loads, and validates frontdesk configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// BackendConfig locates the receptionist backend.
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	HealthPath string        `mapstructure:"health_path"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `mapstructure:"input"`
	Fallback string `mapstructure:"fallback"`
}

// SpeechConfig controls the local text-to-speech fallback command.
type SpeechConfig struct {
	Command string `mapstructure:"command"`
}

// PlaybackConfig controls reply playback stream behavior.
type PlaybackConfig struct {
	LatencySeconds float64 `mapstructure:"latency_seconds"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool `mapstructure:"audio_dump"`
}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:    "http://127.0.0.1:5000",
			Timeout:    45 * time.Second,
			HealthPath: "/health",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Speech: SpeechConfig{
			Command: "espeak-ng",
		},
		Playback: PlaybackConfig{
			LatencySeconds: 0.1,
		},
		Debug: DebugConfig{
			AudioDump: false,
		},
	}
}

// Validate enforces config invariants.
func Validate(cfg Config) error {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", base)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme must be http or https, got %q", parsed.Scheme)
	}
	if cfg.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be > 0")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.Backend.HealthPath), "/") {
		return fmt.Errorf("backend.health_path must start with '/'")
	}
	if strings.TrimSpace(cfg.Speech.Command) == "" {
		return fmt.Errorf("speech.command must not be empty")
	}
	if cfg.Playback.LatencySeconds <= 0 {
		return fmt.Errorf("playback.latency_seconds must be > 0")
	}
	return nil
}
