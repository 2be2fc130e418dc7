// Package doctor runs call readiness diagnostics for config, audio, speech, and the backend.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/mhoran/frontdesk/internal/audio"
	"github.com/mhoran/frontdesk/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("no file at %q, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkSpeechCommand(cfg.Config))
	checks = append(checks, checkBackendHealth(cfg.Config))

	return Report{Checks: checks}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkSpeechCommand validates that the local synthesis binary is runnable.
func checkSpeechCommand(cfg config.Config) Check {
	argv := strings.Fields(cfg.Speech.Command)
	if len(argv) == 0 {
		return Check{Name: "speech.command", Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: "speech.command", Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: "speech.command", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkBackendHealth probes the backend health endpoint.
func checkBackendHealth(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return Check{Name: "backend.health", Pass: false, Message: "backend.base_url is empty"}
	}

	url := strings.TrimRight(base, "/") + cfg.Backend.HealthPath
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}

	bodyText := strings.ToLower(strings.TrimSpace(string(body)))
	if bodyText != "" && !strings.Contains(bodyText, "healthy") && !strings.Contains(bodyText, "ok") {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("unexpected response from %s: %q", url, bodyText)}
	}

	return Check{Name: "backend.health", Pass: true, Message: fmt.Sprintf("healthy at %s", url)}
}
