// Package mic gates call startup on microphone availability.
package mic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mhoran/frontdesk/internal/audio"
	"github.com/mhoran/frontdesk/internal/config"
)

// ErrAccessDenied indicates the capture device could not be acquired. The
// condition is terminal for the call; retrying requires an out-of-band fix
// (server running, device unmuted) and a new call.
var ErrAccessDenied = errors.New("microphone access denied")

// Gate probes capture access once per call. The probe acquires a device
// selection and releases it immediately; no handle stays open between
// utterances.
type Gate struct {
	input    string
	fallback string
	logger   *slog.Logger
}

func NewGate(cfg config.AudioConfig, logger *slog.Logger) *Gate {
	return &Gate{input: cfg.Input, fallback: cfg.Fallback, logger: logger}
}

// RequestAccess resolves the configured input source against live devices.
func (g *Gate) RequestAccess(ctx context.Context) (audio.Selection, error) {
	selection, err := audio.SelectDevice(ctx, g.input, g.fallback)
	if err != nil {
		return audio.Selection{}, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if selection.Warning != "" && g.logger != nil {
		g.logger.Warn(selection.Warning)
	}
	return selection, nil
}

// IsAccessDenied reports whether an error represents a denied microphone probe.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
