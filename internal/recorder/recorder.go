// Package recorder captures one utterance at a time from the selected input device.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhoran/frontdesk/internal/audio"
	"github.com/mhoran/frontdesk/internal/config"
)

const captureSampleRate = audio.CaptureSampleRate

// ErrEmptyRecording indicates End sealed an utterance with no audio data.
// The condition is recoverable; the caller simply records again.
var ErrEmptyRecording = errors.New("no audio captured")

// Clock receives the 1 Hz MM:SS recording timer for display.
type Clock interface {
	ShowTimer(ctx context.Context, display string)
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func(ctx context.Context, display string)

func (f ClockFunc) ShowTimer(ctx context.Context, display string) {
	f(ctx, display)
}

// Recorder owns the capture device for the duration of one utterance:
// Begin acquires a fresh stream, End seals the fragments and releases it.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger
	clock  Clock

	mu        sync.Mutex
	capturing bool
	capture   *audio.Capture
	startedAt time.Time
	tickStop  chan struct{}
}

func New(cfg config.Config, logger *slog.Logger, clock Clock) *Recorder {
	return &Recorder{cfg: cfg, logger: logger, clock: clock}
}

// Begin acquires a fresh device handle and starts accumulating fragments.
// Valid only when no capture is active.
func (r *Recorder) Begin(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capturing {
		return fmt.Errorf("recorder already capturing")
	}

	selection, err := audio.SelectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	if selection.Warning != "" && r.logger != nil {
		r.logger.Warn(selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device)
	if err != nil {
		return err
	}

	r.capture = capture
	r.capturing = true
	r.startedAt = time.Now()
	r.tickStop = make(chan struct{})
	go r.runClock(ctx, r.startedAt, r.tickStop)

	return nil
}

// End seals the fragment sequence into one Utterance and releases the device
// handle and timer. Valid only while capturing.
func (r *Recorder) End(ctx context.Context) (Utterance, error) {
	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return Utterance{}, fmt.Errorf("recorder is not capturing")
	}
	capture := r.capture
	startedAt := r.startedAt
	close(r.tickStop)
	r.capturing = false
	r.capture = nil
	r.mu.Unlock()

	_ = capture.Stop()

	utterance := Utterance{
		Fragments:  capture.Fragments(),
		StartedAt:  startedAt,
		DurationMs: time.Since(startedAt).Milliseconds(),
	}
	if utterance.Empty() {
		return Utterance{}, ErrEmptyRecording
	}

	r.dumpDebugAudio(utterance)

	if r.logger != nil {
		r.logger.Info("utterance sealed",
			"device", capture.Device().ID,
			"fragments", len(utterance.Fragments),
			"bytes", capture.BytesCaptured(),
			"duration_ms", utterance.DurationMs,
		)
	}

	return utterance, nil
}

// Cancel releases an active capture without sealing an utterance.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.capturing {
		return nil
	}
	close(r.tickStop)
	_ = r.capture.Stop()
	r.capturing = false
	r.capture = nil
	return nil
}

// runClock surfaces elapsed recording time at 1 Hz until stopped.
func (r *Recorder) runClock(ctx context.Context, startedAt time.Time, stop <-chan struct{}) {
	if r.clock == nil {
		return
	}

	r.clock.ShowTimer(ctx, FormatClock(0))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.clock.ShowTimer(ctx, FormatClock(now.Sub(startedAt)))
		}
	}
}

// FormatClock renders an elapsed duration as MM:SS.
func FormatClock(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// dumpDebugAudio writes the sealed utterance as WAV when debug.audio_dump is set.
func (r *Recorder) dumpDebugAudio(utterance Utterance) {
	if !r.cfg.Debug.AudioDump {
		return
	}

	stateDir, err := resolveStateDir()
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to resolve debug dir: %v", err))
		return
	}
	debugDir := filepath.Join(stateDir, "frontdesk", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		r.logWarn(fmt.Sprintf("unable to create debug dir: %v", err))
		return
	}

	path := filepath.Join(debugDir, fmt.Sprintf("utterance-%s.wav", uuid.NewString()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to open debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if err := WritePCM16WAV(file, utterance.PCM(), captureSampleRate, 1); err != nil {
		r.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// resolveStateDir returns the XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// logWarn emits warning-level logs when a logger is configured.
func (r *Recorder) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}
