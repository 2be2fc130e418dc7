// Package playback plays each agent reply exactly once, exclusively.
package playback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mhoran/frontdesk/internal/audio"
	"github.com/mhoran/frontdesk/internal/backend"
	"github.com/mhoran/frontdesk/internal/config"
)

// Player streams decoded PCM to the output device until done or stopped.
type Player interface {
	PlayPCM16(samples []int16, sampleRate int, channels int, latencySeconds float64, stop <-chan struct{}) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(samples []int16, sampleRate int, channels int, latencySeconds float64, stop <-chan struct{}) error

func (f PlayerFunc) PlayPCM16(samples []int16, sampleRate int, channels int, latencySeconds float64, stop <-chan struct{}) error {
	return f(samples, sampleRate, channels, latencySeconds, stop)
}

// Controller owns the output device for the duration of one reply. Before a
// new task starts, any current task is stopped and released.
type Controller struct {
	cfg    config.Config
	logger *slog.Logger
	player Player
	synth  Synthesizer

	mu      sync.Mutex
	current *Task
}

func NewController(cfg config.Config, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
		player: PlayerFunc(audio.PlayPCM16),
		synth:  newCommandSynthesizer(cfg.Speech.Command),
	}
}

// NewControllerWith wires explicit player/synthesizer implementations.
func NewControllerWith(cfg config.Config, logger *slog.Logger, player Player, synth Synthesizer) *Controller {
	return &Controller{cfg: cfg, logger: logger, player: player, synth: synth}
}

// Play speaks one turn's reply and blocks until completion, failure, or an
// interrupt. It returns the source that was attempted so callers can phrase
// "reply received, audio failed" distinctly from a failed exchange.
func (c *Controller) Play(ctx context.Context, turn backend.Turn) (Source, error) {
	source := SourceLocalSynth
	if len(turn.ReplyAudio) > 0 {
		source = SourceRemoteAudio
	}
	task := newTask(source)

	c.mu.Lock()
	prev := c.current
	c.current = task
	c.mu.Unlock()

	// The output device is exclusive: the previous task must release it
	// before this one starts.
	if prev != nil {
		prev.Interrupt()
		<-prev.released
	}

	defer func() {
		c.mu.Lock()
		if c.current == task {
			c.current = nil
		}
		c.mu.Unlock()
		close(task.released)
	}()

	task.setState(TaskPlaying)

	var err error
	switch source {
	case SourceRemoteAudio:
		err = c.playRemote(turn.ReplyAudio, task)
	default:
		err = c.speakLocal(ctx, turn.ReplyText, task)
	}

	if err != nil {
		task.setState(TaskFailed)
		return source, err
	}
	task.setState(TaskCompleted)
	return source, nil
}

// Stop interrupts the current task, if any. It does not wait for release;
// Play's own cleanup handles that before returning.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Interrupt()
	}
}

// Active reports whether a task currently owns the output device.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Controller) playRemote(replyAudio []byte, task *Task) error {
	samples, sampleRate, channels, err := decodeMP3(replyAudio)
	if err != nil {
		return err
	}
	return c.player.PlayPCM16(samples, sampleRate, channels, c.cfg.Playback.LatencySeconds, task.stop)
}

func (c *Controller) speakLocal(ctx context.Context, replyText string, task *Task) error {
	speakCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-task.stop:
			cancel()
		case <-done:
		}
	}()

	err := c.synth.Speak(speakCtx, replyText)
	if err != nil && speakCtx.Err() != nil {
		// An interrupt kills the speech process mid-utterance; the process
		// exit error must not read as a dead audio path.
		return speakCtx.Err()
	}
	return err
}
