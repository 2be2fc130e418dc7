// Package session coordinates the call lifecycle: one state machine, one
// action loop, and the collaborators that record, exchange, and speak turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mhoran/frontdesk/internal/audio"
	"github.com/mhoran/frontdesk/internal/backend"
	"github.com/mhoran/frontdesk/internal/fsm"
	"github.com/mhoran/frontdesk/internal/ipc"
	"github.com/mhoran/frontdesk/internal/playback"
	"github.com/mhoran/frontdesk/internal/recorder"
)

type actionKind int

const (
	actionBegin actionKind = iota + 1
	actionSeal
	actionFinalize
)

type action struct {
	kind  actionKind
	name  string
	email string
}

// CallSession is the controller-owned view of one live call. It is logically
// destroyed once the call is finalized.
type CallSession struct {
	ID          string
	TurnCount   int
	CallerName  string
	CallerEmail string
	Summary     string
}

// Gate probes microphone access before the call starts.
type Gate interface {
	RequestAccess(ctx context.Context) (audio.Selection, error)
}

// Recorder owns the capture device for one utterance at a time.
type Recorder interface {
	Begin(ctx context.Context) error
	End(ctx context.Context) (recorder.Utterance, error)
	Cancel(ctx context.Context) error
}

// TurnRunner exchanges one sealed utterance for a reply.
type TurnRunner interface {
	Process(ctx context.Context, sessionID string, utterance recorder.Utterance) (backend.Turn, error)
}

// Speaker plays one reply at a time and can be interrupted.
type Speaker interface {
	Play(ctx context.Context, turn backend.Turn) (playback.Source, error)
	Stop()
}

// Backend covers the session lifecycle exchanges the controller drives
// directly; turn submission goes through the TurnRunner.
type Backend interface {
	CreateSession(ctx context.Context) (string, error)
	FinalizeSession(ctx context.Context, sessionID string, callerName string, callerEmail string) (string, error)
}

// Display is the session-facing subset of UI behavior.
type Display interface {
	ShowStatus(ctx context.Context, message string)
	ShowError(ctx context.Context, message string)
	ShowSummary(ctx context.Context, summary string)
}

// noopDisplay preserves controller flow when no display is wired.
type noopDisplay struct{}

func (noopDisplay) ShowStatus(context.Context, string)  {}
func (noopDisplay) ShowError(context.Context, string)   {}
func (noopDisplay) ShowSummary(context.Context, string) {}

// Controller orchestrates call state transitions and side effects.
type Controller struct {
	logger   *slog.Logger
	gate     Gate
	recorder Recorder
	turns    TurnRunner
	speaker  Speaker
	backend  Backend
	display  Display

	mu    sync.RWMutex
	state fsm.State
	call  CallSession

	actions chan action
}

// NewController constructs a call controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	gate Gate,
	rec Recorder,
	turns TurnRunner,
	speaker Speaker,
	client Backend,
	display Display,
) *Controller {
	if display == nil {
		display = noopDisplay{}
	}

	return &Controller{
		logger:   logger,
		gate:     gate,
		recorder: rec,
		turns:    turns,
		speaker:  speaker,
		backend:  client,
		display:  display,
		state:    fsm.StateIdle,
		actions:  make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Call returns a snapshot of the live call.
func (c *Controller) Call() CallSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.call
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run owns one call from microphone probe to finalize. It returns nil when
// the call was finalized and the context error when interrupted.
func (c *Controller) Run(ctx context.Context) error {
	if _, err := c.gate.RequestAccess(ctx); err != nil {
		c.display.ShowError(ctx, "Microphone unavailable, cannot start the call")
		return err
	}

	sessionID, err := c.backend.CreateSession(ctx)
	if err != nil {
		c.display.ShowError(ctx, "Unable to reach the receptionist")
		return err
	}
	c.mu.Lock()
	c.call.ID = sessionID
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("call started", "session_id", sessionID)
	}
	c.display.ShowStatus(ctx, "Connected. Ready when you are.")

	// An interrupt while a reply is playing must silence it before exit.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.speaker.Stop()
			_ = c.recorder.Cancel(context.Background())
		case <-done:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.speaker.Stop()
			_ = c.recorder.Cancel(context.Background())
			return ctx.Err()
		case a := <-c.actions:
			switch a.kind {
			case actionBegin:
				c.handleBegin(ctx)
			case actionSeal:
				c.handleSeal(ctx)
			case actionFinalize:
				if c.handleFinalize(ctx, a.name, a.email) {
					return nil
				}
			default:
				return fmt.Errorf("unknown action %d", a.kind)
			}
		}
	}
}

// handleBegin acquires the capture device and enters recording.
func (c *Controller) handleBegin(ctx context.Context) {
	if err := c.transition(fsm.EventBegin); err != nil {
		return
	}

	if err := c.recorder.Begin(ctx); err != nil {
		_ = c.transition(fsm.EventFail)
		c.display.ShowError(ctx, "Unable to start recording")
		c.logWarn("recording start failed", err)
		return
	}
	c.display.ShowStatus(ctx, "Recording. Speak now.")
}

// handleSeal ends the capture, submits the utterance, and plays the reply.
func (c *Controller) handleSeal(ctx context.Context) {
	utterance, err := c.recorder.End(ctx)
	if err != nil {
		if errors.Is(err, recorder.ErrEmptyRecording) {
			_ = c.transition(fsm.EventDiscard)
			c.display.ShowStatus(ctx, "Nothing captured. Ready when you are.")
			return
		}
		_ = c.transition(fsm.EventFail)
		c.display.ShowError(ctx, "Recording failed")
		c.logWarn("recording end failed", err)
		return
	}

	if err := c.transition(fsm.EventSeal); err != nil {
		_ = c.transition(fsm.EventFail)
		return
	}
	c.display.ShowStatus(ctx, "Waiting for the receptionist...")

	turn, err := c.turns.Process(ctx, c.Call().ID, utterance)
	if err != nil {
		_ = c.transition(fsm.EventFail)
		c.display.ShowError(ctx, turnFailureMessage(err))
		c.logWarn("turn failed", err)
		return
	}

	c.mu.Lock()
	if turn.TurnIndex > 0 {
		c.call.TurnCount = turn.TurnIndex
	} else {
		c.call.TurnCount++
	}
	c.mu.Unlock()

	_ = c.transition(fsm.EventReply)
	c.display.ShowStatus(ctx, "Playing reply...")

	source, err := c.speaker.Play(ctx, turn)
	if err != nil && !errors.Is(err, context.Canceled) {
		_ = c.transition(fsm.EventFail)
		// The exchange itself succeeded; only the audio path failed.
		c.display.ShowError(ctx, playbackFailureMessage(source))
		c.logWarn("playback failed", err)
		return
	}

	_ = c.transition(fsm.EventPlayed)
	c.display.ShowStatus(ctx, "Ready when you are.")
}

// handleFinalize ends the call. A failed finalize keeps the call alive so the
// caller can retry; true means the call is over and Run should return.
func (c *Controller) handleFinalize(ctx context.Context, name string, email string) bool {
	summary, err := c.backend.FinalizeSession(ctx, c.Call().ID, name, email)
	if err != nil {
		c.display.ShowError(ctx, "Unable to end the call. Try again.")
		c.logWarn("finalize failed", err)
		return false
	}

	c.mu.Lock()
	c.call.CallerName = name
	c.call.CallerEmail = email
	c.call.Summary = summary
	c.mu.Unlock()

	_ = c.transition(fsm.EventFinalize)
	c.display.ShowSummary(ctx, summary)
	if c.logger != nil {
		c.logger.Info("call ended", "session_id", c.Call().ID, "turns", c.Call().TurnCount)
	}
	return true
}

// Handle serves IPC commands for the active call owner.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		call := c.Call()
		return ipc.Response{OK: true, State: string(c.State()), Turns: call.TurnCount, Summary: call.Summary}
	case "record":
		return c.requestBegin()
	case "stop":
		return c.requestSeal()
	case "end":
		return c.requestFinalize(req.Name, req.Email)
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestBegin enqueues a record action when state permits it.
func (c *Controller) requestBegin() ipc.Response {
	state := c.State()
	if state == fsm.StateEnded {
		return ipc.Response{OK: false, State: string(state), Error: "call already ended"}
	}
	if state != fsm.StateIdle {
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}

	select {
	case c.actions <- action{kind: actionBegin}:
		return ipc.Response{OK: true, State: string(state), Message: "recording requested"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}
}

// requestSeal enqueues a stop-recording action when state permits it.
func (c *Controller) requestSeal() ipc.Response {
	state := c.State()
	if state == fsm.StateEnded {
		return ipc.Response{OK: false, State: string(state), Error: "call already ended"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}

	select {
	case c.actions <- action{kind: actionSeal}:
		return ipc.Response{OK: true, State: string(state), Message: "processing turn"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}
}

// requestFinalize enqueues an end-call action. Ending while a reply plays is
// allowed; playback is stopped first so the finalize lands from idle.
func (c *Controller) requestFinalize(name string, email string) ipc.Response {
	if strings.TrimSpace(name) == "" {
		return ipc.Response{OK: false, State: string(c.State()), Error: "caller name is required to end the call"}
	}

	state := c.State()
	switch state {
	case fsm.StateEnded:
		return ipc.Response{OK: false, State: string(state), Error: "call already ended"}
	case fsm.StateIdle:
	case fsm.StateSpeaking:
		c.speaker.Stop()
	default:
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}

	select {
	case c.actions <- action{kind: actionFinalize, name: strings.TrimSpace(name), email: strings.TrimSpace(email)}:
		return ipc.Response{OK: true, State: string(state), Message: "ending call"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: pleaseWait(state)}
	}
}

func pleaseWait(state fsm.State) string {
	return fmt.Sprintf("please wait (%s)", state)
}

// turnFailureMessage surfaces the backend's own reason when it gave one.
func turnFailureMessage(err error) string {
	var submitErr *backend.SubmitError
	if errors.As(err, &submitErr) && submitErr.Reason != "" {
		return submitErr.Reason
	}
	return "Turn failed. Try again."
}

// playbackFailureMessage distinguishes a dead audio path from a dead exchange.
func playbackFailureMessage(source playback.Source) string {
	if source == playback.SourceLocalSynth {
		return "Reply received, but local speech synthesis failed"
	}
	return "Reply received, but audio playback failed"
}

func (c *Controller) logWarn(message string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message, "error", err)
}
