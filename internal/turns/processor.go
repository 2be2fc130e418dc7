// Package turns submits sealed utterances and maintains the visible transcript.
package turns

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mhoran/frontdesk/internal/backend"
	"github.com/mhoran/frontdesk/internal/recorder"
)

// Submitter is the backend operation the processor drives.
type Submitter interface {
	SubmitTurn(ctx context.Context, sessionID string, utterance recorder.Utterance) (backend.Turn, error)
}

// Display is the transcript-facing subset of UI behavior.
type Display interface {
	ShowExchange(ctx context.Context, transcript string, replyText string)
	RevealCallerFields(ctx context.Context)
}

// Processor exchanges one utterance for a reply and drives transcript display.
// The caller-identity reveal after the first completed turn is monotonic.
type Processor struct {
	submit  Submitter
	log     *Log
	display Display
	logger  *slog.Logger

	revealOnce sync.Once
}

func NewProcessor(submit Submitter, log *Log, display Display, logger *slog.Logger) *Processor {
	return &Processor{submit: submit, log: log, display: display, logger: logger}
}

// Process submits the utterance and, on success, appends the exchange to the
// transcript. On failure the transcript is left unchanged.
func (p *Processor) Process(ctx context.Context, sessionID string, utterance recorder.Utterance) (backend.Turn, error) {
	turn, err := p.submit.SubmitTurn(ctx, sessionID, utterance)
	if err != nil {
		return backend.Turn{}, err
	}

	p.log.AppendExchange(turn.Transcript, turn.ReplyText)
	if p.display != nil {
		p.display.ShowExchange(ctx, turn.Transcript, turn.ReplyText)
		p.revealOnce.Do(func() {
			p.display.RevealCallerFields(ctx)
		})
	}

	if p.logger != nil {
		p.logger.Info("turn completed",
			"session_id", sessionID,
			"turn_index", turn.TurnIndex,
			"transcript_length", len(turn.Transcript),
			"reply_length", len(turn.ReplyText),
			"reply_audio_bytes", len(turn.ReplyAudio),
		)
	}

	return turn, nil
}

// Transcript exposes the visible log for status rendering.
func (p *Processor) Transcript() []Entry {
	return p.log.Entries()
}
