package playback

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Synthesizer speaks reply text locally when no remote audio is available.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// commandSynthesizer shells out to a local text-to-speech tool (espeak-ng,
// say, ...) configured via speech.command.
type commandSynthesizer struct {
	argv []string
}

func newCommandSynthesizer(command string) commandSynthesizer {
	return commandSynthesizer{argv: strings.Fields(command)}
}

func (s commandSynthesizer) Speak(ctx context.Context, text string) error {
	if len(s.argv) == 0 {
		return fmt.Errorf("speech command is empty")
	}

	args := append(append([]string{}, s.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run speech command %q: %w", s.argv[0], err)
	}
	return nil
}
