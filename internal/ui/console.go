// Package ui renders call status, transcript, and timer output to the terminal.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Console writes user-facing call output. Status and errors go to one stream,
// transcript lines to another, so scripts can consume the transcript alone.
type Console struct {
	mu         sync.Mutex
	status     io.Writer
	transcript io.Writer
	timerShown bool
	revealed   bool
}

func NewConsole() *Console {
	return &Console{status: os.Stderr, transcript: os.Stdout}
}

// NewConsoleWith wires explicit writers.
func NewConsoleWith(status io.Writer, transcript io.Writer) *Console {
	return &Console{status: status, transcript: transcript}
}

// ShowStatus prints one call status line.
func (c *Console) ShowStatus(_ context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTimerLine()
	fmt.Fprintf(c.status, "* %s\n", message)
}

// ShowError prints one error line.
func (c *Console) ShowError(_ context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTimerLine()
	fmt.Fprintf(c.status, "! %s\n", message)
}

// ShowSummary prints the closing call summary.
func (c *Console) ShowSummary(_ context.Context, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTimerLine()
	if summary == "" {
		fmt.Fprintln(c.status, "* Call ended.")
		return
	}
	fmt.Fprintf(c.status, "* Call ended. Summary: %s\n", summary)
}

// ShowExchange prints the caller line and the agent line of one turn.
func (c *Console) ShowExchange(_ context.Context, transcript string, replyText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTimerLine()
	fmt.Fprintf(c.transcript, "you:   %s\n", transcript)
	fmt.Fprintf(c.transcript, "agent: %s\n", replyText)
}

// RevealCallerFields prints the end-call hint once, after the first completed
// turn. Further calls are no-ops.
func (c *Console) RevealCallerFields(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealed {
		return
	}
	c.revealed = true
	c.endTimerLine()
	fmt.Fprintln(c.status, `* When you are done: frontdesk end --name "Your Name" [--email you@example.com]`)
}

// ShowTimer rewrites the recording clock in place at 1 Hz.
func (c *Console) ShowTimer(_ context.Context, display string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.status, "\rrec %s", display)
	c.timerShown = true
}

// endTimerLine terminates an in-place timer line before normal output.
func (c *Console) endTimerLine() {
	if !c.timerShown {
		return
	}
	fmt.Fprintln(c.status)
	c.timerShown = false
}
