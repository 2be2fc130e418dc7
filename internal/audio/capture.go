package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// CaptureSampleRate is the fixed utterance capture format: 16kHz mono s16.
	CaptureSampleRate = 16000

	fragmentSizeBytes = 3200 // 100ms @ 16kHz mono s16
)

// Capture accumulates fixed-size PCM fragments from one selected Pulse source.
// One Capture spans exactly one utterance; the stream is never reused.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	mu        sync.Mutex
	pending   []byte
	fragments [][]byte
	stopped   bool

	bytes atomic.Int64
}

// StartCapture creates and starts a 16kHz mono s16 record stream.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		client: client,
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(CaptureSampleRate),
		pulse.RecordBufferFragmentSize(fragmentSizeBytes),
		pulse.RecordMediaName("frontdesk utterance"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Fragments returns the ordered fragment sequence accumulated so far.
func (c *Capture) Fragments() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.fragments))
	copy(out, c.fragments)
	return out
}

// Stop halts the stream and flushes residual PCM into a final short fragment.
// Safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.mu.Lock()
	if len(c.pending) > 0 {
		tail := make([]byte, len(c.pending))
		copy(tail, c.pending)
		c.fragments = append(c.fragments, tail)
		c.pending = nil
	}
	c.mu.Unlock()

	return nil
}

// onPCM receives raw Pulse frames and slices them into fragmentSizeBytes pieces.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0, io.EOF
	}

	c.pending = append(c.pending, buffer...)
	for len(c.pending) >= fragmentSizeBytes {
		fragment := make([]byte, fragmentSizeBytes)
		copy(fragment, c.pending[:fragmentSizeBytes])
		c.pending = c.pending[fragmentSizeBytes:]
		c.fragments = append(c.fragments, fragment)
	}
	c.bytes.Add(int64(len(buffer)))

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
