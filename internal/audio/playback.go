package audio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// PlayPCM16 streams int16 samples to the default Pulse sink and blocks until
// the stream drains or stop is closed. The playback handle is released before
// returning on every path.
func PlayPCM16(samples []int16, sampleRate int, channels int, latencySeconds float64, stop <-chan struct{}) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid playback sample rate %d", sampleRate)
	}
	if latencySeconds <= 0 {
		latencySeconds = 0.1
	}

	client, err := newClient()
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		select {
		case <-stop:
			return 0, pulse.EndOfData
		default:
		}

		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(latencySeconds),
		pulse.PlaybackMediaName("frontdesk reply"),
	}
	if channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play reply stream: %w", err)
	}

	return nil
}
