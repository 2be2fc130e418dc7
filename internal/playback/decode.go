package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// decodeMP3 expands an MP3 reply payload into 16-bit stereo PCM samples.
func decodeMP3(data []byte) (samples []int16, sampleRate int, channels int, err error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode reply audio: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode reply audio frames: %w", err)
	}
	if len(raw) < 2 {
		return nil, 0, 0, errors.New("reply audio carried no frames")
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	samples = make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples, decoder.SampleRate(), 2, nil
}
