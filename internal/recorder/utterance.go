package recorder

import (
	"bytes"
	"time"
)

// Utterance is one sealed recording spanning a single caller turn. It is
// created at Begin, sealed at End, and consumed exactly once.
type Utterance struct {
	Fragments  [][]byte
	StartedAt  time.Time
	DurationMs int64
}

// Empty reports whether the utterance carries no audio data.
func (u Utterance) Empty() bool {
	for _, fragment := range u.Fragments {
		if len(fragment) > 0 {
			return false
		}
	}
	return true
}

// PCM joins the ordered fragment sequence into one raw PCM buffer.
func (u Utterance) PCM() []byte {
	total := 0
	for _, fragment := range u.Fragments {
		total += len(fragment)
	}
	out := make([]byte, 0, total)
	for _, fragment := range u.Fragments {
		out = append(out, fragment...)
	}
	return out
}

// WAV renders the utterance as a 16kHz mono s16 WAV payload for upload.
func (u Utterance) WAV() []byte {
	var buf bytes.Buffer
	// Writing to a bytes.Buffer cannot fail.
	_ = WritePCM16WAV(&buf, u.PCM(), captureSampleRate, 1)
	return buf.Bytes()
}
