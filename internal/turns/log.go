package turns

import "sync"

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

// Entry is one visible transcript line.
type Entry struct {
	Speaker Speaker
	Text    string
}

// Log is the visible transcript of a call. A completed turn appends its
// caller line and agent line as one atomic pair; partial turns never appear.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// AppendExchange records one completed turn in strict chronological order.
func (l *Log) AppendExchange(transcript string, replyText string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries,
		Entry{Speaker: SpeakerCaller, Text: transcript},
		Entry{Speaker: SpeakerAgent, Text: replyText},
	)
}

// Entries returns a snapshot of the transcript.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of visible transcript lines.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
