package playback

import "sync"

// Source identifies where a reply's audio came from.
type Source string

const (
	SourceRemoteAudio Source = "remote-audio"
	SourceLocalSynth  Source = "local-synth"
)

// TaskState tracks one playback task's lifecycle.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskPlaying   TaskState = "playing"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Task wraps the playback of one reply. At most one task is in the playing
// state system-wide; the controller enforces this.
type Task struct {
	Source Source

	mu    sync.Mutex
	state TaskState

	stop     chan struct{}
	stopOnce sync.Once

	// released is closed once the task has let go of the output device.
	released chan struct{}
}

func newTask(source Source) *Task {
	return &Task{
		Source:   source,
		state:    TaskPending,
		stop:     make(chan struct{}),
		released: make(chan struct{}),
	}
}

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(state TaskState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// Interrupt asks an in-flight playback to stop. Safe to call more than once.
func (t *Task) Interrupt() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}
