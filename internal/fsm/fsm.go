package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle          State = "idle"
	StateRecording     State = "recording"
	StateAwaitingReply State = "awaiting-reply"
	StateSpeaking      State = "speaking"
	StateEnded         State = "ended"
)

const (
	EventBegin    Event = "begin"
	EventSeal     Event = "seal"
	EventDiscard  Event = "discard"
	EventReply    Event = "reply"
	EventPlayed   Event = "played"
	EventFail     Event = "fail"
	EventFinalize Event = "finalize"
)

// Transition applies one event to the current call state. A fail event from
// any active state lands back in idle; nothing leaves ended.
func Transition(current State, event Event) (State, error) {
	if current == StateEnded {
		return current, invalidTransition(current, event)
	}
	if event == EventFail {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventBegin:
			return StateRecording, nil
		case EventFinalize:
			return StateEnded, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventSeal:
			return StateAwaitingReply, nil
		case EventDiscard:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingReply:
		switch event {
		case EventReply:
			return StateSpeaking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSpeaking:
		switch event {
		case EventPlayed:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
