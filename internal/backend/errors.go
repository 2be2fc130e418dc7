package backend

import "errors"

// ErrSessionEnded indicates a turn was submitted for an already finalized
// session. Rejected client-side before any network I/O.
var ErrSessionEnded = errors.New("session already finalized")

// CreateError wraps a failed session creation. Fatal for the call.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return "create session: " + e.Err.Error()
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// SubmitError wraps a failed turn exchange. Reason carries the backend's own
// error text verbatim when the response included one.
type SubmitError struct {
	Reason string
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Reason != "" {
		return "submit turn: " + e.Reason
	}
	if e.Err == nil {
		return "submit turn: exchange failed"
	}
	return "submit turn: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// FinalizeError wraps a failed session finalize. Recoverable; the caller may
// retry and the call is not ended.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string {
	return "finalize session: " + e.Err.Error()
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}
