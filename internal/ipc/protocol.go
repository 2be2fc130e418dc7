package ipc

// Request is one control command sent to the active call owner. Name and
// Email are only meaningful for the end-call command.
type Request struct {
	Command string `json:"command"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Turns   int    `json:"turns,omitempty"`
	Summary string `json:"summary,omitempty"`
}
