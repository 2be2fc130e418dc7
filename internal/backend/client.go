// Package backend is the HTTP session client for the receptionist service.
// Each operation is a single request/response exchange with no internal
// retries; retry policy belongs to the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mhoran/frontdesk/internal/config"
	"github.com/mhoran/frontdesk/internal/recorder"
)

// Turn is one completed request/response exchange.
type Turn struct {
	Transcript string
	ReplyText  string
	ReplyAudio []byte
	TurnIndex  int
}

// Client performs the three backend exchanges for one or more sessions.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	ended map[string]struct{}
}

func NewClient(cfg config.BackendConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		ended:   map[string]struct{}{},
	}
}

type startSessionResponse struct {
	SessionID    string `json:"sessionId"`
	SessionIDAlt string `json:"session_id"`
	ExpiresIn    int    `json:"expires_in"`
}

type turnResponse struct {
	Transcript    string `json:"transcript"`
	ReplyText     string `json:"replyText"`
	Response      string `json:"response"`
	ReplyAudio    string `json:"replyAudio"`
	AudioResponse string `json:"audio_response"`
	TurnIndex     int    `json:"turnIndex"`
	MessageCount  int    `json:"message_count"`
}

type endSessionResponse struct {
	SummaryText string `json:"summaryText"`
	Summary     string `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession starts a new backend session and returns its identity token.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start-session", nil)
	if err != nil {
		return "", &CreateError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &CreateError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CreateError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &CreateError{Err: statusError(resp.StatusCode, body)}
	}

	var decoded startSessionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &CreateError{Err: fmt.Errorf("decode response: %w", err)}
	}

	sessionID := firstNonEmpty(decoded.SessionID, decoded.SessionIDAlt)
	if sessionID == "" {
		return "", &CreateError{Err: errors.New("response carried no session id")}
	}

	if c.logger != nil {
		c.logger.Info("session created", "session_id", sessionID, "expires_in", decoded.ExpiresIn)
	}
	return sessionID, nil
}

// SubmitTurn exchanges one sealed utterance for the agent's reply. The
// utterance must be non-empty and the session must not be finalized.
func (c *Client) SubmitTurn(ctx context.Context, sessionID string, utterance recorder.Utterance) (Turn, error) {
	if utterance.Empty() {
		return Turn{}, &SubmitError{Err: errors.New("utterance is empty")}
	}
	if c.isEnded(sessionID) {
		return Turn{}, &SubmitError{Err: ErrSessionEnded}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", fmt.Sprintf("utterance-%s.wav", uuid.NewString()))
	if err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	if _, err := part.Write(utterance.WAV()); err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	if err := writer.WriteField("sessionId", sessionID); err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return Turn{}, &SubmitError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-turn", &buf)
	if err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Turn{}, &SubmitError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Turn{}, &SubmitError{Reason: backendReason(body), Err: statusError(resp.StatusCode, body)}
	}

	var decoded turnResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Turn{}, &SubmitError{Err: fmt.Errorf("decode response: %w", err)}
	}

	turn := Turn{
		Transcript: decoded.Transcript,
		ReplyText:  firstNonEmpty(decoded.ReplyText, decoded.Response),
		TurnIndex:  decoded.TurnIndex,
	}
	if turn.TurnIndex == 0 {
		turn.TurnIndex = decoded.MessageCount
	}
	if turn.Transcript == "" || turn.ReplyText == "" {
		return Turn{}, &SubmitError{Err: errors.New("response missing transcript or reply text")}
	}

	if encoded := firstNonEmpty(decoded.ReplyAudio, decoded.AudioResponse); encoded != "" {
		audio, decodeErr := decodeReplyAudio(encoded)
		if decodeErr != nil {
			// The reply itself is intact; playback falls back to local synthesis.
			if c.logger != nil {
				c.logger.Warn("undecodable reply audio", "error", decodeErr.Error())
			}
		} else {
			turn.ReplyAudio = audio
		}
	}

	return turn, nil
}

// FinalizeSession supplies caller identity, ends the session, and returns the
// saved summary. Further SubmitTurn calls for the session are rejected.
func (c *Client) FinalizeSession(ctx context.Context, sessionID string, callerName string, callerEmail string) (string, error) {
	if strings.TrimSpace(callerName) == "" {
		return "", &FinalizeError{Err: errors.New("caller name is required")}
	}

	payload, err := json.Marshal(map[string]string{
		"sessionId":   sessionID,
		"callerName":  callerName,
		"callerEmail": callerEmail,
	})
	if err != nil {
		return "", &FinalizeError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/end-session", bytes.NewReader(payload))
	if err != nil {
		return "", &FinalizeError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &FinalizeError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FinalizeError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &FinalizeError{Err: statusError(resp.StatusCode, body)}
	}

	var decoded endSessionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &FinalizeError{Err: fmt.Errorf("decode response: %w", err)}
	}

	c.mu.Lock()
	c.ended[sessionID] = struct{}{}
	c.mu.Unlock()

	return firstNonEmpty(decoded.SummaryText, decoded.Summary), nil
}

func (c *Client) isEnded(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ended[sessionID]
	return ok
}

// decodeReplyAudio accepts hex (what the backend emits) with base64 fallback.
func decodeReplyAudio(encoded string) ([]byte, error) {
	if audio, err := hex.DecodeString(encoded); err == nil {
		return audio, nil
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("reply audio is neither hex nor base64")
	}
	return audio, nil
}

// backendReason extracts the backend's error text for verbatim surfacing.
func backendReason(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	return strings.TrimSpace(decoded.Error)
}

func statusError(status int, body []byte) error {
	if reason := backendReason(body); reason != "" {
		return fmt.Errorf("backend returned %d: %s", status, reason)
	}
	return fmt.Errorf("backend returned %d", status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
