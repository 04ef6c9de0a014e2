// Package backend talks to the OpenAI-compatible chat gateway that
// answers non-command messages.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"toribot/pkg/logger"
	"toribot/pkg/session"
)

// requestTimeout bounds one completion round trip. The webhook's
// callback window is about a minute, so a turn that is still running
// after this is not going to reach the user anyway.
const requestTimeout = 90 * time.Second

// Query is one chat turn against the backend.
type Query struct {
	// SessionID names the conversation for the backend's bookkeeping.
	SessionID string
	// Message is the cleaned utterance, directives already stripped.
	Message string
	// Directives are the stripped mode prefixes, in extraction order.
	Directives []string
	// History is the windowed transcript before this turn.
	History []session.Message
}

// chatRequest mirrors the chat-completions wire format. Directives
// ride in metadata, which plain OpenAI-compatible servers ignore.
type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Metadata *chatMetadata `json:"metadata,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatMetadata struct {
	SessionID  string   `json:"session_id,omitempty"`
	Directives []string `json:"directives,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ErrorResponse is a non-200 answer from the backend.
type ErrorResponse struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *ErrorResponse) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the chat gateway.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a backend client for the given gateway.
func NewClient(baseURL, apiKey, model string, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// Ask sends one chat turn and returns the assistant's reply text.
func (c *Client) Ask(ctx context.Context, query Query) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: buildMessages(query),
	}
	if query.SessionID != "" || len(query.Directives) > 0 {
		reqBody.Metadata = &chatMetadata{
			SessionID:  query.SessionID,
			Directives: query.Directives,
		}
	}
	// A /model directive overrides the configured model for this turn.
	for _, d := range query.Directives {
		if value, ok := modelOverride(d); ok {
			reqBody.Model = value
		}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.log.Debug("Asking backend",
		zap.String("session_id", query.SessionID),
		zap.String("model", reqBody.Model),
		zap.Int("messages", len(reqBody.Messages)),
		zap.Strings("directives", query.Directives))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("response carries no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("response content is empty")
	}
	return content, nil
}

// Fallback returns the user-facing text for a failed backend call.
func Fallback(err error) string {
	if isTimeout(err) {
		return "⏱️ The assistant took too long to answer. Please try again in a moment."
	}
	return "😿 I could not reach the assistant right now. Please try again in a moment."
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// buildMessages lays out prior turns followed by the current one.
func buildMessages(query Query) []chatMessage {
	messages := make([]chatMessage, 0, len(query.History)+1)
	for _, m := range query.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	return append(messages, chatMessage{Role: session.RoleUser, Content: query.Message})
}

// modelOverride reads the model name out of a "/model X" directive.
func modelOverride(directive string) (string, bool) {
	fields := strings.Fields(directive)
	if len(fields) == 2 && strings.EqualFold(fields[0], "/model") {
		return fields[1], true
	}
	return "", false
}

// parseError parses a backend error response.
func parseError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &ErrorResponse{
			StatusCode: statusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    errResp.Error.Message,
		Type:       errResp.Error.Type,
		Code:       errResp.Error.Code,
	}
}
