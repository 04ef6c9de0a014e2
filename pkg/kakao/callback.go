package kakao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"toribot/pkg/logger"
)

// callbackTimeout bounds one callback POST. Kakao drops the waiting
// balloon after about a minute, so retry-until patterns buy nothing.
const callbackTimeout = 10 * time.Second

// CallbackClient posts finished responses to Kakao's callback URLs.
type CallbackClient struct {
	httpClient *http.Client
	log        *logger.Logger
}

// NewCallbackClient creates a callback client.
func NewCallbackClient(log *logger.Logger) *CallbackClient {
	return &CallbackClient{
		httpClient: &http.Client{Timeout: callbackTimeout},
		log:        log,
	}
}

// Post delivers payload to url as JSON. Any non-2xx status is an
// error.
func (c *CallbackClient) Post(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	c.log.Debug("Callback delivered", zap.String("url", url))
	return nil
}
