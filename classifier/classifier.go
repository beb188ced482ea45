// Package classifier implements aksara.Classifier over an external emotion
// classification HTTP service. Classification is advisory: callers degrade to
// a neutral tone on any failure.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aksara-ai/aksara"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// Client calls a /predict endpoint that returns {"label": "..."} for a text.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ aksara.Classifier = (*Client)(nil)

// New creates a classifier client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns the predicted emotion for text. Unknown labels map to
// neutral; transport and decode failures return an error for the caller to
// degrade on.
func (c *Client) Classify(ctx context.Context, text string) (aksara.Emotion, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("classifier: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("classifier: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &aksara.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: aksara.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var out struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("classifier: decode response: %w", err)
	}

	switch aksara.Emotion(out.Label) {
	case aksara.EmotionHappy, aksara.EmotionSad, aksara.EmotionAngry, aksara.EmotionNeutral:
		return aksara.Emotion(out.Label), nil
	default:
		return aksara.EmotionNeutral, nil
	}
}
