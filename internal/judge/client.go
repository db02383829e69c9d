// Package judge talks to an OpenRouter-compatible chat-completions endpoint
// and turns its free-form output into structured analysis results.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

var (
	// ErrNotConfigured means no API credential is set. Callers are expected
	// to check Configured() and degrade before invoking.
	ErrNotConfigured = errors.New("judgment service credential not configured")

	// ErrUpstream means the remote call failed or returned an error payload.
	ErrUpstream = errors.New("judgment service request failed")

	// ErrEmptyResponse means the call succeeded but carried no text.
	ErrEmptyResponse = errors.New("judgment service returned no content")
)

// Request is one judgment invocation. Frames may be empty for text-only
// prompts; Temperature nil leaves the service default in place.
type Request struct {
	System      string
	User        string
	Frames      []string // base64 JPEG payloads
	Temperature *float64
}

// Client is a thin typed wrapper over the chat-completions wire format.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	referer    string
	title      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	Endpoint string
	APIKey   string
	Model    string
	Referer  string
	Title    string
	// HTTPClient defaults to http.DefaultClient when nil.
	HTTPClient *http.Client
}

// NewClient creates a judgment client. An empty APIKey is valid; the client
// then reports itself unconfigured and every call fails fast.
func NewClient(opts Options, logger *slog.Logger) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      opts.Model,
		referer:    opts.Referer,
		title:      opts.Title,
		httpClient: httpClient,
		logger:     logger.With("component", "judge"),
	}
}

// Configured reports whether an API credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one system+user turn and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: c.userContent(req)})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding judgment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building judgment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("judgment service returned non-success status",
			"status", resp.StatusCode, "body", truncate(string(respBody), 256))
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	return content, nil
}

// userContent builds the user turn: plain string for text-only requests, or
// one text part followed by one inline image part per frame.
func (c *Client) userContent(req Request) any {
	if len(req.Frames) == 0 {
		return req.User
	}

	parts := make([]contentPart, 0, len(req.Frames)+1)
	parts = append(parts, contentPart{Type: "text", Text: req.User})
	for _, frame := range req.Frames {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:image/jpeg;base64," + frame},
		})
	}
	return parts
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
