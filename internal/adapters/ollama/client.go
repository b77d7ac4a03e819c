// Package ollama classifies free text into one of a fixed list of moods
// using a local Ollama chat model in JSON mode.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 30 * time.Second

	// DefaultModel is used when no model name is configured.
	DefaultModel = "llama3.1:8b"
)

const systemPrompt = `You are the Vocalis mood reader. Read the user's message and pick the single mood from the allowed list that best describes how they feel.
Answer with exactly one mood, spelled as in the list.
Reply with ONLY a JSON object {"mood": "<mood>", "explanation": "<one short sentence>"}.`

// errEmptyReply is returned when the model answers with no content.
var errEmptyReply = errors.New("ollama: empty reply")

// Client talks to the Ollama chat endpoint.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

var _ ports.MoodClassifier = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// NewClient targets host (default localhost:11434) with model (default
// DefaultModel).
func NewClient(host, model string, opts ...Option) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	c := &Client{
		endpoint: host + "/api/chat",
		model:    model,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyMood asks the model for one of moods. An answer outside the list
// is rejected with domain.ErrUnknownCategory.
func (c *Client) ClassifyMood(ctx context.Context, text string, moods []string) (domain.MoodResult, error) {
	if len(moods) == 0 {
		return domain.MoodResult{}, fmt.Errorf("ollama: no moods to choose from: %w", domain.ErrInvalidInput)
	}

	content, err := c.chat(ctx,
		message{Role: "system", Content: systemPrompt},
		message{Role: "user", Content: fmt.Sprintf("Allowed moods: %s\n\nMessage: %s", strings.Join(moods, ", "), text)},
	)
	if err != nil {
		return domain.MoodResult{}, err
	}

	var result domain.MoodResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return domain.MoodResult{}, fmt.Errorf("ollama: decode mood: %w", err)
	}
	mood, ok := pickMood(result.Mood, moods)
	if !ok {
		return domain.MoodResult{}, fmt.Errorf("ollama: mood %q: %w", result.Mood, domain.ErrUnknownCategory)
	}
	result.Mood = mood
	result.Explanation = strings.TrimSpace(result.Explanation)
	return result, nil
}

// chat sends one non-streaming JSON-mode exchange and returns the reply text.
func (c *Client) chat(ctx context.Context, msgs ...message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, Format: "json"})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	switch {
	case out.Error != "":
		return "", fmt.Errorf("ollama: %s", out.Error)
	case strings.TrimSpace(out.Message.Content) == "":
		return "", errEmptyReply
	}
	return out.Message.Content, nil
}

// pickMood maps a model answer onto the canonical spelling in moods.
func pickMood(answer string, moods []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	for _, m := range moods {
		if strings.EqualFold(answer, m) {
			return m, true
		}
	}
	return "", false
}
