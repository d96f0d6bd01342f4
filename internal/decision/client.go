package decision

import (
	"bytes"
	"context"
	"encoding/json"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/infrastructure/config"
	"github.com/orii-home/orii-core/internal/infrastructure/logging"
)

//go:embed prompt.txt
var defaultPrompt string

// Client talks to an OpenAI-compatible chat-completions endpoint and turns
// device reports into action lists. When the decision service is disabled
// in configuration the client runs as a stub: Decide always returns an
// empty action list so the rest of the hub keeps cycling.
//
// The client holds the latest aggregate state as conversation context.
// SetContext replaces it; Decide rebuilds the message list from it on
// every call, so each request is self-contained and no server-side session
// is needed.
type Client struct {
	enabled    bool
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
	logger     *logging.Logger

	systemPrompt string

	mu      sync.RWMutex
	context string // JSON of the latest aggregate state
}

// chatMessage is one turn in the chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatResponse is the subset of the OpenAI-compatible response we use.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewClient builds a decision client from configuration. A custom system
// prompt can be supplied via cfg.PromptPath; otherwise the built-in prompt
// is used.
func NewClient(cfg config.DecisionConfig, logger *logging.Logger) (*Client, error) {
	prompt := defaultPrompt
	if cfg.PromptPath != "" {
		data, err := os.ReadFile(cfg.PromptPath)
		if err != nil {
			return nil, fmt.Errorf("reading prompt file: %w", err)
		}
		prompt = string(data)
	}

	c := &Client{
		enabled:      cfg.Enabled,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		maxRetries:   cfg.MaxRetries,
		httpClient:   &http.Client{Timeout: cfg.GetTimeout()},
		logger:       logger,
		systemPrompt: prompt,
	}
	if !c.enabled {
		logger.Info("decision client running in stub mode")
	}
	return c, nil
}

// Enabled reports whether a live decision service is configured.
func (c *Client) Enabled() bool { return c.enabled }

// SetContext replaces the household context sent with every request. The
// orchestrator calls it after the registry is built and the reconciler
// refreshes it after each applied cycle.
func (c *Client) SetContext(state device.State) {
	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Error("aggregate state not serialisable", "error", err)
		return
	}
	c.mu.Lock()
	c.context = string(data)
	c.mu.Unlock()
}

// Decide posts one report envelope and returns the actions the service
// wants applied. In stub mode it returns an empty list without touching
// the network. All failures come back wrapped in ErrUnavailable or
// ErrBadResponse so the scheduler can treat them as soft.
func (c *Client) Decide(ctx context.Context, status string, devices []device.Descriptor) ([]device.Action, error) {
	if !c.enabled {
		c.logger.Debug("stub decision", "status", status, "devices", len(devices))
		return nil, nil
	}

	envelope, err := json.Marshal(Request{Status: status, Devices: devices})
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	c.mu.RLock()
	household := c.context
	c.mu.RUnlock()

	messages := []chatMessage{
		{Role: "system", Content: c.systemPrompt},
	}
	if household != "" {
		messages = append(messages, chatMessage{Role: "user", Content: "Household context:\n" + household})
	}
	messages = append(messages, chatMessage{Role: "user", Content: string(envelope)})

	content, err := c.chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrBadResponse)
	}
	var resp struct {
		Actions json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(resp.Actions) == 0 {
		return nil, fmt.Errorf("%w: reply has no actions field", ErrBadResponse)
	}
	var actions []device.Action
	if err := json.Unmarshal(resp.Actions, &actions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	c.logger.Debug("decision received", "status", status, "actions", len(actions))
	return actions, nil
}

// chat sends the request with linear backoff between retries.
func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			c.logger.Debug("retrying decision request", "attempt", attempt)
		}

		content, err := c.doRequest(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("service error: %s (type=%s code=%s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// extractJSON pulls the outermost JSON object out of a reply that may be
// wrapped in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
