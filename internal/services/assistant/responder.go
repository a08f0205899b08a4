package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/campus_dashboard/pkg/breaker"
)

// SystemPrompt frames the free-text fallback.
const SystemPrompt = "You are a friendly campus assistant. Answer in one or two short sentences."

type HTTPResponderConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration

	Logger *slog.Logger
}

// HTTPResponder calls a JSON text-generation endpoint:
// request {"model","system","prompt"}, response {"text"} or {"reply"}.
type HTTPResponder struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

var _ Responder = (*HTTPResponder)(nil)

func NewHTTPResponder(cfg HTTPResponderConfig) *HTTPResponder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &HTTPResponder{
		url:     strings.TrimSpace(cfg.URL),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		cb: breaker.New(breaker.Config{
			Name:     "responder",
			Failures: cfg.BreakerFailures,
			OpenFor:  cfg.BreakerOpenFor,
			Logger:   cfg.Logger,
		}),
	}
}

type completionRequest struct {
	Model  string `json:"model,omitempty"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text  string `json:"text"`
	Reply string `json:"reply"`
}

func (h *HTTPResponder) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := h.cb.Execute(func() (interface{}, error) {
		return h.call(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (h *HTTPResponder) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{Model: h.model, System: SystemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("responder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("responder status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("responder decode: %w", err)
	}
	if cr.Text != "" {
		return cr.Text, nil
	}
	return cr.Reply, nil
}
