package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/breaker"
)

// DefaultPaths maps each category to its upstream path. {scope} is replaced.
var DefaultPaths = map[entities.Category]string{
	entities.CategoryParking:     "/parking_lots?university_id={scope}",
	entities.CategoryLibrary:     "/library_seats?university_id={scope}",
	entities.CategoryFood:        "/food_stalls?university_id={scope}",
	entities.CategoryElevator:    "/lifts?university_id={scope}",
	entities.CategoryDestination: "/destinations?university_id={scope}",
	entities.CategoryCommute:     "/poi_traffic?university_id={scope}",
	entities.CategoryClassroom:   "/classrooms?university_id={scope}",
}

type HTTPConfig struct {
	BaseURL string
	Paths   map[entities.Category]string // defaults to DefaultPaths
	Timeout time.Duration
	APIKey  string

	BreakerFailures int
	BreakerOpenFor  time.Duration

	Logger *slog.Logger
}

// HTTP fetches JSON arrays from a REST upstream behind one circuit breaker
// per category.
type HTTP struct {
	base     string
	paths    map[entities.Category]string
	apiKey   string
	client   *http.Client
	breakers map[entities.Category]*gobreaker.CircuitBreaker
	log      *slog.Logger
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Paths == nil {
		cfg.Paths = DefaultPaths
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &HTTP{
		base:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		paths:    cfg.Paths,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		breakers: make(map[entities.Category]*gobreaker.CircuitBreaker, len(cfg.Paths)),
		log:      log,
	}
	for c := range cfg.Paths {
		h.breakers[c] = breaker.New(breaker.Config{
			Name:     "upstream-" + string(c),
			Failures: cfg.BreakerFailures,
			OpenFor:  cfg.BreakerOpenFor,
			Logger:   log,
		})
	}
	return h
}

// Breaker exposes the breaker guarding a category, nil when unknown.
func (h *HTTP) Breaker(c entities.Category) *gobreaker.CircuitBreaker { return h.breakers[c] }

func (h *HTTP) Fetch(ctx context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	path, ok := h.paths[c]
	if !ok {
		return entities.Snapshot{}, fmt.Errorf("http source: %w: %q", ErrUnknownCategory, c)
	}
	u := h.base + strings.ReplaceAll(path, "{scope}", url.QueryEscape(scope))

	res, err := h.breakers[c].Execute(func() (interface{}, error) {
		return h.getJSON(ctx, u)
	})
	if err != nil {
		return entities.Snapshot{}, fmt.Errorf("%s: %w", c, err)
	}
	raw := res.([]byte)

	snap := entities.Snapshot{Category: c, Scope: scope, FetchedAt: time.Now()}
	if err := decodeInto(&snap, c, raw); err != nil {
		return entities.Snapshot{}, fmt.Errorf("%s decode error: %w", c, err)
	}
	stampCategory(&snap, c)
	keepScope(&snap, scope)
	return snap, nil
}

func (h *HTTP) getJSON(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("apikey", h.apiKey)
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d", ErrUpstreamStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeInto accepts a bare JSON array or an object wrapping it under
// "items" or "data".
func decodeInto(s *entities.Snapshot, c entities.Category, raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Items json.RawMessage `json:"items"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return err
		}
		switch {
		case len(wrapped.Items) > 0:
			raw = wrapped.Items
		case len(wrapped.Data) > 0:
			raw = wrapped.Data
		default:
			raw = []byte("[]")
		}
	}
	switch c {
	case entities.CategoryParking, entities.CategoryLibrary, entities.CategoryFood:
		return json.Unmarshal(raw, &s.Resources)
	case entities.CategoryElevator:
		return json.Unmarshal(raw, &s.Elevators)
	case entities.CategoryDestination:
		return json.Unmarshal(raw, &s.Destinations)
	case entities.CategoryCommute:
		return json.Unmarshal(raw, &s.Commute)
	case entities.CategoryClassroom:
		return json.Unmarshal(raw, &s.Classrooms)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
}
