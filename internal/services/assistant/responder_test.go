package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
)

func TestHTTPResponderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k1" {
			t.Errorf("authorization = %q", got)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Prompt != "what is the meaning of life" || req.System != SystemPrompt || req.Model != "m" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "42"})
	}))
	defer srv.Close()

	h := NewHTTPResponder(HTTPResponderConfig{URL: srv.URL, APIKey: "k1", Model: "m", Logger: logging.Discard()})
	got, err := h.Complete(context.Background(), "what is the meaning of life")
	if err != nil || got != "42" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}

func TestHTTPResponderReplyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"sure"}`))
	}))
	defer srv.Close()

	got, err := NewHTTPResponder(HTTPResponderConfig{URL: srv.URL}).Complete(context.Background(), "x")
	if err != nil || got != "sure" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}

func TestHTTPResponderBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHTTPResponder(HTTPResponderConfig{
		URL: srv.URL, BreakerFailures: 2, BreakerOpenFor: time.Minute, Logger: logging.Discard(),
	})
	for i := 0; i < 2; i++ {
		if _, err := h.Complete(context.Background(), "x"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	_, err := h.Complete(context.Background(), "x")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open state", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("upstream hits = %d, want 2", n)
	}
}

func TestHTTPResponderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewHTTPResponder(HTTPResponderConfig{URL: srv.URL, Timeout: 20 * time.Millisecond, Logger: logging.Discard()})
	if _, err := h.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("expected timeout error")
	}
}
