package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lurelab/decoy/pkg/config"
)

func TestNewClientNilForNoProvider(t *testing.T) {
	if c := NewClient(ClientConfig{Provider: config.ProviderNone}); c != nil {
		t.Error("provider none should yield a nil client")
	}
	if c := NewClient(ClientConfig{}); c != nil {
		t.Error("empty provider should yield a nil client")
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		Provider: config.ProviderCustom,
		APIKey:   "k",
		Model:    "m",
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
	})

	got, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompleteOptions{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("content = %q, want hello", got)
	}
}

func TestCompleteErrorsOnNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Provider: config.ProviderCustom, APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompleteOptions{}); err == nil {
		t.Error("non-200 should be an error")
	}
}

func TestExtractJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! {"a":1} hope that helps`, `{"a":1}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
