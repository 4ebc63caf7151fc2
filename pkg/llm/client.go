// Package llm provides a minimal OpenAI-compatible chat-completions client
// shared by the classifier, the end-of-conversation detector and the reply
// generator. Providers differ only in base URL and authentication.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lurelab/decoy/pkg/config"
	"github.com/lurelab/decoy/pkg/httputil"
)

// DefaultTemperature is the default temperature for analysis calls.
// Low values keep classification output deterministic.
const DefaultTemperature = 0.2

// Message is a single chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	client   *http.Client
	provider config.LLMProvider
	baseURL  string
	apiKey   string
	model    string
}

// ClientConfig holds the settings for constructing a Client.
type ClientConfig struct {
	Provider config.LLMProvider
	APIKey   string // Optional for Ollama
	Model    string
	BaseURL  string        // Optional override
	Timeout  time.Duration // Total request timeout; defaults to 10s
}

// NewClient creates a provider-aware chat client, or nil when the provider
// is "none". Callers treat a nil client as "LLM unavailable" and use their
// deterministic fallbacks.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Provider == config.ProviderNone || cfg.Provider == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var baseURL string
	switch cfg.Provider {
	case config.ProviderOllama:
		baseURL = "http://localhost:11434/v1" // OpenAI-compatible endpoint of Ollama
	case config.ProviderOpenRouter:
		baseURL = "https://openrouter.ai/api/v1"
	case config.ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	default:
		baseURL = cfg.BaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		return nil
	}

	return &Client{
		client:   httputil.Client(timeout),
		provider: cfg.Provider,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
	}
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	Temperature float64 // 0 selects DefaultTemperature
	MaxTokens   int     // 0 lets the provider decide
	TopP        float64 // 0 omits the field
}

// Complete sends the messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, msgs []Message, opts CompleteOptions) (string, error) {
	if c.provider != config.ProviderOllama && c.apiKey == "" {
		return "", fmt.Errorf("API key not configured for provider %s", c.provider)
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// response, keeping the outermost JSON object.
func ExtractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}
