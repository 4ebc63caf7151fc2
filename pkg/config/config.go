// Package config holds global settings for the decoy engagement engine.
// All settings can be configured via environment variables or
// programmatically.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProvider defines the backend LLM service type
type LLMProvider string

const (
	ProviderNone       LLMProvider = "none"       // No LLM, rule scoring only
	ProviderGroq       LLMProvider = "groq"       // Groq (high-speed inference, default)
	ProviderOpenRouter LLMProvider = "openrouter" // OpenRouter (free tier available)
	ProviderOllama     LLMProvider = "ollama"     // Local Ollama server
	ProviderCustom     LLMProvider = "custom"     // Custom OpenAI-compatible endpoint
)

// Config holds global settings for the decoy engine
type Config struct {
	// === Core Settings ===
	APIKey    string // API key required on inbound requests (env: DECOY_API_KEY)
	ReportURL string // Collector endpoint for final intelligence reports

	// === LLM Provider Configuration ===
	LLMProvider  LLMProvider // Which LLM service to use
	LLMAPIKey    string      // API key for cloud providers
	LLMModel     string      // Model identifier
	LLMBaseURL   string      // Custom base URL for self-hosted providers
	LLMTimeoutMs int         // Timeout for LLM calls in milliseconds

	// === Detection ===
	// Single decision threshold shared by the LLM path and the rule
	// fallback path. Confidence/score >= threshold means malicious.
	DecisionThreshold float64

	// === Engagement Policy ===
	MinMessagesForReport  int      // Messages required before a report is eligible
	MaxMessagesPerSession int      // Hard cap on engagement length
	UseLLMEndDetection    bool     // LLM-based end-of-conversation detection
	EndKeywords           []string // Overrides the built-in end-keyword list when non-empty

	// === Report Delivery ===
	ReportTimeoutMs int // Timeout for the outbound report POST

	// === Session Store ===
	SessionTTL time.Duration // Idle sessions older than this are reaped
	RedisAddr  string        // Redis address; empty selects the in-memory store

	// === Optional Layers ===
	EnableSemantics  bool   // Embedding similarity layer (chromem-go)
	PatternConfigDir string // Directory with keywords.yaml overrides
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		APIKey:    GetEnv("DECOY_API_KEY", ""),
		ReportURL: GetEnv("DECOY_REPORT_URL", ""),

		LLMProvider:  detectLLMProvider(),
		LLMAPIKey:    GetEnv("DECOY_LLM_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		LLMModel:     GetEnv("DECOY_LLM_MODEL", "llama-3.1-70b-versatile"),
		LLMBaseURL:   GetEnv("DECOY_LLM_BASE_URL", ""),
		LLMTimeoutMs: GetEnvInt("DECOY_LLM_TIMEOUT_MS", 10000),

		DecisionThreshold: GetEnvFloat("DECOY_DECISION_THRESHOLD", 0.7),

		MinMessagesForReport:  GetEnvInt("DECOY_MIN_MESSAGES_FOR_REPORT", 5),
		MaxMessagesPerSession: GetEnvInt("DECOY_MAX_MESSAGES_PER_SESSION", 50),
		UseLLMEndDetection:    GetEnvBool("DECOY_USE_LLM_END_DETECTION", true),
		EndKeywords:           GetEnvSlice("DECOY_END_KEYWORDS", nil),

		ReportTimeoutMs: GetEnvInt("DECOY_REPORT_TIMEOUT_MS", 10000),

		SessionTTL: time.Duration(GetEnvInt("DECOY_SESSION_TTL_SECONDS", 86400)) * time.Second,
		RedisAddr:  GetEnv("DECOY_REDIS_ADDR", ""),

		EnableSemantics:  GetEnvBool("DECOY_ENABLE_SEMANTICS", false),
		PatternConfigDir: GetEnv("DECOY_PATTERN_CONFIG_DIR", ""),
	}
}

// NewRuleOnlyConfig creates a Config with every LLM dependency disabled.
// Use for air-gapped deployments or deterministic testing.
func NewRuleOnlyConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLMProvider = ProviderNone
	cfg.LLMAPIKey = ""
	cfg.UseLLMEndDetection = false
	cfg.EnableSemantics = false
	return cfg
}

func detectLLMProvider() LLMProvider {
	if p := os.Getenv("DECOY_LLM_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("DECOY_LLM_API_KEY") != "" {
		return ProviderOpenRouter
	}
	// No cloud keys - rule scoring only
	return ProviderNone
}

// Validate checks that required configuration is present.
// In production mode (DECOY_ENV=production) missing critical settings fail
// startup; in development they only log warnings.
func (c *Config) Validate() error {
	env := strings.ToLower(os.Getenv("DECOY_ENV"))
	isProduction := env == "production" || env == "prod"

	var missing []string
	if c.ReportURL == "" {
		if isProduction {
			missing = append(missing, "DECOY_REPORT_URL (collector endpoint for intelligence reports)")
		} else {
			log.Printf("[STARTUP] Warning: DECOY_REPORT_URL not set - report dispatch disabled")
		}
	}
	if c.APIKey == "" && isProduction {
		missing = append(missing, "DECOY_API_KEY (inbound request authentication)")
	}
	if c.DecisionThreshold <= 0 || c.DecisionThreshold > 1 {
		missing = append(missing, "DECOY_DECISION_THRESHOLD (must be in (0, 1])")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing.
// Exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
