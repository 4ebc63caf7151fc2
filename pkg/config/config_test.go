package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	// Clear provider-detection inputs so CI environments with keys set
	// don't change the outcome.
	for _, key := range []string{"DECOY_LLM_PROVIDER", "GROQ_API_KEY", "OPENROUTER_API_KEY", "DECOY_LLM_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg := NewDefaultConfig()

	if cfg.DecisionThreshold != 0.7 {
		t.Errorf("DecisionThreshold = %v, want 0.7", cfg.DecisionThreshold)
	}
	if cfg.MinMessagesForReport != 5 {
		t.Errorf("MinMessagesForReport = %d, want 5", cfg.MinMessagesForReport)
	}
	if cfg.MaxMessagesPerSession != 50 {
		t.Errorf("MaxMessagesPerSession = %d, want 50", cfg.MaxMessagesPerSession)
	}
	if cfg.LLMProvider != ProviderNone {
		t.Errorf("LLMProvider = %s, want none without API keys", cfg.LLMProvider)
	}
}

func TestProviderDetection(t *testing.T) {
	t.Setenv("DECOY_LLM_PROVIDER", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DECOY_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk_test")

	if got := detectLLMProvider(); got != ProviderGroq {
		t.Errorf("provider = %s, want groq from GROQ_API_KEY", got)
	}

	t.Setenv("DECOY_LLM_PROVIDER", "ollama")
	if got := detectLLMProvider(); got != ProviderOllama {
		t.Errorf("provider = %s, explicit setting must win", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DECOY_DECISION_THRESHOLD", "0.85")
	t.Setenv("DECOY_MAX_MESSAGES_PER_SESSION", "10")
	t.Setenv("DECOY_END_KEYWORDS", "bye, later ,")

	cfg := NewDefaultConfig()
	if cfg.DecisionThreshold != 0.85 {
		t.Errorf("DecisionThreshold = %v, want 0.85", cfg.DecisionThreshold)
	}
	if cfg.MaxMessagesPerSession != 10 {
		t.Errorf("MaxMessagesPerSession = %d, want 10", cfg.MaxMessagesPerSession)
	}
	if len(cfg.EndKeywords) != 2 || cfg.EndKeywords[0] != "bye" || cfg.EndKeywords[1] != "later" {
		t.Errorf("EndKeywords = %v", cfg.EndKeywords)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := NewRuleOnlyConfig()
	cfg.DecisionThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("threshold above 1 must fail validation")
	}
}
