package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lurelab/decoy/pkg/llm"
)

const (
	historyContext  = 3
	maxReasonLength = 200
	llmMaxTokens    = 300
)

const classifySystemPrompt = `You are a scam-detection analyst for an anti-fraud honeypot.
Classify whether the latest message is part of a scam attempt (phishing,
payment fraud, lottery/reward bait, impersonation, urgency pressure).
Respond with ONLY a JSON object, no prose:
{"is_scam": true/false, "confidence": 0.0-1.0, "reason": "one sentence"}`

// llmVerdict mirrors the strict JSON contract expected from the model.
// Pointer fields distinguish absent keys from zero values.
type llmVerdict struct {
	IsScam     *bool    `json:"is_scam"`
	Confidence *float64 `json:"confidence"`
	Reason     *string  `json:"reason"`
}

// LLMClassifier is the primary detection tier. Any transport, parse or
// contract failure is returned as an error so the fallback decorator can
// route to the rule scorer.
type LLMClassifier struct {
	client    *llm.Client
	threshold float64
}

// NewLLMClassifier returns nil when no client is configured, which the
// engine treats as "rule scorer only".
func NewLLMClassifier(client *llm.Client, threshold float64) *LLMClassifier {
	if client == nil {
		return nil
	}
	return &LLMClassifier{client: client, threshold: threshold}
}

// Classify asks the model for a structured verdict on the current message,
// giving it the last few conversation turns as context.
func (l *LLMClassifier) Classify(ctx context.Context, text string, history []string) (*Verdict, error) {
	prompt := buildClassifyPrompt(text, history)

	content, err := l.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.CompleteOptions{Temperature: llm.DefaultTemperature, MaxTokens: llmMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	var parsed llmVerdict
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("llm verdict parse: %w", err)
	}
	if parsed.IsScam == nil || parsed.Confidence == nil {
		return nil, fmt.Errorf("llm verdict missing required fields")
	}

	confidence := *parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reason := "No reason provided"
	if parsed.Reason != nil && *parsed.Reason != "" {
		reason = *parsed.Reason
	}
	if len(reason) > maxReasonLength {
		cut := maxReasonLength - 3
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut] + "..."
	}

	// The threshold comparison alone decides the flag: a confident verdict
	// is malicious regardless of which way the model's boolean points.
	return &Verdict{
		IsMalicious: confidence >= l.threshold,
		Confidence:  confidence,
		Method:      MethodLLM,
		Reason:      fmt.Sprintf("LLM detection (confidence=%.2f): %s", confidence, reason),
	}, nil
}

func buildClassifyPrompt(text string, history []string) string {
	var b strings.Builder
	if len(history) > 0 {
		start := len(history) - historyContext
		if start < 0 {
			start = 0
		}
		b.WriteString("Recent conversation:\n")
		for _, h := range history[start:] {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Latest message:\n")
	b.WriteString(text)
	return b.String()
}
