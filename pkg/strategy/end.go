package strategy

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lurelab/decoy/pkg/llm"
	"github.com/lurelab/decoy/pkg/patterns"
	"github.com/lurelab/decoy/pkg/session"
)

// EndDetector decides whether the scammer is clearly ending the
// conversation. It only runs after the active-ask veto has passed.
type EndDetector interface {
	ShouldEnd(ctx context.Context, sess *session.Session, messageText string) bool
}

// containsActiveAsk reports whether the message is still asking the victim
// for something. Such messages never end the conversation.
func containsActiveAsk(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range patterns.ActiveAskKeywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// staticEndCheck is the keyword fallback for end detection.
func staticEndCheck(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range patterns.ConversationEndKeywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// StaticEndDetector wraps the keyword check behind the EndDetector
// interface for explicit wiring.
type StaticEndDetector struct{}

func (StaticEndDetector) ShouldEnd(_ context.Context, _ *session.Session, messageText string) bool {
	return staticEndCheck(messageText)
}

// LLMEndDetector asks the model for a binary YES/NO decision. Any failure
// falls back to the static keyword check.
type LLMEndDetector struct {
	client *llm.Client
}

// NewLLMEndDetector returns nil when no client is configured.
func NewLLMEndDetector(client *llm.Client) *LLMEndDetector {
	if client == nil {
		return nil
	}
	return &LLMEndDetector{client: client}
}

func (d *LLMEndDetector) ShouldEnd(ctx context.Context, sess *session.Session, messageText string) bool {
	prompt := buildEndDetectionPrompt(messageText, sess)

	content, err := d.client.Complete(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.CompleteOptions{Temperature: 0.1, MaxTokens: 10, TopP: 0.5})
	if err != nil {
		log.Printf("[STRATEGY] LLM end detection failed, using static keywords: %v", err)
		return staticEndCheck(messageText)
	}

	return strings.ToUpper(strings.TrimSpace(content)) == "YES"
}

func buildEndDetectionPrompt(messageText string, sess *session.Session) string {
	var b strings.Builder
	b.WriteString(`You are analyzing a conversation with a scammer.

Your ONLY task:
Decide if the scammer is clearly trying to END the conversation.

STRICT RULES:
- Answer "NO" if the scammer is asking for anything (verification, UPI, links, actions).
- Answer "NO" if the scammer is making threats or demands.
- Answer "YES" ONLY if the scammer clearly says goodbye, thanks, or indicates the conversation is finished.

Examples:
- "Thanks, goodbye" -> YES
- "Okay, that's all" -> YES
- "Send your UPI now" -> NO
- "Click this link to verify" -> NO

Current message:
"`)
	b.WriteString(messageText)
	b.WriteString("\"\n\n")
	fmt.Fprintf(&b, "Conversation length: %d\n", sess.MessageCount)
	fmt.Fprintf(&b, "Extracted UPI IDs: %d\n", sess.Intel.UPIIDs.Len())
	fmt.Fprintf(&b, "Extracted links: %d\n", sess.Intel.PhishingLinks.Len())
	b.WriteString("\nIs the scammer ending the conversation?\n\nAnswer ONLY with \"YES\" or \"NO\".")
	return b.String()
}
