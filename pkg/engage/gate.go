// Package engage generates the agent-side reply for a conversation turn
// and gates every outbound reply through a safety check. No reply reaches
// the wire without passing the gate; a failed reply is replaced with the
// fixed fallback, never sent.
package engage

import (
	"strings"

	"github.com/lurelab/decoy/pkg/patterns"
)

// FallbackReply is the fixed safe reply used when a generated reply fails
// the gate or generation itself fails.
const FallbackReply = "I'm not sure how to respond to that. Can you clarify?"

const (
	maxReplyLength = 500
	minReplyLength = 5
)

// GateResult explains a gate decision for the audit trail.
type GateResult struct {
	Passed    bool   `json:"passed"`
	Violation string `json:"violation,omitempty"`
}

// CheckReply applies the outbound safety checks in order: denylisted
// phrases first, then length bounds.
func CheckReply(reply string) GateResult {
	lower := strings.ToLower(reply)

	for _, phrase := range patterns.DenylistPhrases() {
		if strings.Contains(lower, phrase) {
			return GateResult{Violation: "forbidden phrase: " + phrase}
		}
	}

	if len(reply) > maxReplyLength {
		return GateResult{Violation: "reply exceeds maximum length"}
	}
	if len(strings.TrimSpace(reply)) < minReplyLength {
		return GateResult{Violation: "reply below minimum length"}
	}

	return GateResult{Passed: true}
}
