// Package detect implements the two-tier scam classification engine:
// an LLM classifier as the primary tier and a deterministic rule scorer
// as the fallback, composed by an explicit fallback decorator.
package detect

// Method identifies which tier produced a verdict.
type Method string

const (
	MethodLLM          Method = "llm"
	MethodRuleFallback Method = "rule_fallback"
)

// Verdict is the immutable output of classification. It is attached to the
// session for audit and never mutated after production.
type Verdict struct {
	IsMalicious bool     `json:"isMalicious"`
	Confidence  float64  `json:"confidence"` // Always clamped to [0, 1]
	Method      Method   `json:"method"`
	Evidence    []string `json:"evidence,omitempty"` // Ordered list of triggered rules
	Reason      string   `json:"reason"`
}
