package detect

import (
	"context"
	"log"
)

// Classifier produces a verdict for the current message given recent
// history. Implementations may fail; composition with FallbackClassifier
// guarantees the pipeline itself never sees an error.
type Classifier interface {
	Classify(ctx context.Context, text string, history []string) (*Verdict, error)
}

// FallbackClassifier tries the primary classifier and falls back to the
// secondary when the primary is absent, errors, or returns no verdict.
// The secondary is expected to be infallible (the rule scorer is), which
// makes the composed Classify infallible too.
type FallbackClassifier struct {
	Primary   Classifier // May be nil (no LLM configured)
	Secondary Classifier
}

// NewEngine composes the standard detection engine: LLM-primary when a
// client is configured, rule scorer otherwise and on any LLM failure.
func NewEngine(primary Classifier, rules *RuleClassifier) *FallbackClassifier {
	return &FallbackClassifier{Primary: primary, Secondary: rules}
}

// Classify never returns an error: classification must never abort message
// processing.
func (f *FallbackClassifier) Classify(ctx context.Context, text string, history []string) (*Verdict, error) {
	if f.Primary != nil {
		v, err := f.Primary.Classify(ctx, text, history)
		if err == nil && v != nil {
			return v, nil
		}
		if err != nil {
			log.Printf("[DETECT] LLM classification failed, using rule fallback: %v", err)
		}
	}
	return f.Secondary.Classify(ctx, text, history)
}
