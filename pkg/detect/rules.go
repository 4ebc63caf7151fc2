package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lurelab/decoy/pkg/patterns"
)

// Additive rule weights with per-category caps. The final score is clamped
// to [0, 1] and compared against the single configured decision threshold.
const (
	urgencyWeight      = 0.15
	urgencyCap         = 0.4
	scamKeywordWeight  = 0.2
	scamKeywordCap     = 0.4
	rewardWeight       = 0.4
	rewardComboWeight  = 0.3
	bankingTermWeight  = 0.1
	phishingWeight     = 0.3
	sensitiveWeight    = 0.2
	contextWeight      = 0.1
	contextWindow      = 3
	maxEvidenceInAudit = 3
)

// quickCheckKeywords is the cheap indicator probe applied to history
// messages for contextual reinforcement.
var quickCheckKeywords = []string{"verify", "blocked", "urgent", "suspended", "upi"}

// rewardComboPhone mirrors the loose phone probe used for the reward+
// payment-artifact combination. Precision comes from the extractor's full
// normalization; this only has to notice that a number is present.
var rewardComboPhone = regexp.MustCompile(`(\+91|91|0)?[6-9]\d{9}`)

// RuleClassifier is the deterministic fallback scorer. It never fails.
type RuleClassifier struct {
	registry  *patterns.Registry
	threshold float64
}

// NewRuleClassifier builds the rule scorer with the shared decision
// threshold.
func NewRuleClassifier(threshold float64) *RuleClassifier {
	return &RuleClassifier{registry: patterns.Get(), threshold: threshold}
}

// Classify scores the lowercased message text against the rule categories.
// The returned error is always nil.
func (r *RuleClassifier) Classify(_ context.Context, text string, history []string) (*Verdict, error) {
	lower := strings.ToLower(text)
	score := 0.0
	var evidence []string

	// Urgency language: +0.15 per pattern, capped at +0.4.
	urgencyScore := 0.0
	for _, p := range r.registry.GetByCategory(patterns.CategoryUrgency) {
		if p.Regex.MatchString(lower) {
			urgencyScore += urgencyWeight
		}
	}
	score += min(urgencyScore, urgencyCap)
	if urgencyScore > 0 {
		evidence = append(evidence, "Urgency patterns detected")
	}

	// Generic scam keywords: +0.2 per match, capped at +0.4.
	var keywordMatches []string
	for _, kw := range patterns.ScamKeywords() {
		if strings.Contains(lower, kw) {
			keywordMatches = append(keywordMatches, kw)
		}
	}
	if len(keywordMatches) > 0 {
		shown := keywordMatches
		if len(shown) > maxEvidenceInAudit {
			shown = shown[:maxEvidenceInAudit]
		}
		evidence = append(evidence, "Scam keywords: "+strings.Join(shown, ", "))
	}
	score += min(float64(len(keywordMatches))*scamKeywordWeight, scamKeywordCap)

	// Reward/lottery bait: flat +0.4, first match only.
	rewardFound := false
	for _, kw := range patterns.RewardKeywords() {
		if strings.Contains(lower, kw) {
			score += rewardWeight
			evidence = append(evidence, fmt.Sprintf("Reward scam keyword: %q", kw))
			rewardFound = true
			break
		}
	}

	// Reward bait paired with a payment handle or phone number: +0.3.
	if rewardFound {
		upi := r.registry.MatchAny(lower, patterns.CategoryUPIHandle)
		phone := rewardComboPhone.FindString(lower)
		if upi != nil || phone != "" {
			score += rewardComboWeight
			if upi != nil {
				evidence = append(evidence, "Reward scam with UPI handle")
			}
			if phone != "" {
				evidence = append(evidence, "Reward scam with phone number: "+phone)
			}
		}
	}

	// Contextual banking terms: +0.1, at most once.
	if r.registry.MatchAny(lower, patterns.CategoryBankingTerm) != nil {
		score += bankingTermWeight
		evidence = append(evidence, "Contextual banking terms")
	}

	// Phishing indicators: +0.3, at most once.
	if r.registry.MatchAny(lower, patterns.CategoryPhishing) != nil {
		score += phishingWeight
		evidence = append(evidence, "Phishing indicator: URL/link detected")
	}

	// Sensitive information requests: +0.2, at most once.
	if r.registry.MatchAny(lower, patterns.CategorySensitiveInfo) != nil {
		score += sensitiveWeight
		evidence = append(evidence, "Sensitive info request detected")
	}

	// Contextual reinforcement from the last 3 history messages.
	if len(history) > 0 {
		start := len(history) - contextWindow
		if start < 0 {
			start = 0
		}
		hits := 0
		for _, h := range history[start:] {
			if quickCheck(h) {
				hits++
			}
		}
		if hits > 0 {
			score += contextWeight * float64(hits)
			evidence = append(evidence, fmt.Sprintf("Context: %d previous messages had scam indicators", hits))
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	reasonEvidence := "No indicators"
	if len(evidence) > 0 {
		shown := evidence
		if len(shown) > maxEvidenceInAudit {
			shown = shown[:maxEvidenceInAudit]
		}
		reasonEvidence = strings.Join(shown, ", ")
	}

	return &Verdict{
		IsMalicious: score >= r.threshold,
		Confidence:  score,
		Method:      MethodRuleFallback,
		Evidence:    evidence,
		Reason:      fmt.Sprintf("Rule-based fallback (score=%.2f): %s", score, reasonEvidence),
	}, nil
}

// quickCheck is the cheap indicator probe for history messages.
func quickCheck(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range quickCheckKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
