package intel

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/lurelab/decoy/pkg/patterns"
)

// historyWindow is how many trailing history entries are re-scanned on
// every extraction. Re-scanning is intentional: the extractor is stateless
// and the session store dedupes against what is already held.
const historyWindow = 5

// Extractor applies the five artifact matchers to conversation text.
// It is a pure function over its inputs: no side effects, and it never
// fails - any internal error yields an empty result instead.
type Extractor struct {
	registry *patterns.Registry
}

// NewExtractor returns an extractor backed by the global pattern registry.
func NewExtractor() *Extractor {
	return &Extractor{registry: patterns.Get()}
}

// Extract harvests artifacts from the current message text and the last
// five history entries, unioned with set semantics.
func (x *Extractor) Extract(text string, history []string) (result ExtractedIntelligence) {
	result = NewIntelligence()

	// Extraction must never propagate a failure to the pipeline.
	defer func() {
		if r := recover(); r != nil {
			result = NewIntelligence()
		}
	}()

	x.scanInto(&result, text, true)

	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, h := range history[start:] {
		x.scanInto(&result, h, false)
	}

	return result
}

// scanInto applies the artifact matchers to one text. Suspicious keywords
// are only harvested from the current message, matching how analysts weigh
// live phrasing over stale context.
func (x *Extractor) scanInto(out *ExtractedIntelligence, text string, current bool) {
	// NFKC folds full-width and compatibility forms so obfuscated digits
	// and letters still hit the ASCII patterns.
	text = norm.NFKC.String(text)

	for _, acc := range x.registry.FindAll(text, patterns.CategoryBankAccount) {
		out.BankAccounts.Add(stripSeparators(acc))
	}
	for _, id := range x.registry.FindAll(text, patterns.CategoryUPIHandle) {
		out.UPIIDs.Add(strings.ToLower(id))
	}
	for _, url := range x.registry.FindAll(text, patterns.CategoryURL) {
		out.PhishingLinks.Add(url)
	}
	out.PhoneNumbers.AddAll(extractPhones(text))

	if current {
		lower := strings.ToLower(text)
		for _, kw := range patterns.SuspiciousKeywords() {
			if strings.Contains(lower, kw) {
				out.SuspiciousKeywords.Add(kw)
			}
		}
	}
}

var separatorStripper = strings.NewReplacer("-", "", ".", "", " ", "")

func stripSeparators(s string) string {
	return separatorStripper.Replace(s)
}
