// Package intel extracts and aggregates actionable fraud intelligence -
// payment handles, account numbers, phishing links, phone numbers and
// suspicious vocabulary - from conversation text.
package intel

// ExtractedIntelligence holds the five independent artifact sets harvested
// from a conversation. Set semantics are an invariant: merging never
// produces duplicates.
type ExtractedIntelligence struct {
	BankAccounts       StringSet `json:"bankAccounts"`
	UPIIDs             StringSet `json:"upiIds"`
	PhishingLinks      StringSet `json:"phishingLinks"`
	PhoneNumbers       StringSet `json:"phoneNumbers"`
	SuspiciousKeywords StringSet `json:"suspiciousKeywords"`
}

// NewIntelligence returns an empty intelligence aggregate with all five
// sets initialized.
func NewIntelligence() ExtractedIntelligence {
	return ExtractedIntelligence{
		BankAccounts:       make(StringSet),
		UPIIDs:             make(StringSet),
		PhishingLinks:      make(StringSet),
		PhoneNumbers:       make(StringSet),
		SuspiciousKeywords: make(StringSet),
	}
}

// Merge unions other into e. Idempotent per set semantics.
func (e *ExtractedIntelligence) Merge(other ExtractedIntelligence) {
	e.ensure()
	e.BankAccounts.Merge(other.BankAccounts)
	e.UPIIDs.Merge(other.UPIIDs)
	e.PhishingLinks.Merge(other.PhishingLinks)
	e.PhoneNumbers.Merge(other.PhoneNumbers)
	e.SuspiciousKeywords.Merge(other.SuspiciousKeywords)
}

// HasAny reports whether any of the five sets is non-empty.
func (e *ExtractedIntelligence) HasAny() bool {
	return len(e.BankAccounts) > 0 ||
		len(e.UPIIDs) > 0 ||
		len(e.PhishingLinks) > 0 ||
		len(e.PhoneNumbers) > 0 ||
		len(e.SuspiciousKeywords) > 0
}

// Total returns the combined member count across all five sets.
func (e *ExtractedIntelligence) Total() int {
	return len(e.BankAccounts) + len(e.UPIIDs) + len(e.PhishingLinks) +
		len(e.PhoneNumbers) + len(e.SuspiciousKeywords)
}

// ensure initializes nil sets so a zero-value aggregate (e.g. decoded from
// JSON with missing fields) merges safely.
func (e *ExtractedIntelligence) ensure() {
	if e.BankAccounts == nil {
		e.BankAccounts = make(StringSet)
	}
	if e.UPIIDs == nil {
		e.UPIIDs = make(StringSet)
	}
	if e.PhishingLinks == nil {
		e.PhishingLinks = make(StringSet)
	}
	if e.PhoneNumbers == nil {
		e.PhoneNumbers = make(StringSet)
	}
	if e.SuspiciousKeywords == nil {
		e.SuspiciousKeywords = make(StringSet)
	}
}
