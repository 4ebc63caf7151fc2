// Package patterns provides a centralized, compiled pattern registry for
// scam detection and intelligence extraction. All regexes are compiled once
// at package init and shared across the extractor and the rule scorer.
//
// Design principles:
// - COMPILE ONCE: All patterns compiled at init, not per-request
// - DRY: Single source of truth for detection and extraction patterns
// - CATEGORIZED: Patterns organized by category for targeted scans
package patterns

import (
	"regexp"
	"sync"
)

// Category represents a detection or extraction pattern category
type Category string

const (
	// Extraction categories (artifact harvesting)
	CategoryBankAccount Category = "bank_account"
	CategoryUPIHandle   Category = "upi_handle"
	CategoryURL         Category = "url"

	// Scoring categories (rule-based classification)
	CategoryUrgency       Category = "urgency"
	CategoryBankingTerm   Category = "banking_term"
	CategoryPhishing      Category = "phishing"
	CategorySensitiveInfo Category = "sensitive_info"
)

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name        string         // Human-readable name for logging and evidence
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Pattern category
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns, organized by category
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	all        []*Pattern
}

// global singleton - initialized once at package load
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton)
// Thread-safe and guaranteed to be initialized
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the pattern registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 32),
	}

	r.registerExtractionPatterns()
	r.registerUrgencyPatterns()
	r.registerBankingTermPatterns()
	r.registerPhishingPatterns()
	r.registerSensitiveInfoPatterns()

	return r
}

// register adds a pattern to the registry (internal use only)
func (r *Registry) register(name string, pattern string, category Category, description string) {
	p := &Pattern{
		Name:        name,
		Regex:       regexp.MustCompile(pattern),
		Category:    category,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a specific category
// Returns empty slice if category not found (never nil)
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// MatchAny checks if text matches any pattern in the given categories
// Returns the first matching pattern or nil, optimized for early exit
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cat := range cats {
		for _, p := range r.byCategory[cat] {
			if p.Regex.MatchString(text) {
				return p
			}
		}
	}
	return nil
}

// MatchAll returns all patterns that match the text in given categories
// Use when every match contributes to a score
func (r *Registry) MatchAll(text string, cats ...Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Pattern
	for _, cat := range cats {
		for _, p := range r.byCategory[cat] {
			if p.Regex.MatchString(text) {
				matches = append(matches, p)
			}
		}
	}
	return matches
}

// FindAll returns every match of the first pattern in a category.
// Extraction categories carry exactly one pattern each.
func (r *Registry) FindAll(text string, cat Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ps := r.byCategory[cat]
	if len(ps) == 0 {
		return nil
	}
	return ps[0].Regex.FindAllString(text, -1)
}

// TotalPatterns returns the total count of registered patterns
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category
func (r *Registry) CategoryCount(cat Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[cat])
}
