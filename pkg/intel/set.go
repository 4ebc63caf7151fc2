package intel

import (
	"encoding/json"
	"sort"
)

// StringSet is a deduplicating string collection with deterministic JSON
// encoding. It marshals as a sorted array so wire payloads and test
// fixtures are stable regardless of insertion order.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value. Empty strings are ignored.
func (s StringSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

// AddAll inserts every value.
func (s StringSet) AddAll(values []string) {
	for _, v := range values {
		s.Add(v)
	}
}

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of distinct values.
func (s StringSet) Len() int { return len(s) }

// Values returns the members sorted ascending.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Merge unions other into s. Merging is idempotent: merging the same set
// twice yields the same members as merging it once.
func (s StringSet) Merge(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes a JSON array into the set, dropping duplicates.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make(StringSet, len(values))
	out.AddAll(values)
	*s = out
	return nil
}
