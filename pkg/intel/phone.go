package intel

import (
	"regexp"
	"strings"
)

// phoneCandidate matches digit runs long enough to be a phone number,
// allowing the separators people actually type: spaces, hyphens, dots and
// parentheses. Candidates are validated by NormalizePhone afterwards.
var phoneCandidate = regexp.MustCompile(`\+?[0-9][0-9\s().-]{8,15}[0-9]`)

// phoneStripper removes whitespace, hyphens, dots and parentheses.
var phoneStripper = strings.NewReplacer(
	" ", "", "\t", "", "-", "", ".", "", "(", "", ")", "",
)

// NormalizePhone canonicalizes an Indian mobile number candidate.
//
// The raw candidate is stripped of separators, then known prefixes are
// removed: "+91" always; "91" only when the total length is 12; a leading
// "0" only when the total length is 11. The remainder is accepted only if
// it is exactly 10 digits starting with 6-9. The canonical form is "+91"
// followed by the 10 digits.
//
// Anything else returns ok=false and is silently excluded - a malformed
// candidate is noise, not an error.
func NormalizePhone(raw string) (string, bool) {
	s := phoneStripper.Replace(raw)

	switch {
	case strings.HasPrefix(s, "+91"):
		s = s[3:]
	case strings.HasPrefix(s, "91") && len(s) == 12:
		s = s[2:]
	case strings.HasPrefix(s, "0") && len(s) == 11:
		s = s[1:]
	}

	if len(s) != 10 {
		return "", false
	}
	for i, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
		if i == 0 && r < '6' {
			return "", false
		}
	}
	return "+91" + s, true
}

// extractPhones finds and normalizes every phone number in text.
func extractPhones(text string) []string {
	var out []string
	for _, cand := range phoneCandidate.FindAllString(text, -1) {
		if num, ok := NormalizePhone(cand); ok {
			out = append(out, num)
		}
	}
	return out
}
