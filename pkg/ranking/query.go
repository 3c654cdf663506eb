package ranking

import (
	"regexp"
	"strings"

	"echo-assistant-be/pkg/store"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParseQuery splits a free-text query into the first year-shaped token and
// the lower-cased remainder used as the search phrase.
func ParseQuery(raw string) store.QueryContext {
	qc := store.QueryContext{Raw: raw}
	loc := yearPattern.FindStringIndex(raw)
	rest := raw
	if loc != nil {
		qc.Year = raw[loc[0]:loc[1]]
		rest = raw[:loc[0]] + " " + raw[loc[1]:]
	}
	qc.Core = strings.ToLower(strings.Join(strings.Fields(rest), " "))
	return qc
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Score is the hybrid relevance of text for query given its vector distance.
func Score(query, text string, distance float64) float64 {
	q := strings.ToLower(query)
	t := strings.ToLower(text)

	score := -distance
	if strings.Contains(t, q) {
		score += 0.2
	}

	keywords := strings.Fields(q)
	seen := make(map[string]bool, len(keywords))
	matches := 0
	for _, kw := range keywords {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		if strings.Contains(t, kw) {
			matches++
		}
	}
	score += 0.02 * float64(matches)

	for _, kw := range keywords {
		if isFourDigits(kw) {
			if strings.Contains(t, kw) {
				score += 0.1
			}
			break
		}
	}
	return score
}
