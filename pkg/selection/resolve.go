package selection

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"echo-assistant-be/pkg/store"
)

var (
	// ErrSessionExpired means the stored candidate set is gone.
	ErrSessionExpired = errors.New("candidate list expired")
	// ErrInvalidSelection means the input named no stored candidate.
	ErrInvalidSelection = errors.New("invalid selection")
)

// IsCancel reports whether text is the cancellation keyword.
func IsCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "cancel")
}

// ParseIndices parses comma-separated 1-based indices such as "3, 1".
// Every part must be a non-empty run of digits.
func ParseIndices(text string) ([]int, error) {
	parts := strings.Split(text, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, ErrInvalidSelection
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return nil, ErrInvalidSelection
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, ErrInvalidSelection
		}
		out = append(out, n)
	}
	return out, nil
}

// IsNumberSelection reports whether text parses as an index list.
func IsNumberSelection(text string) bool {
	_, err := ParseIndices(text)
	return err == nil
}

// Resolve maps 1-based indices onto the session's candidates. Duplicates and
// out-of-range indices are dropped and the result is in ascending position
// order, so "3,1" and "1,3" select the same files.
func Resolve(sess *store.SelectionSession, indices []int) ([]store.RankedResult, error) {
	if len(sess.Candidates) == 0 {
		return nil, ErrSessionExpired
	}
	seen := make(map[int]bool, len(indices))
	positions := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 1 || i > len(sess.Candidates) || seen[i] {
			continue
		}
		seen[i] = true
		positions = append(positions, i)
	}
	if len(positions) == 0 {
		return nil, ErrInvalidSelection
	}
	sort.Ints(positions)

	out := make([]store.RankedResult, len(positions))
	for k, i := range positions {
		out[k] = sess.Candidates[i-1]
	}
	return out, nil
}
