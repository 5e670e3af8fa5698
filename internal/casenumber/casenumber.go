// Package casenumber generates matching variants of free-form case numbers.
//
// Operators transcribe case numbers inconsistently with respect to leading
// zeros ("7/24.0ABC" vs "007/24.0ABC"). Matching tolerates exactly that one
// dimension; anything fuzzier risks merging unrelated cases.
package casenumber

import (
	"regexp"
	"strings"
)

// numberRe splits a case number into its leading numeric part and the rest
// (year, check digit, court code). Leading zeros are discarded by the capture.
var numberRe = regexp.MustCompile(`^0*(\d+)(.*)$`)

const maxLeadingZeros = 5

// Variants returns the ordered candidate set for matching a raw case number:
// the literal string first, then the numeric part re-padded with 0 through 5
// leading zeros concatenated with the original suffix. Duplicates are removed,
// order is preserved.
func Variants(raw string) []string {
	out := []string{raw}

	m := numberRe.FindStringSubmatch(raw)
	if m == nil {
		return out
	}
	num, suffix := m[1], m[2]

	seen := map[string]struct{}{raw: {}}
	for pad := 0; pad <= maxLeadingZeros; pad++ {
		v := strings.Repeat("0", pad) + num + suffix
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Canonical returns the zero-stripped form used as the soft-uniqueness index
// key: the numeric part without leading zeros plus the original suffix.
// Strings without a numeric prefix canonicalize to themselves, trimmed.
func Canonical(raw string) string {
	trimmed := strings.TrimSpace(raw)
	m := numberRe.FindStringSubmatch(trimmed)
	if m == nil {
		return trimmed
	}
	return m[1] + m[2]
}

// StripSpaces removes all whitespace. Used only as a last-resort retry when
// an exact-match propagation update affects zero source rows; some tables
// carry stray spaces that others do not.
func StripSpaces(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}
