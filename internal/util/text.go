// Package util provides common text helpers shared by the model and views.
package util

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Collators keep internal buffers and are not safe for concurrent use.
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.Numeric)
)

// CompareNames orders display names the way a person would: accents and
// case are secondary to the base letters, and digits sort numerically
// ("Level 2" before "Level 10"). Equal collation keys fall back to a byte
// comparison so the order is total.
func CompareNames(a, b string) int {
	collatorMu.Lock()
	c := collator.CompareString(a, b)
	collatorMu.Unlock()

	if c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Fold returns the case-folded, NFC-normalised form of s for caseless matching.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// EqualFold reports whether a and b are equal under full Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// HasPrefixFold reports whether s begins with prefix, ignoring case.
func HasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(Fold(s), Fold(prefix))
}
