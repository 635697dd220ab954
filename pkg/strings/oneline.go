// Package strings holds string helpers shared by the output packages.
package strings

import (
	"strings"
)

// DefaultMaxLen is the width error messages are cut to in table cells.
const DefaultMaxLen = 80

// MinTruncateLen is the smallest useful maxLen: one character plus "...".
const MinTruncateLen = 4

// OneLine collapses all whitespace runs of s, including newlines, into
// single spaces and cuts the result to maxLen runes, ending it with "..."
// when something was cut. maxLen is clamped to MinTruncateLen.
//
// Compose failures carry multi-line stderr; OneLine keeps them on one table
// row.
func OneLine(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
