// Package metrics derives cheap local text features from chat payloads,
// attached to telemetry events for offline analysis.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Heuristic runes-per-token divisor; good enough for trend lines, not billing.
const runesPerToken = 4

// Features holds basic text features for one piece of chat content.
type Features struct {
	Bytes        int
	Runes        int
	Words        int
	Lines        int
	ApproxTokens int
}

// CountFeatures computes byte, rune, word, line, and estimated token counts
// for the input string.
func CountFeatures(s string) Features {
	r := utf8.RuneCountInString(s)
	return Features{
		Bytes:        len(s),
		Runes:        r,
		Words:        len(strings.Fields(s)),
		Lines:        countLines(s),
		ApproxTokens: (r + runesPerToken - 1) / runesPerToken,
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of
// '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
