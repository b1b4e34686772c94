package metrics_test

import (
	"testing"

	"github.com/tsassistant/chat-backend/internal/metrics"
)

func TestCountFeatures_Table(t *testing.T) {
	type exp struct {
		bytes  int
		runes  int
		words  int
		lines  int
		tokens int
	}
	cases := []struct {
		name string
		in   string
		exp  exp
	}{
		{
			name: "Empty",
			in:   "",
			exp:  exp{bytes: 0, runes: 0, words: 0, lines: 0, tokens: 0},
		},
		{
			name: "ASCII",
			in:   "hello world",
			exp:  exp{bytes: 11, runes: 11, words: 2, lines: 1, tokens: 3},
		},
		{
			name: "Multibyte",
			in:   "héllö 世界", // bytes=14, runes=8
			exp:  exp{bytes: 14, runes: 8, words: 2, lines: 1, tokens: 2},
		},
		{
			name: "Multiline_NoTrailing",
			in:   "a\nb\ncd",
			exp:  exp{bytes: 6, runes: 6, words: 3, lines: 3, tokens: 2},
		},
		{
			name: "Multiline_Trailing",
			in:   "a\nb\n",
			exp:  exp{bytes: 4, runes: 4, words: 2, lines: 3, tokens: 1},
		},
		{
			name: "OnlyWhitespace",
			in:   " \t\n",
			exp:  exp{bytes: 3, runes: 3, words: 0, lines: 2, tokens: 1},
		},
		{
			name: "Emoji_Astral",
			in:   "👍👍", // bytes=8, runes=2
			exp:  exp{bytes: 8, runes: 2, words: 1, lines: 1, tokens: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := metrics.CountFeatures(tc.in)
			got := exp{bytes: f.Bytes, runes: f.Runes, words: f.Words, lines: f.Lines, tokens: f.ApproxTokens}
			if got != tc.exp {
				t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.exp)
			}
		})
	}
}

func TestApproxTokens_RoundsUp(t *testing.T) {
	// 5 runes at 4 runes/token -> 2 tokens.
	if f := metrics.CountFeatures("abcde"); f.ApproxTokens != 2 {
		t.Fatalf("ApproxTokens = %d, want 2", f.ApproxTokens)
	}
	// Exactly 4 runes -> 1 token.
	if f := metrics.CountFeatures("abcd"); f.ApproxTokens != 1 {
		t.Fatalf("ApproxTokens = %d, want 1", f.ApproxTokens)
	}
}
