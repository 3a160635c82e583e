// Package pages links content into "page" buckets derived from the words
// of its display name, so that a label lookup for any word finds it.
package pages

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]bool{
	"and": true, "are": true, "but": true, "for": true, "from": true,
	"has": true, "had": true, "have": true, "her": true, "his": true,
	"its": true, "not": true, "our": true, "the": true, "that": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"will": true, "with": true, "you": true, "your": true, "can": true,
	"all": true, "any": true, "into": true, "than": true, "too": true,
	"very": true, "just": true, "also": true, "about": true, "over": true,
	"out": true, "off": true, "own": true, "each": true, "how": true,
}

// Options controls tokenization. Zero values select the defaults.
type Options struct {
	MinTokenLength int
	SkipDigits     bool
	SkipStopWords  bool
	MaxTokens      int
}

const (
	DefaultMinTokenLength = 3
	DefaultMaxTokens      = 32
)

// DefaultOptions mirrors the historical tokenizer: three runes minimum,
// words containing digits dropped.
func DefaultOptions() Options {
	return Options{
		MinTokenLength: DefaultMinTokenLength,
		SkipDigits:     true,
		MaxTokens:      DefaultMaxTokens,
	}
}

// Tokens splits name into lowercase page tokens, in first-seen order
// and without duplicates.
func (o Options) Tokens(name string) []string {
	if name == "" {
		return nil
	}
	minLen := o.MinTokenLength
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}
	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// cases.Caser is stateful and must not be shared between goroutines.
	lower := cases.Lower(language.Und)
	text := lower.String(norm.NFKC.String(name))

	seen := make(map[string]bool)
	var out []string
	for _, tok := range split(text) {
		if len([]rune(tok)) < minLen {
			continue
		}
		if o.SkipDigits && strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			continue
		}
		if o.SkipStopWords && stopWords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxTokens {
			break
		}
	}
	return out
}

// split breaks text on every rune that is neither a letter nor a number.
func split(text string) []string {
	tokens := make([]string, 0, len(text)/5+1)
	var buf strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			buf.WriteRune(r)
			continue
		}
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}
	if buf.Len() > 0 {
		tokens = append(tokens, buf.String())
	}
	return tokens
}
