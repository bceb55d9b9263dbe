package tokens

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCharsPerToken is used when no ratio matches.
const DefaultCharsPerToken = 4.0

// DefaultRatios returns the built-in characters-per-token ratios keyed by
// provider type.
func DefaultRatios() map[string]float64 {
	return map[string]float64{
		"default":   DefaultCharsPerToken,
		"openai":    4.0,
		"anthropic": 3.5,
	}
}

// SimpleEstimator implements character-based token estimation.
// CJK characters count as one token each; everything else is divided by the
// provider type's characters-per-token ratio.
type SimpleEstimator struct {
	ratios map[string]float64
}

// NewSimpleEstimator creates an estimator. A nil ratios map uses
// DefaultRatios. The map is not modified.
func NewSimpleEstimator(ratios map[string]float64) *SimpleEstimator {
	if ratios == nil {
		ratios = DefaultRatios()
	}
	return &SimpleEstimator{ratios: ratios}
}

// EstimateText implements Estimator.
func (e *SimpleEstimator) EstimateText(text string, kind string) int {
	if text == "" {
		return 0
	}

	var cjk, other int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isCJK(r) {
			cjk++
		} else {
			other += size
		}
		i += size
	}

	tokens := float64(cjk) + float64(other)/e.charsPerToken(kind)
	if tokens < 1.0 {
		tokens = 1.0 // Minimum 1 token for non-empty text
	}
	return int(tokens + 0.5)
}

// EstimatePrompt implements Estimator.
func (e *SimpleEstimator) EstimatePrompt(system, user string, kind string) int {
	total := ConversationOverhead
	for _, msg := range []string{system, user} {
		if msg == "" {
			continue
		}
		total += MessageOverhead + e.EstimateText(msg, kind)
	}
	return total
}

// charsPerToken returns the ratio for kind, trying an exact match, then a
// prefix match ("openai" matches "openai-compatible"), then "default".
func (e *SimpleEstimator) charsPerToken(kind string) float64 {
	if ratio, ok := e.ratios[kind]; ok && ratio > 0 {
		return ratio
	}
	for prefix, ratio := range e.ratios {
		if prefix != "default" && ratio > 0 && strings.HasPrefix(kind, prefix) {
			return ratio
		}
	}
	if ratio, ok := e.ratios["default"]; ok && ratio > 0 {
		return ratio
	}
	return DefaultCharsPerToken
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
