package sentiment

import (
	"strings"
	"unicode"

	"trendpulse/internal/models"
)

// defaultPositive and defaultNegative are the keyword sets shared by every
// provider's normalizer. They are deliberately small and literal: the label
// is a coarse lexical signal, not a model score.
var defaultPositive = []string{
	"launch", "growth", "breakthrough", "success", "win", "record",
	"innovative", "amazing", "great", "good", "best", "improve",
	"surge", "boost", "milestone", "love", "awesome", "exciting",
}

var defaultNegative = []string{
	"crash", "decline", "failure", "loss", "drop", "lawsuit",
	"scandal", "breach", "hack", "layoff", "worst", "bad",
	"fall", "risk", "warning", "outage", "ban", "fraud",
}

// Analyzer derives a sentiment label from a signed keyword count over
// free text. Construction is cheap; a single analyzer is shared across
// all provider pipelines.
type Analyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewAnalyzer returns an analyzer with the default keyword sets.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithKeywords(defaultPositive, defaultNegative)
}

// NewAnalyzerWithKeywords returns an analyzer with custom keyword sets.
func NewAnalyzerWithKeywords(positive, negative []string) *Analyzer {
	a := &Analyzer{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		a.positive[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range negative {
		a.negative[strings.ToLower(w)] = struct{}{}
	}
	return a
}

// Analyze labels text by comparing positive and negative keyword
// occurrence counts. Ties and empty text resolve to Neutral. The result is
// deterministic for a given input.
func (a *Analyzer) Analyze(text string) models.Sentiment {
	if strings.TrimSpace(text) == "" {
		return models.SentimentNeutral
	}

	positive, negative := 0, 0
	for _, token := range tokenize(text) {
		if _, ok := a.positive[token]; ok {
			positive++
		}
		if _, ok := a.negative[token]; ok {
			negative++
		}
	}

	switch {
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
