package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// minTokenLen drops markup noise such as "p", "li" and "js".
const minTokenLen = 3

// Fingerprint is a term-frequency vector over the tokens of one text.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint returns nil when text yields no tokens.
func NewFingerprint(text string) *Fingerprint {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	fp := &Fingerprint{tokens: make(map[string]float64, len(terms))}
	for _, term := range terms {
		fp.tokens[term]++
	}
	var sum float64
	for _, count := range fp.tokens {
		sum += count * count
	}
	fp.norm = math.Sqrt(sum)
	return fp
}

func tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := raw[:0]
	for _, token := range raw {
		if len(token) >= minTokenLen {
			terms = append(terms, token)
		}
	}
	return terms
}
