package model

import (
	"fmt"
	"strings"
)

// Confidence is the ordinal self-assessment attached to AI pass results
// and candidate rules. It is a three-value ordinal (high > medium > low),
// never a number: it gates rule acceptance but is never averaged.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the ordinal position for comparisons (low=0 .. high=2).
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	case ConfidenceLow:
		return 0
	default:
		return -1
	}
}

// Valid reports whether c is one of the three known levels.
func (c Confidence) Valid() bool {
	return c.Rank() >= 0
}

// ParseConfidence normalizes an AI-reported confidence string. Unknown
// values are an error; the caller treats that as a malformed response.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid confidence %q", s)
	}
	return c, nil
}
