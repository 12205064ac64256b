// Package comparator decides whether sandbox output matches the
// expected output a study claims, through a tiered sequence: exact
// match, numeric tolerance, then a similarity strategy.
package comparator

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"codehosp/internal/verify/model"
)

const (
	detailExactMatch  = "Perfect or near-perfect match. Auto-verified."
	detailModerate    = "Moderate similarity. Review recommended."
	numericMatchPct   = 5.0
	numericPartialPct = 20.0
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// Strategy produces a similarity score in [0,1] plus a human-readable
// verdict. Implementations must degrade to (0, verdict) on their own
// failures rather than returning an error; a failed comparison is a
// low-confidence mismatch, not a pipeline fault.
type Strategy interface {
	Score(ctx context.Context, actual, expected string) (float64, string)
}

// Thresholds defines the similarity bands. A score at or above Match
// yields match, at or above Close yields close, at or above Partial
// yields partial, anything lower is a mismatch. Setting Close equal
// to Match disables the close band.
type Thresholds struct {
	Match   float64 `yaml:"match"`
	Close   float64 `yaml:"close"`
	Partial float64 `yaml:"partial"`
}

// RemoteThresholds matches the bands used with the semantic service.
func RemoteThresholds() Thresholds {
	return Thresholds{Match: 0.95, Close: 0.90, Partial: 0.80}
}

// LocalThresholds matches the bands used with token overlap scoring.
func LocalThresholds() Thresholds {
	return Thresholds{Match: 0.8, Close: 0.8, Partial: 0.5}
}

// Comparator runs the tiered decision procedure.
type Comparator struct {
	strategy   Strategy
	thresholds Thresholds
}

// New creates a comparator with the given similarity strategy and
// threshold table.
func New(strategy Strategy, thresholds Thresholds) *Comparator {
	return &Comparator{strategy: strategy, thresholds: thresholds}
}

// Compare evaluates actual against expected and returns a result with
// both outputs echoed in. It never fails: every input pair resolves to
// one of the five statuses.
func (c *Comparator) Compare(ctx context.Context, actual, expected string) model.VerificationResult {
	result := model.VerificationResult{
		Output:         actual,
		ExpectedOutput: expected,
	}

	if strings.TrimSpace(actual) == strings.TrimSpace(expected) {
		result.Status = model.StatusMatch
		result.Details = detailExactMatch
		return result
	}

	if status, details, ok := c.compareNumeric(actual, expected); ok {
		result.Status = status
		result.Details = details
		return result
	}

	score, verdict := c.strategy.Score(ctx, actual, expected)
	result.Details = verdict
	switch {
	case score >= c.thresholds.Match:
		result.Status = model.StatusMatch
	case score >= c.thresholds.Close:
		result.Status = model.StatusClose
	case score >= c.thresholds.Partial:
		result.Status = model.StatusPartial
	default:
		result.Status = model.StatusMismatch
	}
	return result
}

// compareNumeric resolves the numeric tolerance tier. It reports
// ok=false when either side has no extractable number or the percent
// difference is too large to decide, letting the similarity tier run.
func (c *Comparator) compareNumeric(actual, expected string) (model.Status, string, bool) {
	actualNum, okActual := extractNumber(actual)
	expectedNum, okExpected := extractNumber(expected)
	if !okActual || !okExpected {
		return "", "", false
	}

	diff := math.Abs(actualNum - expectedNum)
	if expectedNum == 0 {
		// Percent difference is undefined against zero; only an exact
		// numeric agreement resolves here.
		if diff == 0 {
			return model.StatusMatch, detailExactMatch, true
		}
		return "", "", false
	}

	percentDiff := diff / math.Abs(expectedNum) * 100
	switch {
	case percentDiff < numericMatchPct:
		return model.StatusMatch, detailExactMatch, true
	case percentDiff < numericPartialPct:
		return model.StatusPartial, detailModerate, true
	default:
		return "", "", false
	}
}

// extractNumber pulls the first optionally signed, optionally decimal
// literal from s.
func extractNumber(s string) (float64, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
