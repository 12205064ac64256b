package comparator

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// TokenOverlap scores similarity as the token-set intersection divided
// by the larger set's cardinality. This is deliberately not a Jaccard
// index: dividing by the max cardinality is more forgiving when one
// output is a subset of the other, and is preserved as observed
// behavior rather than corrected.
type TokenOverlap struct{}

// NewTokenOverlap returns the local, network-free similarity strategy.
func NewTokenOverlap() *TokenOverlap {
	return &TokenOverlap{}
}

var _ Strategy = (*TokenOverlap)(nil)

// Score tokenizes both strings on whitespace, lower-cased. Two empty
// token sets score 1.0, exactly one empty set scores 0.0.
func (t *TokenOverlap) Score(_ context.Context, actual, expected string) (float64, string) {
	actualSet := tokenize(actual)
	expectedSet := tokenize(expected)

	var score float64
	switch {
	case actualSet.Cardinality() == 0 && expectedSet.Cardinality() == 0:
		score = 1.0
	case actualSet.Cardinality() == 0 || expectedSet.Cardinality() == 0:
		score = 0.0
	default:
		intersection := actualSet.Intersect(expectedSet).Cardinality()
		larger := actualSet.Cardinality()
		if expectedSet.Cardinality() > larger {
			larger = expectedSet.Cardinality()
		}
		score = float64(intersection) / float64(larger)
	}

	return score, fmt.Sprintf("Token overlap similarity: %.2f%%", score*100)
}

func tokenize(s string) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set.Add(token)
	}
	return set
}
