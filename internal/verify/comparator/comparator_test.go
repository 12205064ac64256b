package comparator

import (
	"context"
	"fmt"
	"testing"

	"codehosp/internal/verify/model"
)

// stubStrategy returns a fixed score regardless of input.
type stubStrategy struct {
	score   float64
	verdict string
}

func (s stubStrategy) Score(context.Context, string, string) (float64, string) {
	return s.score, s.verdict
}

func TestCompareExactMatchAfterTrimming(t *testing.T) {
	t.Parallel()

	c := New(NewTokenOverlap(), LocalThresholds())
	result := c.Compare(context.Background(), "  42.0\n", "42.0")
	if result.Status != model.StatusMatch {
		t.Fatalf("got %s", result.Status)
	}
	if result.Output != "  42.0\n" || result.ExpectedOutput != "42.0" {
		t.Fatal("outputs must be echoed verbatim")
	}
}

func TestCompareNumericWithinTolerance(t *testing.T) {
	t.Parallel()

	c := New(NewTokenOverlap(), LocalThresholds())
	// 0.031 vs 0.030 is about 3.3 percent apart.
	result := c.Compare(context.Background(), "ttest p-value: 0.031", "ttest p-value: 0.030")
	if result.Status != model.StatusMatch {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
}

func TestCompareNumericModerateDifference(t *testing.T) {
	t.Parallel()

	c := New(NewTokenOverlap(), LocalThresholds())
	// 110 vs 100 is 10 percent apart.
	result := c.Compare(context.Background(), "n = 110", "n = 100")
	if result.Status != model.StatusPartial {
		t.Fatalf("got %s", result.Status)
	}
}

func TestCompareLargeNumericDifferenceFallsToSimilarity(t *testing.T) {
	t.Parallel()

	c := New(NewTokenOverlap(), LocalThresholds())
	// 50 vs 65 is 23 percent apart, but three of four tokens overlap.
	result := c.Compare(context.Background(), "the mean is 50", "the mean is 65")
	if result.Status != model.StatusPartial {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
}

func TestCompareNumericTieringIsMonotonic(t *testing.T) {
	t.Parallel()

	c := New(stubStrategy{score: 0}, LocalThresholds())
	rank := map[model.Status]int{
		model.StatusMatch:    0,
		model.StatusPartial:  1,
		model.StatusMismatch: 2,
	}

	prev := -1
	for _, actual := range []float64{100, 102, 104.9, 105.1, 110, 119, 121, 150, 400} {
		result := c.Compare(context.Background(), fmt.Sprintf("%.1f", actual), "result: 100.0")
		r, ok := rank[result.Status]
		if !ok {
			t.Fatalf("unexpected status %s for %f", result.Status, actual)
		}
		if r < prev {
			t.Fatalf("status regressed from rank %d to %d at %f", prev, r, actual)
		}
		prev = r
	}
}

func TestCompareZeroExpectedDoesNotDivide(t *testing.T) {
	t.Parallel()

	c := New(stubStrategy{score: 0, verdict: "no overlap"}, LocalThresholds())
	result := c.Compare(context.Background(), "count: 7", "count: 0")
	if result.Status != model.StatusMismatch {
		t.Fatalf("got %s", result.Status)
	}

	result = c.Compare(context.Background(), "total 0", "count: 0")
	if result.Status != model.StatusMatch {
		t.Fatalf("got %s", result.Status)
	}
}

func TestCompareSimilarityBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  model.Status
	}{
		{0.97, model.StatusMatch},
		{0.92, model.StatusClose},
		{0.86, model.StatusPartial},
		{0.81, model.StatusPartial},
		{0.40, model.StatusMismatch},
		{0.0, model.StatusMismatch},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("score %.2f", tc.score), func(t *testing.T) {
			t.Parallel()
			c := New(stubStrategy{score: tc.score, verdict: "service verdict"}, RemoteThresholds())
			result := c.Compare(context.Background(), "alpha beta", "gamma delta")
			if result.Status != tc.want {
				t.Fatalf("got %s, want %s", result.Status, tc.want)
			}
			if result.Details != "service verdict" {
				t.Fatalf("details %q", result.Details)
			}
		})
	}
}

func TestCompareEmptyActualNeverPanics(t *testing.T) {
	t.Parallel()

	c := New(NewTokenOverlap(), LocalThresholds())
	result := c.Compare(context.Background(), "", "expected result text")
	if result.Status != model.StatusMismatch {
		t.Fatalf("got %s", result.Status)
	}
}

func TestTokenOverlapScore(t *testing.T) {
	t.Parallel()

	strategy := NewTokenOverlap()
	cases := []struct {
		name     string
		actual   string
		expected string
		want     float64
	}{
		{"identical", "a b c", "a b c", 1.0},
		{"disjoint", "a b", "c d", 0.0},
		{"subset over max", "the mean is 50", "the mean is 65", 0.75},
		{"case insensitive", "Mean VALUE", "mean value", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "", "something", 0.0},
		{"duplicates collapse", "x x x y", "x y", 1.0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, _ := strategy.Score(context.Background(), tc.actual, tc.expected)
			if got != tc.want {
				t.Fatalf("got %f, want %f", got, tc.want)
			}
		})
	}
}
