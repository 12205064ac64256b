package verify

import (
	"context"
	"strings"
	"testing"

	"codehosp/internal/verify/comparator"
	"codehosp/internal/verify/model"
	"codehosp/internal/verify/vetter"
)

// fakeExecutor returns a canned outcome and records the last call.
type fakeExecutor struct {
	outcome  model.ExecutionOutcome
	lastCode string
	called   bool
}

func (f *fakeExecutor) Execute(_ context.Context, code, _ string) model.ExecutionOutcome {
	f.called = true
	f.lastCode = code
	return f.outcome
}

// panicExecutor simulates a backend bug.
type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, string, string) model.ExecutionOutcome {
	panic("sandbox backend bug")
}

func newVerifier(exec *fakeExecutor, cfg Config) *Verifier {
	cmp := comparator.New(comparator.NewTokenOverlap(), comparator.LocalThresholds())
	return NewVerifier(vetter.New(), exec, cmp, cfg)
}

func TestVerifyRejectsUnsafeCodeBeforeExecution(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import os\nos.listdir('.')",
		ExpectedOutput: "anything",
	})

	if result.Status != model.StatusError {
		t.Fatalf("got %s", result.Status)
	}
	if !strings.Contains(result.Details, "os") {
		t.Fatalf("details %q must name the violation", result.Details)
	}
	if exec.called {
		t.Fatal("sandbox must never run unvetted code")
	}
	if model.StudyStatusFor(result.Status) != model.StudyIssues {
		t.Fatal("error status must collapse to issues")
	}
}

func TestVerifyExactMatchMapsToVerified(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{Stdout: "42.0"}}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import pandas\nprint(42.0)",
		ExpectedOutput: "42.0",
	})

	if result.Status != model.StatusMatch {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
	if model.StudyStatusFor(result.Status) != model.StudyVerified {
		t.Fatal("match must collapse to verified")
	}
	if model.PointsFor(result.Status) != model.PointsFull {
		t.Fatal("match must earn full points")
	}
}

func TestVerifyNumericToleranceCloseValues(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{Stdout: "ttest p-value: 0.031"}}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import scipy\nprint('ttest')",
		ExpectedOutput: "ttest p-value: 0.030",
	})

	if result.Status != model.StatusMatch {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
}

func TestVerifyDivergentNumbersWithSharedWordsArePartial(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{Stdout: "the mean is 50"}}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import statistics\nprint('mean')",
		ExpectedOutput: "the mean is 65",
	})

	if result.Status != model.StatusPartial {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
	if model.StudyStatusFor(result.Status) != model.StudyPartial {
		t.Fatal("partial must collapse to partial")
	}
	if model.PointsFor(result.Status) != model.PointsPartial {
		t.Fatal("partial must earn partial points")
	}
}

func TestVerifyTransportFailureBecomesErrorStatus(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{
		Stderr: "Piston API error: connection refused",
	}}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import pandas",
		ExpectedOutput: "42",
	})

	if result.Status != model.StatusError {
		t.Fatalf("got %s", result.Status)
	}
	if !strings.Contains(result.Details, "Piston API error") {
		t.Fatalf("details %q", result.Details)
	}
	if model.StudyStatusFor(result.Status) != model.StudyIssues {
		t.Fatal("transport failure must collapse to issues")
	}
}

func TestVerifyStrictModeFailsOnStderrDespiteStdout(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{
		Stdout: "42.0",
		Stderr: "RuntimeWarning: divide by zero",
	}}
	v := newVerifier(exec, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import numpy",
		ExpectedOutput: "42.0",
	})

	if result.Status != model.StatusError {
		t.Fatalf("got %s", result.Status)
	}
	if result.Output != "42.0" {
		t.Fatalf("stdout must be kept in the result, got %q", result.Output)
	}
}

func TestVerifyLenientModeToleratesStderrWithStdout(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{
		Stdout: "42.0",
		Stderr: "RuntimeWarning: divide by zero",
	}}
	cfg := DefaultConfig()
	cfg.FailOnStderrWithStdout = false
	v := newVerifier(exec, cfg)

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import numpy",
		ExpectedOutput: "42.0",
	})

	if result.Status != model.StatusMatch {
		t.Fatalf("got %s (%s)", result.Status, result.Details)
	}
}

func TestVerifyTruncatesHugeStderr(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{
		Stderr: strings.Repeat("x", 100_000),
	}}
	cfg := DefaultConfig()
	cfg.MaxStderrBytes = 1024
	v := newVerifier(exec, cfg)

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import pandas",
		ExpectedOutput: "42",
	})

	if len(result.Details) > 2048 {
		t.Fatalf("details not truncated, %d bytes", len(result.Details))
	}
	if !strings.Contains(result.Details, "[truncated]") {
		t.Fatal("missing truncation marker")
	}
}

func TestVerifySanitizesNullBytesBeforeExecution(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{outcome: model.ExecutionOutcome{Stdout: "ok"}}
	v := newVerifier(exec, DefaultConfig())

	v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "print(1)\x00",
		ExpectedOutput: "ok",
	})

	if strings.Contains(exec.lastCode, "\x00") {
		t.Fatal("null bytes must be stripped before dispatch")
	}
}

func TestVerifyRecoversFromPanics(t *testing.T) {
	t.Parallel()

	cmp := comparator.New(comparator.NewTokenOverlap(), comparator.LocalThresholds())
	v := NewVerifier(vetter.New(), panicExecutor{}, cmp, DefaultConfig())

	result := v.Verify(context.Background(), model.SubmissionRequest{
		SourceCode:     "import pandas",
		ExpectedOutput: "42",
	})

	if result.Status != model.StatusError {
		t.Fatalf("got %s", result.Status)
	}
	if !strings.Contains(result.Details, "sandbox backend bug") {
		t.Fatalf("details %q", result.Details)
	}
}
