// Package verify wires static vetting, sandboxed execution and output
// comparison into one verification pipeline.
package verify

import (
	"context"
	"fmt"

	"codehosp/internal/verify/comparator"
	"codehosp/internal/verify/model"
	"codehosp/internal/verify/sandbox"
	"codehosp/internal/verify/vetter"
	"codehosp/pkg/utils/logger"
)

const defaultMaxStderrBytes = 8 << 10

// Config controls orchestrator behavior.
type Config struct {
	// FailOnStderrWithStdout makes any non-empty stderr fatal even
	// when stdout was produced. This is the strict default; disabling
	// it only fails executions that produced no stdout at all.
	FailOnStderrWithStdout bool `yaml:"fail_on_stderr_with_stdout"`

	// MaxStderrBytes bounds the stderr content carried into result
	// details. Default 8KiB.
	MaxStderrBytes int `yaml:"max_stderr_bytes"`
}

// DefaultConfig returns the strict orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		FailOnStderrWithStdout: true,
		MaxStderrBytes:         defaultMaxStderrBytes,
	}
}

// Verifier is the single entry point of the verification pipeline.
// It is stateless and safe for concurrent use.
type Verifier struct {
	vetter     *vetter.Vetter
	executor   sandbox.Executor
	comparator *comparator.Comparator
	config     Config
}

// NewVerifier assembles the pipeline.
func NewVerifier(v *vetter.Vetter, executor sandbox.Executor, cmp *comparator.Comparator, cfg Config) *Verifier {
	if cfg.MaxStderrBytes <= 0 {
		cfg.MaxStderrBytes = defaultMaxStderrBytes
	}
	return &Verifier{
		vetter:     v,
		executor:   executor,
		comparator: cmp,
		config:     cfg,
	}
}

// Verify runs one submission through vet, execute and compare. It
// always returns a structured result; panics inside the pipeline are
// converted to an error status rather than escaping to the caller.
func (v *Verifier) Verify(ctx context.Context, req model.SubmissionRequest) (result model.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "verification panicked: %v", r)
			result = model.VerificationResult{
				Status:         model.StatusError,
				ExpectedOutput: req.ExpectedOutput,
				Details:        fmt.Sprintf("verification failed: %v", r),
			}
		}
	}()

	verdict := v.vetter.Vet(req.SourceCode)
	if !verdict.Safe {
		logger.Warnf(ctx, "submission rejected by vetting: %s", verdict.Violation)
		return model.VerificationResult{
			Status:         model.StatusError,
			ExpectedOutput: req.ExpectedOutput,
			Details:        verdict.Violation,
		}
	}

	outcome := v.executor.Execute(ctx, vetter.Sanitize(req.SourceCode), req.DatasetContent)
	if v.executionFailed(outcome) {
		return model.VerificationResult{
			Status:         model.StatusError,
			Output:         outcome.Stdout,
			ExpectedOutput: req.ExpectedOutput,
			Details:        fmt.Sprintf("Execution Error: %s", truncate(outcome.Stderr, v.config.MaxStderrBytes)),
		}
	}

	return v.comparator.Compare(ctx, outcome.Stdout, req.ExpectedOutput)
}

func (v *Verifier) executionFailed(outcome model.ExecutionOutcome) bool {
	if outcome.Stderr == "" {
		return false
	}
	if v.config.FailOnStderrWithStdout {
		return true
	}
	return outcome.Stdout == ""
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... [truncated]"
}
