// Package sandbox defines the execution boundary for vetted analysis
// scripts. Implementations run untrusted code in isolation and always
// return an outcome value, never an error for user code failures.
package sandbox

import (
	"context"

	"codehosp/internal/verify/model"
)

// Executor runs a script against a dataset and returns its output.
// Transport and service failures are folded into the outcome's Stderr
// so the orchestrator always receives a value.
type Executor interface {
	Execute(ctx context.Context, code, datasetContent string) model.ExecutionOutcome
}

// DatasetFileName is the fixed in-sandbox name the dataset is
// provisioned under. Data-loading calls are rewritten to read it.
const DatasetFileName = "data.csv"

// ResourceLimitMessage marks terminations caused by exceeding the
// sandbox time or memory budget, distinguishable from user code errors.
const ResourceLimitMessage = "execution killed: exceeded time or memory limits"
