// Package local implements the sandbox executor by running scripts in
// a local subprocess. It provides no real isolation and is intended
// for development and CI only; production deployments use the remote
// backend.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"codehosp/internal/verify/model"
	"codehosp/internal/verify/sandbox"

	"github.com/google/shlex"
)

const defaultMaxOutputBytes = 64 << 10

// Config holds local runner settings.
type Config struct {
	// Command is the interpreter invocation, e.g. "python3" or
	// "python3 -I". The script path is appended as the last argument.
	Command string `yaml:"command"`

	// Timeout bounds one execution. Default 10s.
	Timeout time.Duration `yaml:"timeout"`

	// MaxOutputBytes caps captured stdout/stderr. Default 64KiB.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// Runner executes scripts in a per-call temporary workspace.
type Runner struct {
	command        []string
	timeout        time.Duration
	maxOutputBytes int
}

// NewRunner parses the interpreter command and returns a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Command == "" {
		cfg.Command = "python3"
	}
	argv, err := shlex.Split(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	return &Runner{
		command:        argv,
		timeout:        cfg.Timeout,
		maxOutputBytes: cfg.MaxOutputBytes,
	}, nil
}

var _ sandbox.Executor = (*Runner)(nil)

// Execute writes the script and dataset into a temporary workspace,
// runs the interpreter and captures output. The workspace is removed
// before returning, no cleanup state survives the call.
func (r *Runner) Execute(ctx context.Context, code, datasetContent string) model.ExecutionOutcome {
	workDir, err := os.MkdirTemp("", "codehosp-run-*")
	if err != nil {
		return failure(fmt.Sprintf("create workspace: %v", err))
	}
	defer os.RemoveAll(workDir)

	scriptPath := filepath.Join(workDir, "main.py")
	if err := os.WriteFile(scriptPath, []byte(sandbox.RewriteDatasetLoads(code)), 0o600); err != nil {
		return failure(fmt.Sprintf("write script: %v", err))
	}
	datasetPath := filepath.Join(workDir, sandbox.DatasetFileName)
	if err := os.WriteFile(datasetPath, []byte(datasetContent), 0o600); err != nil {
		return failure(fmt.Sprintf("write dataset: %v", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), scriptPath)
	cmd := exec.CommandContext(runCtx, r.command[0], args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return model.ExecutionOutcome{
			Stdout: truncate(stdout.String(), r.maxOutputBytes),
			Stderr: sandbox.ResourceLimitMessage,
		}
	}

	outcome := model.ExecutionOutcome{
		Stdout: truncate(stdout.String(), r.maxOutputBytes),
		Stderr: truncate(stderr.String(), r.maxOutputBytes),
	}
	if err != nil && outcome.Stderr == "" {
		outcome.Stderr = err.Error()
	}
	return outcome
}

func failure(detail string) model.ExecutionOutcome {
	return model.ExecutionOutcome{Stderr: fmt.Sprintf("local runner error: %s", detail)}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... [truncated]"
}
