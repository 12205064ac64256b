// Package piston implements the sandbox executor against a
// Piston-compatible remote code execution service.
package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codehosp/internal/verify/model"
	"codehosp/internal/verify/sandbox"
)

const (
	defaultLanguage = "python"
	defaultVersion  = "3.10.0"

	defaultCompileTimeoutMs = 10000
	defaultRunTimeoutMs     = 10000

	// Piston reports resource-limit kills through the signal field.
	killSignal = "SIGKILL"
)

// Config holds the remote execution service settings.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
	Version  string `yaml:"version"`

	// Budgets enforced by the remote service, in milliseconds.
	CompileTimeoutMs int `yaml:"compile_timeout_ms"`
	RunTimeoutMs     int `yaml:"run_timeout_ms"`

	// Memory ceilings in bytes. -1 disables the ceiling.
	CompileMemoryLimit int64 `yaml:"compile_memory_limit"`
	RunMemoryLimit     int64 `yaml:"run_memory_limit"`

	// RequestTimeout is the outer HTTP budget. It must exceed the
	// service-side compile+run budget so a hung service cannot block
	// the pipeline. Zero derives it from the budgets.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func (c *Config) setDefaults() {
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Version == "" {
		c.Version = defaultVersion
	}
	if c.CompileTimeoutMs == 0 {
		c.CompileTimeoutMs = defaultCompileTimeoutMs
	}
	if c.RunTimeoutMs == 0 {
		c.RunTimeoutMs = defaultRunTimeoutMs
	}
	if c.CompileMemoryLimit == 0 {
		c.CompileMemoryLimit = -1
	}
	if c.RunMemoryLimit == 0 {
		c.RunMemoryLimit = -1
	}
	inner := time.Duration(c.CompileTimeoutMs+c.RunTimeoutMs) * time.Millisecond
	if c.RequestTimeout <= inner {
		c.RequestTimeout = inner + 5*time.Second
	}
}

// Client submits scripts to the remote execution service.
type Client struct {
	config     Config
	httpClient *http.Client
	entryFile  string
}

// NewClient creates a piston-backed executor.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("piston base url is required")
	}
	cfg.setDefaults()
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		entryFile:  "main.py",
	}, nil
}

var _ sandbox.Executor = (*Client)(nil)

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []requestFile `json:"files"`
	Stdin    string        `json:"stdin"`
	Args     []string      `json:"args"`

	CompileTimeout     int   `json:"compile_timeout"`
	RunTimeout         int   `json:"run_timeout"`
	CompileMemoryLimit int64 `json:"compile_memory_limit"`
	RunMemoryLimit     int64 `json:"run_memory_limit"`
}

type requestFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type executeResponse struct {
	Run struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Signal string `json:"signal"`
	} `json:"run"`
	Message string `json:"message"`
}

// Execute rewrites dataset loads, ships the script and dataset as
// sibling files and returns the run output. Transport failures are
// folded into Stderr.
func (c *Client) Execute(ctx context.Context, code, datasetContent string) model.ExecutionOutcome {
	body := executeRequest{
		Language: c.config.Language,
		Version:  c.config.Version,
		Files: []requestFile{
			{Name: c.entryFile, Content: sandbox.RewriteDatasetLoads(code)},
			{Name: sandbox.DatasetFileName, Content: datasetContent},
		},
		Stdin:              "",
		Args:               []string{},
		CompileTimeout:     c.config.CompileTimeoutMs,
		RunTimeout:         c.config.RunTimeoutMs,
		CompileMemoryLimit: c.config.CompileMemoryLimit,
		RunMemoryLimit:     c.config.RunMemoryLimit,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return transportFailure(fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return transportFailure(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return transportFailure(fmt.Sprintf("read response: %v", err))
	}

	var decoded executeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return transportFailure(fmt.Sprintf("decode response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return transportFailure(msg)
	}

	if decoded.Run.Signal == killSignal {
		return model.ExecutionOutcome{
			Stdout: decoded.Run.Stdout,
			Stderr: sandbox.ResourceLimitMessage,
		}
	}

	return model.ExecutionOutcome{
		Stdout: decoded.Run.Stdout,
		Stderr: decoded.Run.Stderr,
	}
}

func transportFailure(detail string) model.ExecutionOutcome {
	return model.ExecutionOutcome{
		Stdout: "",
		Stderr: fmt.Sprintf("Piston API error: %s", detail),
	}
}
