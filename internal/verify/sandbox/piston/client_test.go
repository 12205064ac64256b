package piston

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestExecuteSendsScriptAndDatasetAsSiblingFiles(t *testing.T) {
	t.Parallel()

	var got executeRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"run":{"stdout":"42\n","stderr":""}}`))
	})

	outcome := client.Execute(context.Background(), `df = pd.read_csv('x.csv')`, "a,b\n1,2\n")
	if outcome.Stderr != "" {
		t.Fatalf("unexpected stderr %q", outcome.Stderr)
	}
	if outcome.Stdout != "42\n" {
		t.Fatalf("got stdout %q", outcome.Stdout)
	}

	if got.Language != "python" || got.Version != "3.10.0" {
		t.Fatalf("unexpected runtime %s %s", got.Language, got.Version)
	}
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got.Files))
	}
	if got.Files[0].Name != "main.py" || got.Files[1].Name != "data.csv" {
		t.Fatalf("unexpected file names %q %q", got.Files[0].Name, got.Files[1].Name)
	}
	if !strings.Contains(got.Files[0].Content, `pd.read_csv("data.csv")`) {
		t.Fatalf("dataset load not rewritten: %q", got.Files[0].Content)
	}
	if got.CompileTimeout != 10000 || got.RunTimeout != 10000 {
		t.Fatalf("unexpected budgets %d %d", got.CompileTimeout, got.RunTimeout)
	}
}

func TestExecutePassesThroughUserStderr(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"run":{"stdout":"","stderr":"Traceback: KeyError"}}`))
	})

	outcome := client.Execute(context.Background(), "print(1)", "")
	if outcome.Stderr != "Traceback: KeyError" {
		t.Fatalf("got %q", outcome.Stderr)
	}
}

func TestExecuteMapsKillSignalToResourceLimitMessage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"run":{"stdout":"partial","stderr":"","signal":"SIGKILL"}}`))
	})

	outcome := client.Execute(context.Background(), "while True: pass", "")
	if !strings.Contains(outcome.Stderr, "exceeded time or memory limits") {
		t.Fatalf("got %q", outcome.Stderr)
	}
	if outcome.Stdout != "partial" {
		t.Fatalf("stdout should survive a kill, got %q", outcome.Stdout)
	}
}

func TestExecuteFoldsTransportFailuresIntoStderr(t *testing.T) {
	t.Parallel()

	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	outcome := client.Execute(context.Background(), "print(1)", "")
	if outcome.Stdout != "" {
		t.Fatalf("expected empty stdout, got %q", outcome.Stdout)
	}
	if !strings.Contains(outcome.Stderr, "Piston API error") {
		t.Fatalf("got %q", outcome.Stderr)
	}
}

func TestExecuteReportsServiceErrorMessage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"runtime unknown"}`))
	})

	outcome := client.Execute(context.Background(), "print(1)", "")
	if !strings.Contains(outcome.Stderr, "runtime unknown") {
		t.Fatalf("got %q", outcome.Stderr)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"run":{"stdout":"late","stderr":""}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome := client.Execute(ctx, "print(1)", "")
	if !strings.Contains(outcome.Stderr, "Piston API error") {
		t.Fatalf("got %q", outcome.Stderr)
	}
}

func TestConfigDerivesOuterTimeoutAboveInnerBudget(t *testing.T) {
	t.Parallel()

	cfg := Config{BaseURL: "http://example.invalid", CompileTimeoutMs: 2000, RunTimeoutMs: 3000}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	inner := 5 * time.Second
	if client.httpClient.Timeout <= inner {
		t.Fatalf("outer timeout %v must exceed inner budget %v", client.httpClient.Timeout, inner)
	}
}
