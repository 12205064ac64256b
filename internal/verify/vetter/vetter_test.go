package vetter

import (
	"strings"
	"testing"
)

func TestVetRejectsDangerousOperations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    string
		keyword string
	}{
		{"os import", "import os\nprint('hi')", "import os"},
		{"subprocess call", "import pandas\nsubprocess.run(['ls'])", "subprocess"},
		{"eval", "x = eval('1+1')", "eval"},
		{"raw open", "f = open('data.csv')", "open("},
		{"dunder import", "__import__('socket')", "__import__"},
	}

	v := New()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			verdict := v.Vet(tc.code)
			if verdict.Safe {
				t.Fatalf("expected unsafe verdict for %q", tc.code)
			}
			if !strings.Contains(verdict.Violation, tc.keyword) {
				t.Fatalf("violation %q does not name %q", verdict.Violation, tc.keyword)
			}
		})
	}
}

func TestVetReportsFirstDenylistHit(t *testing.T) {
	t.Parallel()

	v := New()
	verdict := v.Vet("os.system('rm -rf /')\neval('x')")
	if verdict.Safe {
		t.Fatal("expected unsafe verdict")
	}
	if !strings.Contains(verdict.Violation, "os.system") {
		t.Fatalf("expected first hit os.system, got %q", verdict.Violation)
	}
}

func TestVetAcceptsAllowlistedImports(t *testing.T) {
	t.Parallel()

	code := `import pandas
import numpy
import scipy
df = pandas.DataFrame()
print(df.mean())`

	verdict := New().Vet(code)
	if !verdict.Safe {
		t.Fatalf("expected safe verdict, got violation %q", verdict.Violation)
	}
	if verdict.Violation != "" {
		t.Fatalf("safe verdict must carry no violation, got %q", verdict.Violation)
	}
}

func TestVetListsDisallowedImportsSortedAndDeduplicated(t *testing.T) {
	t.Parallel()

	code := `import requests
import pandas
import zlib
import requests`

	verdict := New().Vet(code)
	if verdict.Safe {
		t.Fatal("expected unsafe verdict")
	}
	want := "Code contains non-allowed imports: requests, zlib"
	if verdict.Violation != want {
		t.Fatalf("got %q, want %q", verdict.Violation, want)
	}
}

func TestVetImportNamesAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	verdict := New().Vet("import Pandas\nprint(1)")
	if !verdict.Safe {
		t.Fatalf("expected safe verdict, got %q", verdict.Violation)
	}
}

func TestVetEmptySourceIsSafe(t *testing.T) {
	t.Parallel()

	if verdict := New().Vet(""); !verdict.Safe {
		t.Fatalf("empty source must be safe, got %q", verdict.Violation)
	}
}

func TestNewWithRulesOverridesDefaults(t *testing.T) {
	t.Parallel()

	v := NewWithRules([]string{"forbidden_call"}, []string{"custom"})
	if verdict := v.Vet("import custom\nforbidden_call()"); verdict.Safe {
		t.Fatal("expected custom denylist hit")
	}
	if verdict := v.Vet("import custom"); !verdict.Safe {
		t.Fatalf("custom allowlist should pass, got %q", verdict.Violation)
	}
}

func TestSanitizeStripsNullBytes(t *testing.T) {
	t.Parallel()

	got := Sanitize("print(1)\x00\x00")
	if got != "print(1)" {
		t.Fatalf("got %q", got)
	}
}
