// Package vetter performs static analysis of submitted analysis
// scripts before anything reaches the sandbox. Vetting is purely
// textual, it never executes the code.
package vetter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"codehosp/internal/verify/model"

	mapset "github.com/deckarep/golang-set/v2"
)

// defaultDenylist contains substring markers of operations that must
// never appear in a submitted script. First match by scan order wins.
var defaultDenylist = []string{
	"os.system", "subprocess", "eval", "exec", "open(",
	"import socket", "import os", "import subprocess",
	"shutil", "pickle", "marshal", "sys.", "import sys",
	"__import__", "globals", "locals", "compile", "execfile",
}

// defaultAllowlist contains lower-cased bare module names permitted in
// import statements. Everything else is rejected.
var defaultAllowlist = []string{
	"pandas", "numpy", "matplotlib", "seaborn", "scipy",
	"sklearn", "statsmodels", "math", "datetime", "string",
	"re", "json", "csv", "itertools", "collections",
	"functools", "random", "time", "statistics",
	"stringio", "io",
}

var importPattern = regexp.MustCompile(`import\s+([a-zA-Z0-9_]+)`)

// Vetter checks source text against a denylist of dangerous operation
// markers and an allowlist of importable modules.
type Vetter struct {
	denylist  []string
	allowlist mapset.Set[string]
}

// New returns a vetter with the default rule set.
func New() *Vetter {
	return NewWithRules(defaultDenylist, defaultAllowlist)
}

// NewWithRules returns a vetter with custom rules. Allowlist entries
// are lower-cased on the way in.
func NewWithRules(denylist, allowlist []string) *Vetter {
	allowed := mapset.NewSet[string]()
	for _, name := range allowlist {
		allowed.Add(strings.ToLower(name))
	}
	return &Vetter{
		denylist:  denylist,
		allowlist: allowed,
	}
}

// Vet scans sourceCode and returns a verdict. It is deterministic and
// never fails: any well-formed text input yields a verdict.
func (v *Vetter) Vet(sourceCode string) model.SecurityVerdict {
	for _, keyword := range v.denylist {
		if strings.Contains(sourceCode, keyword) {
			return model.SecurityVerdict{
				Safe:      false,
				Violation: fmt.Sprintf("Code contains prohibited operation: %s", keyword),
			}
		}
	}

	found := mapset.NewSet[string]()
	for _, m := range importPattern.FindAllStringSubmatch(sourceCode, -1) {
		found.Add(strings.ToLower(m[1]))
	}

	disallowed := found.Difference(v.allowlist).ToSlice()
	if len(disallowed) > 0 {
		sort.Strings(disallowed)
		return model.SecurityVerdict{
			Safe:      false,
			Violation: fmt.Sprintf("Code contains non-allowed imports: %s", strings.Join(disallowed, ", ")),
		}
	}

	return model.SecurityVerdict{Safe: true}
}

// Sanitize strips NUL bytes that would corrupt the sandbox payload.
func Sanitize(code string) string {
	return strings.ReplaceAll(code, "\x00", "")
}
