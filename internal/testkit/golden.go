// Package testkit holds helpers shared by package tests.
package testkit

import (
	"encoding/json"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"cexd/internal/diag"
)

// DiffDiagnostics returns a unified diff between the JSON renderings of want
// and got, or "" when they are equal.
func DiffDiagnostics(want, got []diag.Diagnostic) string {
	a := renderJSONLines(want)
	b := renderJSONLines(got)
	if a == b {
		return ""
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return "want:\n" + a + "got:\n" + b
	}
	return s
}

// DiffText is DiffDiagnostics for plain text.
func DiffText(want, got string) string {
	if want == got {
		return ""
	}
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return s
}

// одна диагностика на строку, чтобы diff был читаемым
func renderJSONLines(diags []diag.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		data, err := json.Marshal(d)
		if err != nil {
			b.WriteString("<marshal error: " + err.Error() + ">\n")
			continue
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String()
}
