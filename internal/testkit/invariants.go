package testkit

import (
	"fmt"
	"strings"

	"cexd/internal/diag"
)

// CheckDiagnosticInvariants verifies properties every parser output must hold:
//  1. tag severity is one of note/warning/error;
//  2. tag line and column are non-negative;
//  3. no outer text or tag text still contains one of the raw names.
func CheckDiagnosticInvariants(diags []diag.Diagnostic, rawNames ...string) error {
	for i, d := range diags {
		for _, name := range rawNames {
			if name == "" {
				continue
			}
			if strings.Contains(d.Text, name) {
				return fmt.Errorf("diagnostic %d: text %q still mentions %q", i, d.Text, name)
			}
			if d.Tag != nil && strings.Contains(d.Tag.Text, name) {
				return fmt.Errorf("diagnostic %d: tag text %q still mentions %q", i, d.Tag.Text, name)
			}
		}
		if d.Tag == nil {
			continue
		}
		if d.Tag.Severity < diag.SevNote || d.Tag.Severity > diag.SevError {
			return fmt.Errorf("diagnostic %d: severity %d out of range", i, d.Tag.Severity)
		}
		if d.Tag.Line < 0 || d.Tag.Column < 0 {
			return fmt.Errorf("diagnostic %d: negative location %d:%d", i, d.Tag.Line, d.Tag.Column)
		}
	}
	return nil
}
