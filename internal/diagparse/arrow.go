package diagparse

import (
	"regexp"

	"cexd/internal/diag"
	"cexd/internal/textutil"
)

var arrowPattern = regexp.MustCompile(`^\s*-->\s*` + pathPattern + `(?::(\d+))?(?::(\d+))?`)

// ParseArrow parses output where the location follows the message on its own
// "--> file:line:col" line. The message line gets a tag carrying the location
// and the message; the arrow line gets the same location with empty text.
func ParseArrow(text, inputFilename string, opts ...Option) []diag.Diagnostic {
	p := newPreparer(inputFilename, opts)
	lines := textutil.SplitLines(text)
	out := make([]diag.Diagnostic, 0, len(lines))
	for _, raw := range lines {
		line := p.line(raw)
		d := diag.Diagnostic{Text: line}
		m := arrowPattern.FindStringSubmatch(line)
		if m == nil {
			out = append(out, d)
			continue
		}
		loc := diag.Tag{
			File:     p.tagFile(m[1]),
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: diag.SevError,
		}
		if prev := previousMessage(out); prev != nil {
			tag := loc
			tag.Severity = diag.SeverityOf(prev.Text)
			tag.Text = prev.Text
			prev.Tag = &tag
			loc.Severity = tag.Severity
		}
		d.Tag = &loc
		out = append(out, d)
	}
	return out
}

// previousMessage returns the closest preceding non-empty entry if it is still
// untagged.
func previousMessage(out []diag.Diagnostic) *diag.Diagnostic {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Text == "" {
			continue
		}
		if out[i].Tag != nil {
			return nil
		}
		return &out[i]
	}
	return nil
}
