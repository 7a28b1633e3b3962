package diagparse

import (
	"regexp"
	"strconv"

	"fortio.org/safecast"

	"cexd/internal/diag"
	"cexd/internal/textutil"
)

// pathPattern matches a file reference: anything up to a location delimiter.
const pathPattern = `([^\s:()]+)`

// Tried in order; the first match wins.
var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*` + pathPattern + `:(\d+):(\d+):?\s*(.*)$`),
	regexp.MustCompile(`^\s*` + pathPattern + `:(\d+)():?\s*(.*)$`),
	regexp.MustCompile(`^\s*` + pathPattern + `\((\d+),\s*(\d+)\)\s*:?\s*(.*)$`),
	regexp.MustCompile(`^\s*` + pathPattern + `\((\d+)\)()\s*:?\s*(.*)$`),
}

// ParseGeneric parses "file:line[:col]: message" and "file(line[,col]) message"
// output. inputFilename is the name the source was written under (may be
// empty, relative or absolute).
func ParseGeneric(text, inputFilename string, opts ...Option) []diag.Diagnostic {
	p := newPreparer(inputFilename, opts)
	lines := textutil.SplitLines(text)
	out := make([]diag.Diagnostic, 0, len(lines))
	for _, raw := range lines {
		line := p.line(raw)
		d := diag.Diagnostic{Text: line}
		for _, re := range genericPatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			msg := m[4]
			d.Tag = &diag.Tag{
				File:     p.tagFile(m[1]),
				Line:     atoi(m[2]),
				Column:   atoi(m[3]),
				Severity: diag.SeverityOf(msg),
				Text:     msg,
			}
			break
		}
		out = append(out, d)
	}
	return out
}

// atoi parses a line or column number; absurd values collapse to 0.
func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	v, err := safecast.Conv[int](n)
	if err != nil {
		return 0
	}
	return v
}
