package compiler

import (
	"strings"

	"cexd/internal/textutil"
)

// filterAsm applies the line-level output filters to raw assembly text.
// Only commentOnly, directives and trim are handled here; the rest are
// passed to the toolchain or ignored.
func filterAsm(text string, filters Filters) []AsmLine {
	lines := textutil.SplitLines(text)
	out := make([]AsmLine, 0, len(lines))
	for _, line := range lines {
		line = textutil.ExpandTabs(line)
		trimmed := strings.TrimSpace(line)
		if filters.On("commentOnly") && isCommentLine(trimmed) {
			continue
		}
		if filters.On("directives") && isDirective(trimmed) {
			continue
		}
		if filters.On("trim") {
			if trimmed == "" {
				continue
			}
			line = squashSpaces(line)
		}
		out = append(out, AsmLine{Text: line})
	}
	return out
}

func isCommentLine(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, ";") || strings.HasPrefix(s, "//")
}

// ".L2:" is a label, ".text" is a directive
func isDirective(s string) bool {
	return strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ":")
}

func squashSpaces(s string) string {
	indent := len(s) - len(strings.TrimLeft(s, " "))
	if indent > 2 {
		indent = 2
	}
	return strings.Repeat(" ", indent) + strings.Join(strings.Fields(s), " ")
}
