package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders diagnostics one per line in a stable form suitable for
// golden files and the CLI short output:
//
//	<file>:<line>:<col>: <SEV>: <message>   (tagged)
//	| <text>                                (untagged)
func FormatShort(diags []Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range diags {
		if d.Tag == nil {
			b.WriteString("| ")
			b.WriteString(d.Text)
			b.WriteByte('\n')
			continue
		}
		file := d.Tag.File
		if file == "" {
			file = "<source>"
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", file, d.Tag.Line, d.Tag.Column, d.Tag.Severity, d.Tag.Text)
	}
	return b.String()
}
