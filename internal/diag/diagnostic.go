package diag

// Tag locates a diagnostic in a source file.
type Tag struct {
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Severity Severity `json:"severity"`
	// Text is the message without the path/line/column prefix.
	Text string `json:"text"`
}

// Diagnostic is one line of compiler output. Lines that do not point at a
// source location carry no Tag.
type Diagnostic struct {
	Text string `json:"text"`
	Tag  *Tag   `json:"tag,omitempty"`
}

// Plain wraps a line that carries no location.
func Plain(text string) Diagnostic {
	return Diagnostic{Text: text}
}

// FromText wraps every line of a list into untagged diagnostics.
func FromText(lines []string) []Diagnostic {
	out := make([]Diagnostic, 0, len(lines))
	for _, l := range lines {
		out = append(out, Plain(l))
	}
	return out
}

// HasErrors reports whether any tagged diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for i := range diags {
		if diags[i].Tag != nil && diags[i].Tag.Severity >= SevError {
			return true
		}
	}
	return false
}
