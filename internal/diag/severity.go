package diag

import "strings"

// Severity defines the importance of a diagnostic. The numeric values are part
// of the wire format consumed by the editor front-end.
type Severity uint8

const (
	// SevNote is for notes, remarks and informational lines.
	SevNote Severity = iota + 1
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevNote:
		return "NOTE"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// SeverityOf classifies a compiler message by its leading word.
// Anything that does not announce itself as a warning or a note is an error.
func SeverityOf(message string) Severity {
	m := strings.ToLower(strings.TrimSpace(message))
	switch {
	case strings.HasPrefix(m, "warning"):
		return SevWarning
	case strings.HasPrefix(m, "note"), strings.HasPrefix(m, "info"):
		return SevNote
	}
	return SevError
}
