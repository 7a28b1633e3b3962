package diagparse

import (
	"fmt"
	"strings"

	"cexd/internal/diag"
)

// Parser is the signature shared by the dialect parsers.
type Parser func(text, inputFilename string, opts ...Option) []diag.Diagnostic

// Dialect names accepted by ForDialect.
const (
	DialectGeneric = "generic"
	DialectArrow   = "arrow"
)

// ForDialect returns the parser for a dialect name; empty selects generic.
func ForDialect(name string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectGeneric:
		return ParseGeneric, nil
	case DialectArrow:
		return ParseArrow, nil
	default:
		return nil, fmt.Errorf("unknown output dialect %q (expected: generic|arrow)", name)
	}
}
