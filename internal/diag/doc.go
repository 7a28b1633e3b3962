// Package diag defines the diagnostic model returned to clients.
//
// A Diagnostic is a single line of toolchain output. The outer Text is the
// line as shown to the user with every reference to the submitted source file
// replaced by the "<source>" placeholder. When the line could be attributed to
// a location, Tag carries the file basename, 1-based line, column (0 when the
// toolchain did not report one), severity and the bare message.
//
// Package diag performs no parsing; the dialect parsers live in
// internal/diagparse and rendering lives in internal/diagfmt.
package diag
