// Package diagfmt renders compilation results and diagnostics for humans
// and machines.
package diagfmt

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color bool
	Width int // максимальная ширина строки, 0 - не ограничено
	// HideUntagged drops lines that carry no location.
	HideUntagged bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Indent bool
	Max    int // обрезка вывода, 0 - без ограничения
}
