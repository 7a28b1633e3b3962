package diagfmt

import (
	"encoding/json"
	"io"

	"cexd/internal/diag"
)

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Count       int               `json:"count"`
	HasErrors   bool              `json:"hasErrors"`
	Truncated   bool              `json:"truncated,omitempty"`
}

// JSON writes diags as one DiagnosticsOutput document.
func JSON(w io.Writer, diags []diag.Diagnostic, opts JSONOpts) error {
	out := DiagnosticsOutput{
		Diagnostics: diags,
		Count:       len(diags),
		HasErrors:   diag.HasErrors(diags),
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []diag.Diagnostic{}
	}
	if opts.Max > 0 && len(diags) > opts.Max {
		out.Diagnostics = diags[:opts.Max]
		out.Truncated = true
	}
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
