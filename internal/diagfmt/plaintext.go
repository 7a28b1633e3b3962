package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"cexd/internal/compiler"
	"cexd/internal/diag"
)

// RenderError is a failure recovered while writing a plaintext response.
type RenderError struct {
	Value any
}

func (e *RenderError) Error() string { return fmt.Sprint(e.Value) }

func textify(lines []diag.Diagnostic) string {
	parts := make([]string, len(lines))
	for i := range lines {
		parts[i] = lines[i].Text
	}
	return strings.Join(parts, "\n")
}

func asmText(lines []compiler.AsmLine) string {
	parts := make([]string, len(lines))
	for i := range lines {
		parts[i] = lines[i].Text
	}
	return strings.Join(parts, "\n")
}

// Plaintext writes res the way curl users see it. A panic while writing is
// recovered; the response then carries "Error handling request: ..." and the
// returned *RenderError carries the panic value. The output always ends
// with a newline.
func Plaintext(w io.Writer, res *compiler.Result, banner string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Value: r}
			fmt.Fprintf(w, "Error handling request: %v", r)
		}
		io.WriteString(w, "\n")
	}()

	if banner != "" {
		io.WriteString(w, "# "+banner+"\n")
	}
	io.WriteString(w, asmText(res.Asm))
	if res.Code != 0 {
		fmt.Fprintf(w, "\n# Compiler exited with result code %d", res.Code)
	}
	if len(res.Stdout) > 0 {
		io.WriteString(w, "\nStandard out:\n"+textify(res.Stdout))
	}
	if len(res.Stderr) > 0 {
		io.WriteString(w, "\nStandard error:\n"+textify(res.Stderr))
	}
	if ex := res.ExecResult; ex != nil {
		fmt.Fprintf(w, "\n\n# Execution result with exit code %d\n", ex.Code)
		if len(ex.Stdout) > 0 {
			io.WriteString(w, "# Standard out:\n"+textify(ex.Stdout))
		}
		if len(ex.Stderr) > 0 {
			io.WriteString(w, "\n# Standard error:\n"+textify(ex.Stderr))
		}
	}
	return nil
}
