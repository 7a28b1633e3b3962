package compiler

import (
	"cexd/internal/diag"
	"cexd/internal/observ"
)

// AsmLine is one line of assembly.
type AsmLine struct {
	Text string `json:"text"`
}

// ExecResult is the outcome of running the produced program.
type ExecResult struct {
	Code       int               `json:"code"`
	Stdout     []diag.Diagnostic `json:"stdout"`
	Stderr     []diag.Diagnostic `json:"stderr"`
	DidExecute bool              `json:"didExecute"`
}

// Result is what a compilation returns to the caller.
type Result struct {
	Code               int               `json:"code"`
	Stdout             []diag.Diagnostic `json:"stdout"`
	Stderr             []diag.Diagnostic `json:"stderr"`
	Asm                []AsmLine         `json:"asm,omitempty"`
	ExecResult         *ExecResult       `json:"execResult,omitempty"`
	DidExecute         bool              `json:"didExecute"`
	InputFilename      string            `json:"inputFilename,omitempty"`
	CompilationOptions []string          `json:"compilationOptions,omitempty"`
	Cached             bool              `json:"cached,omitempty"`
	OkToCache          bool              `json:"okToCache"`
	Timings            *observ.Report    `json:"timings,omitempty"`
}

// Executed reports whether the program actually ran, at either level.
func (r *Result) Executed() bool {
	if r == nil {
		return false
	}
	return r.DidExecute || (r.ExecResult != nil && r.ExecResult.DidExecute)
}

// ErrorResult is the uniform payload for failures with no toolchain output.
func ErrorResult(message string) *Result {
	return &Result{
		Code:   -1,
		Stdout: []diag.Diagnostic{},
		Stderr: []diag.Diagnostic{diag.Plain(message)},
	}
}
