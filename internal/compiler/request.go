package compiler

import "maps"

// Filters are named boolean output toggles ("binary", "execute", "labels", ...).
type Filters map[string]bool

// Clone copies the filter set; nil stays nil.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// On reports whether a filter is set.
func (f Filters) On(name string) bool { return f[name] }

// ExecutionParameters control running the produced program.
type ExecutionParameters struct {
	Args  []string `json:"args"`
	Stdin string   `json:"stdin"`
}

// Tool is an extra tool run over the compiler output.
type Tool struct {
	ID   string   `json:"id"`
	Args []string `json:"args"`
}

// Library is a library selection.
type Library struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// File is an additional source file written next to the main source.
type File struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// Request is a normalized compile request. Options and every Args field are
// already tokenized.
type Request struct {
	Source              string              `json:"source"`
	Options             []string            `json:"options"`
	BackendOptions      map[string]any      `json:"backendOptions"`
	Filters             Filters             `json:"filters"`
	BypassCache         bool                `json:"bypassCache"`
	ExecutionParameters ExecutionParameters `json:"executionParameters"`
	Tools               []Tool              `json:"tools"`
	Libraries           []Library           `json:"libraries"`
	Files               []File              `json:"files,omitempty"`
}

// BackendFlag reads a boolean backend option.
func (r *Request) BackendFlag(name string) bool {
	if r == nil || r.BackendOptions == nil {
		return false
	}
	v, _ := r.BackendOptions[name].(bool)
	return v
}
