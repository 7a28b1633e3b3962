// Package compiler defines the compiler capability and its toolchain
// variants.
package compiler

import (
	"context"
	"time"
)

// State is the lifecycle position of a compiler instance.
type State uint32

const (
	StateUninitialized State = iota
	// StateProbed: version and default filters are known.
	StateProbed
	// StateActive: published in a registry snapshot.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProbed:
		return "probed"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Compiler is the capability every toolchain variant provides.
type Compiler interface {
	Info() Info
	ModificationTime() time.Time
	DefaultFilters() Filters
	// Remote is non-nil for compilers served by another instance.
	Remote() *Remote
	Initialise(ctx context.Context) error
	Compile(ctx context.Context, req *Request) (*Result, error)
	CMake(ctx context.Context, req *Request) (*Result, error)
	PossibleArguments() *PossibleArguments
	State() State
	Activate()
}

// Revision is one commit of a repository-backed compiler.
type Revision struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// Revisions is one page of a revision search.
type Revisions struct {
	Items []Revision
	Total int
}

// RevisionQuerier is implemented by compilers backed by a repository.
type RevisionQuerier interface {
	QueryRevisions(ctx context.Context, query string, offset, limit int) (Revisions, error)
}
