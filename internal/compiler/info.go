package compiler

import (
	"slices"
	"time"
)

// Remote marks a compiler served by another instance of the service.
type Remote struct {
	// Path is the route on the remote, e.g. "/api/compiler/gcc13/compile".
	Path string `json:"path"`
	// Target is the remote base URL.
	Target string `json:"target"`
}

// RepositorySource points a compiler at the source tree it was built from.
type RepositorySource struct {
	Path string `json:"path"`
}

// Info describes one configured compiler. It is treated as immutable once a
// Compiler has been built from it; refreshing the registry builds new values.
type Info struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Lang            string            `json:"lang"`
	Alias           []string          `json:"alias,omitempty"`
	Exe             string            `json:"exe"`
	Type            string            `json:"compilerType"`
	Options         string            `json:"options,omitempty"`
	Version         string            `json:"version,omitempty"`
	ModTime         time.Time         `json:"-"`
	Remote          *Remote           `json:"remote,omitempty"`
	Repository      *RepositorySource `json:"-"`
	InstructionSet  string            `json:"instructionSet,omitempty"`
	SupportsIntel   bool              `json:"supportsIntel"`
	SupportsExecute bool              `json:"supportsExecute"`

	// Dialect selects the diagnostic parser ("generic" or "arrow").
	Dialect string `json:"-"`

	// CMake is the cmake executable used for multi-file builds.
	CMake string `json:"-"`
}

// HasAlias reports whether name is one of the aliases.
func (i Info) HasAlias(name string) bool {
	return name != "" && slices.Contains(i.Alias, name)
}

// Matches reports whether name is the id or an alias.
func (i Info) Matches(name string) bool {
	return name != "" && (i.ID == name || i.HasAlias(name))
}

// Clone returns a deep copy.
func (i Info) Clone() Info {
	out := i
	out.Alias = slices.Clone(i.Alias)
	if i.Remote != nil {
		r := *i.Remote
		out.Remote = &r
	}
	if i.Repository != nil {
		r := *i.Repository
		out.Repository = &r
	}
	return out
}
