package compiler

import (
	"sort"
	"strings"
	"sync"
)

// Argument is one flag hint as served to the editor.
type Argument struct {
	Description string `json:"description"`
	TimesUsed   int    `json:"timesused"`
}

// PossibleArguments keeps the flags a compiler knows about and how often
// users passed them. Statistics live in memory only.
type PossibleArguments struct {
	mu    sync.RWMutex
	known map[string]string
	used  map[string]int
}

// DefaultMaxPopular is the size of a popular-arguments answer.
const DefaultMaxPopular = 10

// NewPossibleArguments creates an empty set.
func NewPossibleArguments() *PossibleArguments {
	return &PossibleArguments{known: make(map[string]string), used: make(map[string]int)}
}

// Add registers a known flag.
func (p *PossibleArguments) Add(flag, description string) {
	if flag == "" {
		return
	}
	p.mu.Lock()
	p.known[flag] = description
	p.mu.Unlock()
}

// Record counts the flags of one compilation. Tokens that are not flags
// (values, file names) are ignored.
func (p *PossibleArguments) Record(options []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range options {
		if len(opt) < 2 || opt[0] != '-' {
			continue
		}
		p.used[opt]++
	}
}

// Popular returns the most used flags not already in exclude, at most limit
// of them (limit <= 0 selects DefaultMaxPopular).
func (p *PossibleArguments) Popular(exclude []string, limit int) map[string]Argument {
	if limit <= 0 {
		limit = DefaultMaxPopular
	}
	return p.pick(exclude, limit, nil)
}

// Optimization returns the flags that control optimization, minus exclude.
func (p *PossibleArguments) Optimization(exclude []string) map[string]Argument {
	return p.pick(exclude, 0, isOptimizationFlag)
}

func isOptimizationFlag(flag, description string) bool {
	return strings.HasPrefix(flag, "-O") || strings.Contains(strings.ToLower(description), "optimiz")
}

func (p *PossibleArguments) pick(exclude []string, limit int, keep func(flag, description string) bool) map[string]Argument {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[flagKey(e)] = true
	}

	p.mu.RLock()
	type entry struct {
		flag string
		arg  Argument
	}
	entries := make([]entry, 0, len(p.known)+len(p.used))
	seen := make(map[string]bool, len(p.known)+len(p.used))
	collect := func(flag string) {
		if seen[flag] || skip[flagKey(flag)] {
			return
		}
		seen[flag] = true
		desc := p.known[flag]
		if keep != nil && !keep(flag, desc) {
			return
		}
		entries = append(entries, entry{flag, Argument{Description: desc, TimesUsed: p.used[flag]}})
	}
	for flag := range p.known {
		collect(flag)
	}
	for flag := range p.used {
		collect(flag)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].arg.TimesUsed != entries[j].arg.TimesUsed {
			return entries[i].arg.TimesUsed > entries[j].arg.TimesUsed
		}
		return entries[i].flag < entries[j].flag
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make(map[string]Argument, len(entries))
	for _, e := range entries {
		out[e.flag] = e.arg
	}
	return out
}

// "-std=c++20" и "-std=" считаются одним флагом
func flagKey(flag string) string {
	if i := strings.IndexByte(flag, '='); i >= 0 {
		return flag[:i+1]
	}
	return flag
}

var defaultOptimizationFlags = map[string]string{
	"-O0":    "Disable optimization",
	"-O1":    "Optimize",
	"-O2":    "Optimize even more",
	"-O3":    "Optimize yet more",
	"-Os":    "Optimize for size",
	"-Og":    "Optimize debugging experience",
	"-Ofast": "Optimize aggressively, disregarding strict standards compliance",
}
