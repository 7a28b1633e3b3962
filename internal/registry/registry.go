// Package registry holds the live set of compiler instances.
//
// The set is an immutable snapshot behind an atomic pointer. SetCompilers
// builds a complete new snapshot and swaps it in, so readers never see a
// partially populated map.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"cexd/internal/compiler"
)

type snapshot struct {
	byLang map[string]map[string]compiler.Compiler
	// order is registration order; the cross-language fallback scans it.
	order []compiler.Compiler
}

var emptySnapshot = &snapshot{byLang: map[string]map[string]compiler.Compiler{}}

// Options configure a Registry. Zero values select the real implementations.
type Options struct {
	Factories map[string]compiler.Factory
	Deps      compiler.Deps
	Logger    *slog.Logger
	// LookPath resolves bare executable names.
	LookPath func(file string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
	// Jobs bounds concurrent instance creation.
	Jobs int
}

// Registry maps (lang, id) to compiler instances.
type Registry struct {
	factories map[string]compiler.Factory
	deps      compiler.Deps
	log       *slog.Logger
	lookPath  func(string) (string, error)
	stat      func(string) (os.FileInfo, error)
	jobs      int

	current atomic.Pointer[snapshot]
}

// New creates an empty registry.
func New(opts Options) *Registry {
	r := &Registry{
		factories: opts.Factories,
		deps:      opts.Deps,
		log:       opts.Logger,
		lookPath:  opts.LookPath,
		stat:      opts.Stat,
		jobs:      opts.Jobs,
	}
	if r.factories == nil {
		r.factories = compiler.DefaultFactories()
	}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	if r.lookPath == nil {
		r.lookPath = exec.LookPath
	}
	if r.stat == nil {
		r.stat = os.Stat
	}
	if r.jobs <= 0 {
		r.jobs = runtime.GOMAXPROCS(0)
	}
	r.current.Store(emptySnapshot)
	return r
}

// Resolve turns a bare executable name into an absolute path using PATH.
func (r *Registry) Resolve(exe string) (string, error) {
	if exe == "" {
		return "", errors.New("empty executable name")
	}
	if filepath.IsAbs(exe) {
		return exe, nil
	}
	p, err := r.lookPath(exe)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", exe, err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", exe, err)
	}
	return abs, nil
}

func (r *Registry) cachedInstance(lang, id string) compiler.Compiler {
	if m := r.current.Load().byLang[lang]; m != nil {
		return m[id]
	}
	return nil
}

// Create builds (or reuses) the instance for info. It returns (nil, nil)
// when the compiler should be skipped; an error means the configuration
// itself is broken.
func (r *Registry) Create(ctx context.Context, info compiler.Info) (compiler.Compiler, error) {
	typ := compiler.TypeOf(info)
	factory, ok := r.factories[typ]
	if !ok {
		return nil, &compiler.ErrUnknownType{Type: typ, ID: info.ID}
	}
	log := r.log.With("compiler", info.ID, "lang", info.Lang)

	if info.Remote != nil || !filepath.IsAbs(info.Exe) {
		return factory(info, r.deps)
	}

	// предварительно обнаруженные компиляторы приходят с версией и mtime
	if info.Version == "" {
		st, err := r.stat(info.Exe)
		if err != nil {
			log.Warn("compiler executable unavailable, dropping", "exe", info.Exe, "err", err)
			return nil, nil
		}
		info.ModTime = st.ModTime()
	}

	if prev := r.cachedInstance(info.Lang, info.ID); prev != nil && prev.ModificationTime().Equal(info.ModTime) {
		return prev, nil
	}

	c, err := factory(info, r.deps)
	if err != nil {
		return nil, err
	}
	if err := c.Initialise(ctx); err != nil {
		log.Warn("compiler failed to initialise, dropping", "err", err)
		return nil, nil
	}
	return c, nil
}

// SetCompilers replaces the registry contents with instances for infos and
// returns the public info of every instance that was kept, in input order.
// On error the live snapshot is left untouched.
func (r *Registry) SetCompilers(ctx context.Context, infos []compiler.Info) ([]compiler.Info, error) {
	built := make([]compiler.Compiler, len(infos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(r.jobs, len(infos))))
	for i := range infos {
		info := infos[i].Clone()
		if info.Remote == nil && info.Exe != "" && !filepath.IsAbs(info.Exe) {
			if abs, err := r.Resolve(info.Exe); err != nil {
				r.log.Warn("compiler executable not found on PATH", "compiler", info.ID, "exe", info.Exe, "err", err)
			} else {
				info.Exe = abs
			}
		}
		g.Go(func() error {
			c, err := r.Create(gctx, info)
			if err != nil {
				return err
			}
			built[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := &snapshot{byLang: make(map[string]map[string]compiler.Compiler)}
	out := make([]compiler.Info, 0, len(built))
	for _, c := range built {
		if c == nil {
			continue
		}
		info := c.Info()
		m := next.byLang[info.Lang]
		if m == nil {
			m = make(map[string]compiler.Compiler)
			next.byLang[info.Lang] = m
		}
		if _, dup := m[info.ID]; dup {
			r.log.Warn("duplicate compiler id, keeping the first", "compiler", info.ID, "lang", info.Lang)
			continue
		}
		m[info.ID] = c
		next.order = append(next.order, c)
		out = append(out, info)
	}
	for _, c := range next.order {
		c.Activate()
	}
	r.current.Store(next)
	r.log.Info("compiler set updated", "compilers", len(next.order), "languages", len(next.byLang))
	return out, nil
}

// Find looks up a compiler: exact id in lang, then an alias in lang. Only
// when lang is empty or unknown does it fall back to scanning every
// compiler. An empty id finds nothing.
func (r *Registry) Find(lang, id string) compiler.Compiler {
	if id == "" {
		return nil
	}
	s := r.current.Load()
	if m, ok := s.byLang[lang]; ok {
		if c := m[id]; c != nil {
			return c
		}
		for _, c := range s.order {
			if info := c.Info(); info.Lang == lang && info.HasAlias(id) {
				return c
			}
		}
		return nil
	}
	for _, c := range s.order {
		if c.Info().Matches(id) {
			return c
		}
	}
	return nil
}

// List returns the public info of every active compiler in registration
// order.
func (r *Registry) List() []compiler.Info {
	s := r.current.Load()
	out := make([]compiler.Info, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, c.Info())
	}
	return out
}

// Len is the number of active compilers.
func (r *Registry) Len() int { return len(r.current.Load().order) }
