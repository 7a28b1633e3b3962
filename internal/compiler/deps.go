package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cexd/internal/fingerprint"
)

// Runner bounds concurrent jobs; *queue.Queue implements it.
type Runner interface {
	Do(ctx context.Context, job func(context.Context) error) error
}

// BuildDirs hands out build directories; *workspace.Tracker implements it.
// A directory stays checked out until Release.
type BuildDirs interface {
	NewBuildDir() (string, error)
	Release(dir string)
}

// ResultStore caches results; *resultcache.Cache implements it.
type ResultStore interface {
	Get(key fingerprint.Digest, out any) (bool, error)
	Put(key fingerprint.Digest, v any) error
}

// Deps are the process-scoped collaborators shared by compiler instances.
type Deps struct {
	Queue     Runner
	Workspace BuildDirs
	Cache     ResultStore
	Logger    *slog.Logger
	// Salt mixes the service version into cache keys.
	Salt string
	Exec ExecFunc
}

type directRunner struct{}

func (directRunner) Do(ctx context.Context, job func(context.Context) error) error { return job(ctx) }

type tempDirs struct{}

func (tempDirs) NewBuildDir() (string, error) { return os.MkdirTemp("", "cexd-build-*") }

func (tempDirs) Release(string) {}

func (d Deps) withDefaults() Deps {
	if d.Queue == nil {
		d.Queue = directRunner{}
	}
	if d.Workspace == nil {
		d.Workspace = tempDirs{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Exec == nil {
		d.Exec = RunCommand
	}
	return d
}

// Factory builds a compiler of one toolchain family.
type Factory func(info Info, deps Deps) (Compiler, error)

// Type tags understood by DefaultFactories.
const (
	TypeDefault    = "default"
	TypeFortran    = "fortran"
	TypeRepository = "repository"
)

// DefaultFactories returns a fresh factory table keyed by type tag.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		TypeDefault:    func(info Info, deps Deps) (Compiler, error) { return NewBase(info, deps) },
		TypeFortran:    func(info Info, deps Deps) (Compiler, error) { return NewFortran(info, deps) },
		TypeRepository: func(info Info, deps Deps) (Compiler, error) { return NewRepository(info, deps) },
	}
}

// TypeOf returns the type tag of info, defaulting to TypeDefault.
func TypeOf(info Info) string {
	t := strings.TrimSpace(info.Type)
	if t == "" {
		return TypeDefault
	}
	return t
}

// ErrUnknownType is returned for an unregistered type tag.
type ErrUnknownType struct {
	Type string
	ID   string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("compiler %s: unknown compiler type %q", e.ID, e.Type)
}
