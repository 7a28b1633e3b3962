package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"cexd/internal/compiler"
	"cexd/internal/workspace"
)

// fakeToolchain stands in for the subprocesses a compiler starts.
type fakeToolchain struct {
	mu    sync.Mutex
	calls []compiler.Command

	version string
	// asm is written to the -o path of a compile. "%INPUT%" in stderr is
	// replaced with the input argument.
	asm    string
	stderr string
	code   int
	// compileErr makes the compile step fail to run after printing stderr.
	compileErr error

	runStdout string
	runCode   int
	gitLog    string
}

func (f *fakeToolchain) exec(_ context.Context, cmd compiler.Command) (compiler.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	switch {
	case slices.Equal(cmd.Args, []string{"--version"}):
		return compiler.Output{Stdout: f.version}, nil
	case cmd.Name == "git":
		return compiler.Output{Stdout: f.gitLog}, nil
	case filepath.Base(cmd.Name) == "output":
		return compiler.Output{Code: f.runCode, Stdout: f.runStdout}, nil
	case filepath.Base(cmd.Name) == "cmake":
		if len(cmd.Args) > 0 && cmd.Args[0] == "--build" {
			return compiler.Output{Stdout: "[100%] Built target output\n"}, nil
		}
		return compiler.Output{Stdout: "-- Configuring done\n"}, nil
	}

	input := cmd.Args[len(cmd.Args)-1]
	if i := slices.Index(cmd.Args, "-o"); i >= 0 && i+1 < len(cmd.Args) {
		out := cmd.Args[i+1]
		if !filepath.IsAbs(out) {
			out = filepath.Join(cmd.Dir, out)
		}
		if err := os.WriteFile(out, []byte(f.asm), 0o644); err != nil {
			return compiler.Output{}, err
		}
	}
	out := compiler.Output{Code: f.code, Stderr: strings.ReplaceAll(f.stderr, "%INPUT%", input)}
	return out, f.compileErr
}

func (f *fakeToolchain) commands() []compiler.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func testDeps(t *testing.T, tc *fakeToolchain) compiler.Deps {
	t.Helper()
	return compiler.Deps{
		Workspace: workspace.NewTracker(t.TempDir()),
		Exec:      tc.exec,
		Salt:      "test",
	}
}
