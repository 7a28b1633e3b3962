package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cexd/internal/argsplit"
	"cexd/internal/diag"
	"cexd/internal/diagparse"
	"cexd/internal/fingerprint"
	"cexd/internal/observ"
	"cexd/internal/textutil"
)

const (
	probeTimeout   = 10 * time.Second
	compileTimeout = 60 * time.Second
	executeTimeout = 10 * time.Second
)

var sourceExtensions = map[string]string{
	"c":       ".c",
	"c++":     ".cpp",
	"cuda":    ".cu",
	"d":       ".d",
	"fortran": ".f90",
	"go":      ".go",
	"pascal":  ".pas",
	"rust":    ".rs",
	"swift":   ".swift",
	"zig":     ".zig",
}

// layout captures where a toolchain family runs and how it is told about
// the input file.
type layout struct {
	ext string
	// workDir is the cwd of the toolchain; "" inherits the service cwd.
	workDir func(buildDir string) string
	// inputArg is the input path as passed on the command line. The parser
	// redacts the same spelling.
	inputArg func(buildDir, inputPath string) string
}

func defaultLayout(lang string) layout {
	ext, ok := sourceExtensions[strings.ToLower(lang)]
	if !ok {
		ext = ".src"
	}
	return layout{
		ext:      ext,
		workDir:  func(string) string { return "" },
		inputArg: func(_, inputPath string) string { return inputPath },
	}
}

// Base is the generic "-S -o" style compiler.
type Base struct {
	mu      sync.RWMutex
	info    Info
	filters Filters

	deps   Deps
	log    *slog.Logger
	parse  diagparse.Parser
	args   *PossibleArguments
	layout layout
	state  atomic.Uint32
}

// NewBase builds a default-type compiler.
func NewBase(info Info, deps Deps) (*Base, error) {
	return newBase(info, deps, defaultLayout(info.Lang))
}

func newBase(info Info, deps Deps, l layout) (*Base, error) {
	parse, err := diagparse.ForDialect(info.Dialect)
	if err != nil {
		return nil, fmt.Errorf("compiler %s: %w", info.ID, err)
	}
	deps = deps.withDefaults()
	b := &Base{
		info:   info.Clone(),
		deps:   deps,
		log:    deps.Logger.With("compiler", info.ID, "lang", info.Lang),
		parse:  parse,
		args:   NewPossibleArguments(),
		layout: l,
	}
	b.filters = b.discoverFilters()
	for flag, desc := range defaultOptimizationFlags {
		b.args.Add(flag, desc)
	}
	return b, nil
}

// Info returns a copy of the compiler description.
func (b *Base) Info() Info {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info.Clone()
}

// ModificationTime is the executable mtime the instance was built for.
func (b *Base) ModificationTime() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info.ModTime
}

// DefaultFilters returns a copy of the filters requests start from.
func (b *Base) DefaultFilters() Filters {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filters.Clone()
}

func (b *Base) Remote() *Remote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.info.Remote == nil {
		return nil
	}
	r := *b.info.Remote
	return &r
}

func (b *Base) PossibleArguments() *PossibleArguments { return b.args }

func (b *Base) State() State { return State(b.state.Load()) }

// Activate marks the instance as published.
func (b *Base) Activate() { b.state.Store(uint32(StateActive)) }

func (b *Base) discoverFilters() Filters {
	return Filters{
		"binary":      false,
		"execute":     false,
		"demangle":    true,
		"intel":       b.info.SupportsIntel,
		"commentOnly": true,
		"directives":  true,
		"labels":      true,
		"libraryCode": true,
		"trim":        false,
		"debugCalls":  false,
	}
}

// Initialise probes the toolchain version unless it was configured, then
// recomputes the default filters.
func (b *Base) Initialise(ctx context.Context) error {
	b.mu.RLock()
	exe, version := b.info.Exe, b.info.Version
	b.mu.RUnlock()

	if version == "" {
		out, err := b.deps.Exec(ctx, Command{Name: exe, Args: []string{"--version"}, Timeout: probeTimeout})
		if err != nil {
			return fmt.Errorf("compiler %s: version probe: %w", b.info.ID, err)
		}
		version = firstLine(out.Stdout)
		if version == "" {
			version = firstLine(out.Stderr)
		}
		if version == "" {
			return fmt.Errorf("compiler %s: version probe: no output (exit code %d)", b.info.ID, out.Code)
		}
	}

	b.mu.Lock()
	b.info.Version = version
	b.filters = b.discoverFilters()
	b.mu.Unlock()
	b.state.Store(uint32(StateProbed))
	b.log.Debug("compiler probed", "version", version)
	return nil
}

func firstLine(s string) string {
	for _, l := range textutil.SplitLines(s) {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

// cacheKey is what identifies a compilation for the result cache.
type cacheKey struct {
	Compiler string   `json:"compiler"`
	Exe      string   `json:"exe"`
	Version  string   `json:"version"`
	Options  string   `json:"options"`
	Kind     string   `json:"kind"`
	Request  *Request `json:"request"`
}

func (b *Base) keyFor(kind string, req *Request) (fingerprint.Digest, error) {
	info := b.Info()
	r := *req
	r.BypassCache = false
	return fingerprint.Sum(cacheKey{
		Compiler: info.ID,
		Exe:      info.Exe,
		Version:  info.Version,
		Options:  info.Options,
		Kind:     kind,
		Request:  &r,
	}, b.deps.Salt)
}

type jobFunc func(ctx context.Context, req *Request, timer *observ.Timer) (*Result, error)

// cached runs job through the result cache and the queue.
func (b *Base) cached(ctx context.Context, kind string, req *Request, job jobFunc) (*Result, error) {
	if req == nil {
		return nil, MessageError("empty request")
	}
	key, keyErr := b.keyFor(kind, req)
	if keyErr != nil {
		b.log.Warn("cannot fingerprint request", "err", keyErr)
	}
	if keyErr == nil && b.deps.Cache != nil && !req.BypassCache {
		var hit Result
		ok, err := b.deps.Cache.Get(key, &hit)
		switch {
		case err != nil:
			b.log.Warn("result cache read failed", "err", err)
		case ok:
			hit.Cached = true
			return &hit, nil
		}
	}

	timer := observ.NewTimer()
	wait := timer.Begin("queue")
	var res *Result
	err := b.deps.Queue.Do(ctx, func(ctx context.Context) error {
		timer.End(wait, "")
		var jobErr error
		res, jobErr = job(ctx, req, timer)
		return jobErr
	})
	if err != nil {
		return nil, err
	}
	report := timer.Report()
	res.Timings = &report
	b.log.Debug(kind+" finished", "code", res.Code, "timings", report.Summary())

	if res.OkToCache && keyErr == nil && b.deps.Cache != nil {
		if err := b.deps.Cache.Put(key, res); err != nil {
			b.log.Warn("result cache write failed", "err", err)
		}
	}
	return res, nil
}

// Compile runs one compilation and, when asked to, executes the program.
func (b *Base) Compile(ctx context.Context, req *Request) (*Result, error) {
	return b.cached(ctx, "compile", req, b.runCompile)
}

func (b *Base) runCompile(ctx context.Context, req *Request, timer *observ.Timer) (*Result, error) {
	info := b.Info()
	filters := req.Filters
	if filters == nil {
		filters = b.DefaultFilters()
	}

	dir, err := b.deps.Workspace.NewBuildDir()
	if err != nil {
		return nil, err
	}
	defer b.deps.Workspace.Release(dir)
	inputPath := filepath.Join(dir, "example"+b.layout.ext)
	if err := writeSources(dir, inputPath, req.Source, req.Files); err != nil {
		return nil, err
	}

	execute := filters.On("execute")
	binary := filters.On("binary") || (execute && info.SupportsExecute)
	outputPath := filepath.Join(dir, "output.s")
	if binary {
		outputPath = filepath.Join(dir, "output")
	}
	input := b.layout.inputArg(dir, inputPath)
	args := b.compileArgs(info, outputPath, binary, filters, req, input)

	var out Output
	err = timer.Measure("compile", func() error {
		var runErr error
		out, runErr = b.deps.Exec(ctx, Command{
			Name:    info.Exe,
			Args:    args,
			Dir:     b.layout.workDir(dir),
			Timeout: compileTimeout,
		})
		return runErr
	})
	if err != nil {
		return nil, newExecutionError(info.ID, out, err)
	}

	res := &Result{
		Code:               out.Code,
		Stdout:             b.parseOutput(out.Stdout, dir, input),
		Stderr:             b.parseOutput(out.Stderr, dir, input),
		InputFilename:      filepath.Base(inputPath),
		CompilationOptions: args,
		OkToCache:          !out.TimedOut,
	}
	if out.TimedOut {
		res.Stderr = append(res.Stderr, diag.Plain("Compilation timed out"))
	}

	switch {
	case req.BackendFlag("skipAsm"):
	case out.Code != 0:
		res.Asm = []AsmLine{{Text: "<Compilation failed>"}}
	case binary:
		res.Asm = []AsmLine{{Text: "<binary output not shown>"}}
	default:
		err = timer.Measure("asm", func() error {
			data, readErr := os.ReadFile(outputPath)
			if readErr != nil {
				return readErr
			}
			res.Asm = filterAsm(string(data), filters)
			return nil
		})
		if err != nil {
			res.Asm = []AsmLine{{Text: "<No output file " + filepath.Base(outputPath) + ">"}}
		}
	}

	if execute {
		res.ExecResult = b.execute(ctx, info, res.Code, outputPath, dir, req.ExecutionParameters, timer)
	}
	return res, nil
}

func (b *Base) compileArgs(info Info, output string, binary bool, filters Filters, req *Request, input string) []string {
	args := []string{"-g", "-o", output}
	if !binary {
		args = append(args, "-S")
	}
	if filters.On("intel") && info.SupportsIntel && !binary {
		args = append(args, "-masm=intel")
	}
	args = append(args, argsplit.Split(info.Options)...)
	args = append(args, req.Options...)
	return append(args, input)
}

// parseOutput turns toolchain text into diagnostics, hiding the build dir.
func (b *Base) parseOutput(text, buildDir, input string) []diag.Diagnostic {
	return b.parse(text, input, diagparse.WithStripPrefix(buildDir+string(filepath.Separator)))
}

func (b *Base) execute(ctx context.Context, info Info, code int, binary, dir string, params ExecutionParameters, timer *observ.Timer) *ExecResult {
	if !info.SupportsExecute {
		return &ExecResult{Code: -1, Stdout: []diag.Diagnostic{}, Stderr: []diag.Diagnostic{diag.Plain("Compiler does not support execution")}}
	}
	if code != 0 {
		return &ExecResult{Code: -1, Stdout: []diag.Diagnostic{}, Stderr: []diag.Diagnostic{diag.Plain("Build failed")}}
	}
	var out Output
	err := timer.Measure("execute", func() error {
		var runErr error
		out, runErr = b.deps.Exec(ctx, Command{
			Name:    binary,
			Args:    params.Args,
			Dir:     dir,
			Stdin:   params.Stdin,
			Timeout: executeTimeout,
		})
		return runErr
	})
	if err != nil {
		return &ExecResult{Code: -1, Stdout: []diag.Diagnostic{}, Stderr: []diag.Diagnostic{diag.Plain(err.Error())}}
	}
	res := &ExecResult{
		Code:       out.Code,
		Stdout:     diag.FromText(textutil.SplitLines(out.Stdout)),
		Stderr:     diag.FromText(textutil.SplitLines(out.Stderr)),
		DidExecute: true,
	}
	if out.TimedOut {
		res.Stderr = append(res.Stderr, diag.Plain("Execution timed out"))
	}
	return res
}

// writeSources writes the main source and the extra files into dir.
func writeSources(dir, inputPath, source string, files []File) error {
	if err := os.WriteFile(inputPath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	for _, f := range files {
		if f.Filename == "" || !filepath.IsLocal(f.Filename) {
			return Messagef("invalid filename %q", f.Filename)
		}
		p := filepath.Join(dir, f.Filename)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("write %s: %w", f.Filename, err)
		}
		if err := os.WriteFile(p, []byte(f.Contents), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Filename, err)
		}
	}
	return nil
}

var cmakeLangVar = map[string]string{
	"c":       "CMAKE_C_COMPILER",
	"c++":     "CMAKE_CXX_COMPILER",
	"cuda":    "CMAKE_CUDA_COMPILER",
	"fortran": "CMAKE_Fortran_COMPILER",
}

// CMake configures and builds a multi-file project. The request source is
// the CMakeLists.txt; an executable target named "output" is run when the
// execute filter is on.
func (b *Base) CMake(ctx context.Context, req *Request) (*Result, error) {
	if req != nil && len(req.Files) == 0 {
		return nil, MessageError("cmake requires at least one file")
	}
	return b.cached(ctx, "cmake", req, b.runCMake)
}

func (b *Base) runCMake(ctx context.Context, req *Request, timer *observ.Timer) (*Result, error) {
	info := b.Info()
	cmake := info.CMake
	if cmake == "" {
		cmake = "cmake"
	}
	dir, err := b.deps.Workspace.NewBuildDir()
	if err != nil {
		return nil, err
	}
	defer b.deps.Workspace.Release(dir)
	listsPath := filepath.Join(dir, "CMakeLists.txt")
	if err := writeSources(dir, listsPath, req.Source, req.Files); err != nil {
		return nil, err
	}
	buildDir := filepath.Join(dir, "build")

	configure := []string{"-S", dir, "-B", buildDir}
	if v, ok := cmakeLangVar[strings.ToLower(info.Lang)]; ok && filepath.IsAbs(info.Exe) {
		configure = append(configure, "-D"+v+"="+info.Exe)
	}
	configure = append(configure, req.Options...)

	var stdout, stderr strings.Builder
	run := func(phase string, args []string) (Output, error) {
		var out Output
		err := timer.Measure(phase, func() error {
			var runErr error
			out, runErr = b.deps.Exec(ctx, Command{Name: cmake, Args: args, Dir: dir, Timeout: compileTimeout})
			return runErr
		})
		stdout.WriteString(out.Stdout)
		stderr.WriteString(out.Stderr)
		return out, err
	}

	out, err := run("configure", configure)
	if err == nil && out.Code == 0 {
		out, err = run("build", []string{"--build", buildDir})
	}
	if err != nil {
		return nil, fmt.Errorf("compiler %s: cmake: %w", info.ID, err)
	}

	res := &Result{
		Code:               out.Code,
		Stdout:             b.parse(stdout.String(), listsPath, diagparse.WithStripPrefix(dir+string(filepath.Separator))),
		Stderr:             b.parse(stderr.String(), listsPath, diagparse.WithStripPrefix(dir+string(filepath.Separator))),
		InputFilename:      filepath.Base(listsPath),
		CompilationOptions: configure,
		OkToCache:          !out.TimedOut,
	}
	filters := req.Filters
	if filters.On("execute") {
		res.ExecResult = b.execute(ctx, info, res.Code, filepath.Join(buildDir, "output"), buildDir, req.ExecutionParameters, timer)
	}
	return res, nil
}
