package dispatch_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cexd/internal/compiler"
	"cexd/internal/dispatch"
	"cexd/internal/errreport"
	"cexd/internal/metrics"
	"cexd/internal/registry"
)

type fakeCompiler struct {
	info      compiler.Info
	args      *compiler.PossibleArguments
	compileFn func(*compiler.Request) (*compiler.Result, error)
	cmakeFn   func(*compiler.Request) (*compiler.Result, error)
	lastReq   *compiler.Request
}

func newFake(id, lang string) *fakeCompiler {
	return &fakeCompiler{
		info: compiler.Info{ID: id, Name: id, Lang: lang, Exe: "/usr/bin/" + id, Version: "1.0"},
		args: compiler.NewPossibleArguments(),
		compileFn: func(*compiler.Request) (*compiler.Result, error) {
			return &compiler.Result{Asm: []compiler.AsmLine{{Text: "ret"}}, Stdout: nil, Stderr: nil}, nil
		},
	}
}

func (f *fakeCompiler) Info() compiler.Info          { return f.info.Clone() }
func (f *fakeCompiler) ModificationTime() time.Time  { return f.info.ModTime }
func (f *fakeCompiler) Remote() *compiler.Remote     { return f.info.Remote }
func (f *fakeCompiler) Initialise(context.Context) error { return nil }
func (f *fakeCompiler) DefaultFilters() compiler.Filters {
	return compiler.Filters{"labels": true, "intel": false, "execute": false}
}
func (f *fakeCompiler) Compile(_ context.Context, req *compiler.Request) (*compiler.Result, error) {
	f.lastReq = req
	return f.compileFn(req)
}
func (f *fakeCompiler) CMake(_ context.Context, req *compiler.Request) (*compiler.Result, error) {
	f.lastReq = req
	if f.cmakeFn == nil {
		return &compiler.Result{Code: 0}, nil
	}
	return f.cmakeFn(req)
}
func (f *fakeCompiler) PossibleArguments() *compiler.PossibleArguments { return f.args }
func (f *fakeCompiler) State() compiler.State                         { return compiler.StateActive }
func (f *fakeCompiler) Activate()                                     {}

type fakeRepo struct {
	*fakeCompiler
	revs []compiler.Revision
}

func (r *fakeRepo) QueryRevisions(_ context.Context, _ string, offset, limit int) (compiler.Revisions, error) {
	start := min(offset, len(r.revs))
	end := min(start+limit, len(r.revs))
	return compiler.Revisions{Items: r.revs[start:end], Total: len(r.revs)}, nil
}

type capturedReport struct {
	err  error
	tags map[string]string
}

type recordingReporter struct {
	reports []capturedReport
}

func (r *recordingReporter) Capture(err error, tags map[string]string) {
	r.reports = append(r.reports, capturedReport{err, tags})
}
func (r *recordingReporter) Flush(time.Duration) bool { return true }

var _ errreport.Reporter = (*recordingReporter)(nil)

type testServer struct {
	handler  *dispatch.Handler
	metrics  *metrics.Metrics
	reporter *recordingReporter
	logs     *strings.Builder
}

// newTestServer publishes comps through a real registry.
func newTestServer(t *testing.T, comps ...compiler.Compiler) *testServer {
	t.Helper()
	byID := make(map[string]compiler.Compiler, len(comps))
	infos := make([]compiler.Info, 0, len(comps))
	for _, c := range comps {
		info := c.Info()
		byID[info.Lang+"/"+info.ID] = c
		infos = append(infos, info)
	}
	factory := func(info compiler.Info, _ compiler.Deps) (compiler.Compiler, error) {
		return byID[info.Lang+"/"+info.ID], nil
	}
	reg := registry.New(registry.Options{
		Factories: map[string]compiler.Factory{compiler.TypeDefault: factory},
	})
	if _, err := reg.SetCompilers(context.Background(), infos); err != nil {
		t.Fatal(err)
	}

	logs := &strings.Builder{}
	ts := &testServer{
		metrics:  metrics.New(false),
		reporter: &recordingReporter{},
		logs:     logs,
	}
	ts.handler = dispatch.New(dispatch.Options{
		Compilers:  reg,
		Metrics:    ts.metrics,
		Reporter:   ts.reporter,
		Logger:     slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		TextBanner: "",
	})
	return ts
}

func (ts *testServer) do(method, target, contentType, accept, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, r)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

var _ http.Handler = (*dispatch.Handler)(nil)
