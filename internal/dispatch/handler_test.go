package dispatch_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cexd/internal/compiler"
	"cexd/internal/diag"
)

const jsonCompile = `{"source":"int square(int x){return x*x;}","options":{"userArguments":"-O2 -Wall","filters":{"intel":true}}}`

func decodeResult(t *testing.T, body string) compiler.Result {
	t.Helper()
	var res compiler.Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return res
}

func TestCompileJSON(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	gcc.compileFn = func(req *compiler.Request) (*compiler.Result, error) {
		return &compiler.Result{
			Asm:        []compiler.AsmLine{{Text: "square(int):"}},
			Stdout:     []diag.Diagnostic{},
			Stderr:     []diag.Diagnostic{},
			ExecResult: &compiler.ExecResult{DidExecute: true},
		}, nil
	}
	ts := newTestServer(t, gcc)

	rec := ts.do("POST", "/api/compiler/gcc13/compile", "application/json", "application/json", jsonCompile)
	expectStatus(t, rec, 200)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	res := decodeResult(t, rec.Body.String())
	if len(res.Asm) != 1 || res.Asm[0].Text != "square(int):" {
		t.Fatalf("asm = %+v", res.Asm)
	}

	req := gcc.lastReq
	if strings.Join(req.Options, " ") != "-O2 -Wall" || !req.Filters.On("intel") || !req.Filters.On("labels") {
		t.Fatalf("normalized request = %+v", req)
	}
	if got := testutil.ToFloat64(ts.metrics.Compilations.WithLabelValues("c++")); got != 1 {
		t.Fatalf("compilations = %v", got)
	}
	if got := testutil.ToFloat64(ts.metrics.Executions.WithLabelValues("c++")); got != 1 {
		t.Fatalf("executions = %v", got)
	}
	if got := gcc.args.Popular(nil, 0)["-Wall"].TimesUsed; got != 1 {
		t.Fatalf("-Wall recorded %d times", got)
	}
}

func TestCompileSkipPopArgs(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	ts := newTestServer(t, gcc)
	body := `{"source":"x","options":{"userArguments":"-O3","compilerOptions":{"skipPopArgs":true}}}`
	expectStatus(t, ts.do("POST", "/api/compiler/gcc13/compile", "application/json", "", body), 200)
	if len(gcc.args.Popular(nil, 0)) != 0 {
		t.Fatal("statistics recorded despite skipPopArgs")
	}
}

func TestCompilePlaintextByDefault(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	gcc.compileFn = func(*compiler.Request) (*compiler.Result, error) {
		return &compiler.Result{
			Code:   1,
			Asm:    []compiler.AsmLine{{Text: "<Compilation failed>"}},
			Stderr: diag.FromText([]string{"<source>:1:1: error: x"}),
		}, nil
	}
	ts := newTestServer(t, gcc)
	for _, accept := range []string{"", "*/*", "text/plain, application/json", "application/json;q=0.5, text/plain"} {
		rec := ts.do("POST", "/api/compiler/gcc13/compile", "text/plain", accept, "int x")
		expectStatus(t, rec, 200)
		want := "<Compilation failed>\n# Compiler exited with result code 1\nStandard error:\n<source>:1:1: error: x\n"
		if rec.Body.String() != want {
			t.Fatalf("accept %q: body %q", accept, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Fatalf("content type = %q", ct)
		}
	}
}

func TestCompilerLookup(t *testing.T) {
	cGCC := newFake("gcc", "c")
	cxxGCC := newFake("gcc", "c++")
	clang := newFake("clang", "c++")
	clang.info.Alias = []string{"cl"}
	ts := newTestServer(t, cGCC, cxxGCC, clang)

	tests := []struct {
		name, target, ctype, body string
		want                      *fakeCompiler
	}{
		{"route lang", "/api/c/compiler/gcc/compile", "application/json", `{"source":"x","options":{}}`, cGCC},
		{"body lang", "/api/compiler/gcc/compile", "application/json", `{"source":"x","lang":"c++","options":{}}`, cxxGCC},
		{"route lang beats body lang", "/api/c/compiler/gcc/compile", "application/json", `{"source":"x","lang":"c++","options":{}}`, cGCC},
		{"form names the compiler", "/api/compiler/ignored/compile", "application/x-www-form-urlencoded", "compiler=gcc&lang=c&source=x", cGCC},
		{"alias", "/api/c++/compiler/cl/compile", "text/plain", "x", clang},
		{"unknown lang scans", "/api/compiler/clang/compile", "text/plain", "x", clang},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range []*fakeCompiler{cGCC, cxxGCC, clang} {
				c.lastReq = nil
			}
			expectStatus(t, ts.do("POST", tt.target, tt.ctype, "", tt.body), 200)
			if tt.want.lastReq == nil {
				t.Fatalf("expected %s/%s to compile", tt.want.info.Lang, tt.want.info.ID)
			}
		})
	}
}

func TestCompileNotFound(t *testing.T) {
	ts := newTestServer(t, newFake("gcc13", "c++"))
	rec := ts.do("POST", "/api/compiler/nope/compile", "text/plain", "", "x")
	expectStatus(t, rec, 404)
	if rec.Body.Len() != 0 {
		t.Fatalf("404 body = %q", rec.Body.String())
	}
	if !strings.Contains(ts.logs.String(), "unable to find compiler") {
		t.Fatalf("missing lookup warning: %s", ts.logs.String())
	}
}

func TestCompileMalformed(t *testing.T) {
	ts := newTestServer(t, newFake("gcc13", "c++"))
	tests := []struct{ name, ctype, body string }{
		{"missing options", "application/json", `{"source":"x"}`},
		{"missing source", "application/json", `{"options":{}}`},
		{"invalid json", "application/json", `{`},
		{"empty body", "text/plain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("POST", "/api/compiler/gcc13/compile", tt.ctype, "", tt.body)
			expectStatus(t, rec, 400)
			var out struct {
				Error   bool   `json:"error"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || !out.Error || out.Message == "" {
				t.Fatalf("body = %s (%v)", rec.Body.String(), err)
			}
		})
	}
	if got := testutil.ToFloat64(ts.metrics.Compilations.WithLabelValues("c++")); got != 0 {
		t.Fatalf("malformed requests counted: %v", got)
	}
}

func TestCompileFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		panicValue any
		wantCode   int
		wantText   string
		wantLog    string
		wantReport bool
	}{
		{
			name:     "message",
			err:      compiler.MessageError("invalid filename \"../x\""),
			wantCode: -1,
			wantText: "invalid filename \"../x\"",
			wantLog:  "level=WARN",
		},
		{
			name:     "execution",
			err:      &compiler.ExecutionError{Code: 137, Stderr: "<source>:4:2: error: killed\n"},
			wantCode: 137,
			wantText: "<source>:4:2: error: killed",
			wantLog:  "level=ERROR",
		},
		{
			name:       "panic",
			panicValue: "index out of range",
			wantCode:   -1,
			wantText:   "Internal Compiler Explorer error: index out of range",
			wantLog:    "stack=",
			wantReport: true,
		},
		{
			name:     "other",
			err:      errors.New("queue: waiting for a slot: context canceled"),
			wantCode: -1,
			wantText: "Internal Compiler Explorer error: queue: waiting for a slot: context canceled",
			wantLog:  "level=ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gcc := newFake("gcc13", "c++")
			gcc.compileFn = func(*compiler.Request) (*compiler.Result, error) {
				if tt.panicValue != nil {
					panic(tt.panicValue)
				}
				return nil, tt.err
			}
			ts := newTestServer(t, gcc)
			rec := ts.do("POST", "/api/compiler/gcc13/compile", "application/json", "", jsonCompile)
			expectStatus(t, rec, 200)

			res := decodeResult(t, rec.Body.String())
			if res.Code != tt.wantCode || len(res.Stderr) == 0 || !strings.HasPrefix(res.Stderr[0].Text, tt.wantText) {
				t.Fatalf("result = %+v", res)
			}
			if res.Stdout == nil {
				t.Fatal("stdout must encode as a list")
			}
			if !strings.Contains(ts.logs.String(), tt.wantLog) {
				t.Fatalf("log %q lacks %q", ts.logs.String(), tt.wantLog)
			}
			if got := len(ts.reporter.reports) > 0; got != tt.wantReport {
				t.Fatalf("reported = %v, want %v", got, tt.wantReport)
			}
		})
	}
}

func TestExecutionErrorIsParsed(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	gcc.compileFn = func(*compiler.Request) (*compiler.Result, error) {
		return nil, &compiler.ExecutionError{Code: 1, Stderr: "<source>:2:3: warning: w\n"}
	}
	ts := newTestServer(t, gcc)
	res := decodeResult(t, ts.do("POST", "/api/compiler/gcc13/compile", "application/json", "", jsonCompile).Body.String())
	tag := res.Stderr[0].Tag
	if tag == nil || tag.Line != 2 || tag.Column != 3 || tag.Severity != diag.SevWarning {
		t.Fatalf("tag = %+v", tag)
	}
}

func TestCMake(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	gcc.cmakeFn = func(req *compiler.Request) (*compiler.Result, error) {
		if len(req.Files) != 1 {
			return nil, errors.New("expected one file")
		}
		return &compiler.Result{ExecResult: &compiler.ExecResult{DidExecute: true}}, nil
	}
	ts := newTestServer(t, gcc)

	ok := `{"source":"project(x)","options":{},"files":[{"filename":"main.cpp","contents":"int main(){}"}]}`
	expectStatus(t, ts.do("POST", "/api/compiler/gcc13/cmake", "application/json", "", ok), 200)
	if got := testutil.ToFloat64(ts.metrics.CMakeCompilations.WithLabelValues("c++")); got != 1 {
		t.Fatalf("cmake compilations = %v", got)
	}
	if got := testutil.ToFloat64(ts.metrics.CMakeExecutions.WithLabelValues("c++")); got != 1 {
		t.Fatalf("cmake executions = %v", got)
	}

	missing := ts.do("POST", "/api/compiler/gcc13/cmake", "application/json", "", `{"source":"project(x)","options":{}}`)
	expectStatus(t, missing, 400)
	if !strings.Contains(missing.Body.String(), `"error":true`) {
		t.Fatalf("body = %s", missing.Body.String())
	}

	failing := `{"source":"project(x)","options":{},"files":[]}`
	rec := ts.do("POST", "/api/compiler/gcc13/cmake", "application/json", "", failing)
	expectStatus(t, rec, 400)
	if !strings.Contains(rec.Body.String(), "expected one file") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestArguments(t *testing.T) {
	gcc := newFake("gcc13", "c++")
	gcc.args.Add("-O2", "Optimize even more")
	gcc.args.Add("-Wall", "Enable warnings")
	gcc.args.Record([]string{"-Wall", "-Wall", "-O2"})
	ts := newTestServer(t, gcc)

	var popular map[string]compiler.Argument
	rec := ts.do("POST", "/api/popularArguments/gcc13", "application/json", "", `{"usedOptions":"-Wall","presplit":false}`)
	expectStatus(t, rec, 200)
	if err := json.Unmarshal(rec.Body.Bytes(), &popular); err != nil {
		t.Fatal(err)
	}
	if _, ok := popular["-Wall"]; ok || popular["-O2"].TimesUsed != 1 {
		t.Fatalf("popular = %+v", popular)
	}

	var opt map[string]compiler.Argument
	rec = ts.do("GET", "/api/optimizationArguments/gcc13", "", "", "")
	expectStatus(t, rec, 200)
	if err := json.Unmarshal(rec.Body.Bytes(), &opt); err != nil {
		t.Fatal(err)
	}
	if _, ok := opt["-O2"]; !ok || len(opt) != 1 {
		t.Fatalf("optimization = %+v", opt)
	}

	expectStatus(t, ts.do("GET", "/api/popularArguments/nope", "", "", ""), 404)
	expectStatus(t, ts.do("POST", "/api/popularArguments/gcc13", "application/json", "", `{"usedOptions":["-O2"]}`), 400)
}

func TestSearch(t *testing.T) {
	revs := make([]compiler.Revision, 30)
	for i := range revs {
		revs[i] = compiler.Revision{Hash: strings.Repeat("a", i+1)}
	}
	repo := &fakeRepo{fakeCompiler: newFake("trunk", "c++"), revs: revs}
	ts := newTestServer(t, repo, newFake("gcc13", "c++"))

	type page struct {
		Results []compiler.Revision `json:"results"`
		Total   int                 `json:"total"`
		Limit   int                 `json:"limit"`
		Offset  int                 `json:"offset"`
	}
	tests := []struct {
		name     string
		query    string
		status   int
		limit    int
		offset   int
		nResults int
		badParam string
	}{
		{"defaults clamp to 20", "", 200, 20, 0, 20, ""},
		{"explicit page", "?offset=25&limit=10", 200, 10, 25, 5, ""},
		{"zero limit", "?limit=0", 200, 0, 0, 0, ""},
		{"huge limit", "?limit=1000", 200, 20, 0, 20, ""},
		{"negative limit", "?limit=-5", 400, 0, 0, 0, "limit"},
		{"negative offset", "?offset=-1", 400, 0, 0, 0, "offset"},
		{"garbage offset", "?offset=abc", 400, 0, 0, 0, "offset"},
		{"garbage limit", "?limit=1e3", 400, 0, 0, 0, "limit"},
		{"unsafe offset", "?offset=9007199254740992", 400, 0, 0, 0, "offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("GET", "/api/compiler/trunk/search"+tt.query, "", "", "")
			expectStatus(t, rec, tt.status)
			if tt.status != 200 {
				if !strings.Contains(rec.Body.String(), "Bad parameter: `"+tt.badParam+"`") {
					t.Fatalf("body = %s", rec.Body.String())
				}
				return
			}
			var p page
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatal(err)
			}
			if p.Limit != tt.limit || p.Offset != tt.offset || len(p.Results) != tt.nResults || p.Total != 30 {
				t.Fatalf("page = limit %d offset %d results %d total %d", p.Limit, p.Offset, len(p.Results), p.Total)
			}
		})
	}

	rec := ts.do("GET", "/api/compiler/gcc13/search", "", "", "")
	expectStatus(t, rec, 404)
	if !strings.Contains(rec.Body.String(), "Compiler repository not found!") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestServiceRoutes(t *testing.T) {
	ts := newTestServer(t, newFake("gcc13", "c++"), newFake("rustc", "rust"))

	rec := ts.do("GET", "/api/compilers", "", "", "")
	expectStatus(t, rec, 200)
	var infos []compiler.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil || len(infos) != 2 {
		t.Fatalf("compilers = %s (%v)", rec.Body.String(), err)
	}

	expectStatus(t, ts.do("GET", "/healthcheck", "", "", ""), 200)

	ts.do("POST", "/api/compiler/rustc/compile", "text/plain", "", "fn main(){}")
	rec = ts.do("GET", "/metrics", "", "", "")
	expectStatus(t, rec, 200)
	if !strings.Contains(rec.Body.String(), `ce_compilations_total{language="rust"} 1`) {
		t.Fatalf("metrics = %s", rec.Body.String())
	}
}
