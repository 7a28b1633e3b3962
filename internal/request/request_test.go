package request_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"cexd/internal/compiler"
	"cexd/internal/request"
)

type defaults compiler.Filters

func (d defaults) DefaultFilters() compiler.Filters { return compiler.Filters(d).Clone() }

var target = defaults{"labels": false, "intel": true, "demangle": true}

func decode(t *testing.T, contentType, path, body string) request.Body {
	t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	b, err := request.Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return b
}

func TestNormalizeJSON(t *testing.T) {
	body := `{
		"source": "int x;",
		"lang": "c++",
		"bypassCache": true,
		"options": {
			"userArguments": "-O2 -g",
			"compilerOptions": {"skipAsm": true},
			"filters": {"labels": true, "intel": false},
			"executeParameters": {"args": "a 'b c'", "stdin": "in"},
			"tools": [{"id": "t", "args": "-x y"}, {"id": "u", "args": ["z w"]}]
		}
	}`
	b := decode(t, "application/json", "/api/compiler/gcc/compile", body)
	if _, ok := b.(*request.JSONBody); !ok || b.Lang() != "c++" {
		t.Fatalf("decoded %T lang %q", b, b.Lang())
	}
	req, err := request.Normalize(b, target)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if req.Source != "int x;" || !req.BypassCache || !req.BackendFlag("skipAsm") {
		t.Fatalf("unexpected request %+v", req)
	}
	if !reflect.DeepEqual(req.Options, []string{"-O2", "-g"}) {
		t.Fatalf("options = %q", req.Options)
	}
	want := compiler.Filters{"labels": true, "intel": false, "demangle": true}
	if !reflect.DeepEqual(req.Filters, want) {
		t.Fatalf("filters = %v, want %v", req.Filters, want)
	}
	if !reflect.DeepEqual(req.ExecutionParameters.Args, []string{"a", "b c"}) || req.ExecutionParameters.Stdin != "in" {
		t.Fatalf("execution parameters = %+v", req.ExecutionParameters)
	}
	if len(req.Tools) != 2 || !reflect.DeepEqual(req.Tools[0].Args, []string{"-x", "y"}) || !reflect.DeepEqual(req.Tools[1].Args, []string{"z w"}) {
		t.Fatalf("tools = %+v", req.Tools)
	}
	if req.Libraries == nil || len(req.Libraries) != 0 {
		t.Fatalf("libraries must default to empty, got %#v", req.Libraries)
	}
}

func TestNormalizeJSONDefaults(t *testing.T) {
	b := decode(t, "application/json; charset=utf-8", "/", `{"source": "", "options": {}}`)
	req, err := request.Normalize(b, target)
	if err != nil {
		t.Fatal(err)
	}
	if req.Options == nil || req.ExecutionParameters.Args == nil || req.Tools == nil || req.ExecutionParameters.Stdin != "" {
		t.Fatalf("defaults not filled: %+v", req)
	}
	if !reflect.DeepEqual(req.Filters, target.DefaultFilters()) {
		t.Fatalf("filters = %v", req.Filters)
	}
	if req.Filters["intel"] != true {
		t.Fatal("defaults lost")
	}
	req.Filters["intel"] = false
	if !target["intel"] {
		t.Fatal("normalization must not alias the target's defaults")
	}
}

func TestNormalizeJSONMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"missing options": `{"source": "x"}`,
		"missing source":  `{"options": {"userArguments": ""}}`,
		"bad arguments":   `{"source": "x", "options": {"userArguments": 5}}`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(body))
			r.Header.Set("Content-Type", "application/json")
			b, err := request.Decode(r)
			if err == nil {
				_, err = request.Normalize(b, target)
			}
			if !errors.Is(err, request.ErrMalformedRequest) {
				t.Fatalf("expected malformed request, got %v", err)
			}
		})
	}
}

func TestNormalizeForm(t *testing.T) {
	body := "compiler=gcc&lang=c&source=int+x%3B&userArguments=-O3+-Wall&labels=true&intel=false&execute=true&skipAsm=true"
	b := decode(t, "application/x-www-form-urlencoded", "/api/compiler/gcc/compile", body)
	if _, ok := b.(*request.FormBody); !ok || b.Lang() != "c" {
		t.Fatalf("decoded %T lang %q", b, b.Lang())
	}
	req, err := request.Normalize(b, target)
	if err != nil {
		t.Fatal(err)
	}
	want := compiler.Filters{"labels": true, "intel": false, "demangle": false, "execute": true}
	if !reflect.DeepEqual(req.Filters, want) {
		t.Fatalf("filters = %v, want %v", req.Filters, want)
	}
	if req.Source != "int x;" || !reflect.DeepEqual(req.Options, []string{"-O3", "-Wall"}) || !req.BackendFlag("skipAsm") {
		t.Fatalf("unexpected request %+v", req)
	}

	data, err := b.(*request.FormBody).AsJSON()
	if err != nil {
		t.Fatal(err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj["compiler"] != "gcc" || obj["source"] != "int x;" || obj["options"] != "-O3 -Wall" {
		t.Fatalf("AsJSON = %s (%v)", data, err)
	}
	filters, _ := obj["filters"].(map[string]any)
	if filters["labels"] != true || filters["intel"] != false || filters["directives"] != false {
		t.Fatalf("reshaped filters = %v", filters)
	}
}

func TestFormWithoutCompilerIsText(t *testing.T) {
	b := decode(t, "application/x-www-form-urlencoded", "/", "int main(){}")
	if _, ok := b.(*request.TextBody); !ok {
		t.Fatalf("decoded %T", b)
	}
}

func TestNormalizeText(t *testing.T) {
	b := decode(t, "text/plain", "/api/compiler/gcc/compile?options=-O1+%22-DX%3Da+b%22&filters=intel,labels&addFilters=binary&removeFilters=labels&skipAsm=true", "int main(){}")
	if _, ok := b.(*request.TextBody); !ok {
		t.Fatalf("decoded %T", b)
	}
	req, err := request.Normalize(b, target)
	if err != nil {
		t.Fatal(err)
	}
	if req.Source != "int main(){}" {
		t.Fatalf("source = %q", req.Source)
	}
	if !reflect.DeepEqual(req.Options, []string{"-O1", "-DX=a b"}) {
		t.Fatalf("options = %q", req.Options)
	}
	if want := (compiler.Filters{"intel": true, "binary": true}); !reflect.DeepEqual(req.Filters, want) {
		t.Fatalf("filters = %v, want %v", req.Filters, want)
	}
	if !req.BackendFlag("skipAsm") || req.BackendFlag("skipPopArgs") {
		t.Fatalf("backend options = %v", req.BackendOptions)
	}
}

func TestNormalizeTextDefaultFilters(t *testing.T) {
	b := decode(t, "", "/x?addFilters=execute&removeFilters=demangle,", "src")
	req, err := request.Normalize(b, target)
	if err != nil {
		t.Fatal(err)
	}
	want := compiler.Filters{"labels": false, "intel": true, "execute": true}
	if !reflect.DeepEqual(req.Filters, want) {
		t.Fatalf("filters = %v, want %v", req.Filters, want)
	}
}

func TestNormalizeCMake(t *testing.T) {
	withFiles := decode(t, "application/json", "/", `{"source": "project(x)", "options": {}, "files": [{"filename": "a.cpp", "contents": "int a;"}]}`)
	req, err := request.NormalizeCMake(withFiles, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Files) != 1 || req.Files[0].Filename != "a.cpp" {
		t.Fatalf("files = %+v", req.Files)
	}

	for _, b := range []request.Body{
		decode(t, "application/json", "/", `{"source": "project(x)", "options": {}}`),
		decode(t, "text/plain", "/", "project(x)"),
	} {
		if _, err := request.NormalizeCMake(b, target); !errors.Is(err, request.ErrMalformedRequest) {
			t.Fatalf("%T without files: %v", b, err)
		}
	}
}

func TestUsedOptions(t *testing.T) {
	tests := []struct {
		body    string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{`{"usedOptions": "-O2 -std=c++20"}`, []string{"-O2", "-std=c++20"}, false},
		{`{"presplit": true, "usedOptions": ["-O2", "-DX=a b"]}`, []string{"-O2", "-DX=a b"}, false},
		{`{"presplit": true, "usedOptions": "-O2"}`, nil, true},
		{`{"usedOptions": ["-O2"]}`, nil, true},
		{`not json`, nil, true},
	}
	for _, tt := range tests {
		got, err := request.UsedOptions([]byte(tt.body))
		if tt.wantErr {
			if !errors.Is(err, request.ErrMalformedRequest) {
				t.Errorf("UsedOptions(%s): expected malformed, got %v", tt.body, err)
			}
			continue
		}
		if err != nil || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("UsedOptions(%s) = %q, %v; want %q", tt.body, got, err, tt.want)
		}
	}
}
