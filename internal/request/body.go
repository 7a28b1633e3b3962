// Package request decodes the three wire shapes of a compile request and
// normalizes them into compiler.Request.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"cexd/internal/argsplit"
	"cexd/internal/compiler"
)

// MaxBodyBytes caps the size of a decoded request body.
const MaxBodyBytes = 16 << 20

// ErrMalformedRequest marks caller errors; match with errors.Is.
var ErrMalformedRequest = errors.New("malformed request")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, fmt.Sprintf(format, args...))
}

// Body is one decoded request body: *JSONBody, *FormBody or *TextBody.
type Body interface {
	// Raw returns the body bytes as received.
	Raw() []byte
	// ContentType is the media type the body arrived with.
	ContentType() string
	// Lang is the language named inside the body, if any.
	Lang() string
	isBody()
}

// Args decodes either a JSON string (tokenized) or an array of strings.
type Args []string

func (a *Args) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = argsplit.Split(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("arguments must be a string or a list of strings")
	}
	*a = list
	return nil
}

func (a Args) list() []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}

type jsonTool struct {
	ID   string `json:"id"`
	Args Args   `json:"args"`
}

type jsonExecute struct {
	Args  Args   `json:"args"`
	Stdin string `json:"stdin"`
}

type jsonOptions struct {
	UserArguments     Args               `json:"userArguments"`
	CompilerOptions   map[string]any     `json:"compilerOptions"`
	Filters           map[string]bool    `json:"filters"`
	Tools             []jsonTool         `json:"tools"`
	Libraries         []compiler.Library `json:"libraries"`
	ExecuteParameters jsonExecute        `json:"executeParameters"`
}

type jsonWire struct {
	Source      *string          `json:"source"`
	Options     *jsonOptions     `json:"options"`
	Lang        string           `json:"lang"`
	Compiler    string           `json:"compiler"`
	BypassCache json.RawMessage  `json:"bypassCache"`
	Files       *[]compiler.File `json:"files"`
}

// JSONBody is an application/json request.
type JSONBody struct {
	raw  []byte
	wire jsonWire
}

func (b *JSONBody) Raw() []byte         { return b.raw }
func (b *JSONBody) ContentType() string { return "application/json" }
func (b *JSONBody) Lang() string        { return b.wire.Lang }
func (*JSONBody) isBody()               {}

// HasFiles reports whether the body carried a "files" field.
func (b *JSONBody) HasFiles() bool { return b.wire.Files != nil }

// FormBody is a form submission that names a compiler.
type FormBody struct {
	raw         []byte
	contentType string
	Values      url.Values
}

func (b *FormBody) Raw() []byte         { return b.raw }
func (b *FormBody) ContentType() string { return b.contentType }
func (b *FormBody) Lang() string        { return b.Values.Get("lang") }
func (*FormBody) isBody()               {}

// proxiedFilters are the form filters forwarded to a remote delegate.
var proxiedFilters = []string{"commentOnly", "directives", "libraryCode", "labels", "demangle", "intel", "execute"}

// AsJSON reshapes the form into the JSON request a remote delegate expects:
// userArguments become options and the common filters become booleans.
func (b *FormBody) AsJSON() ([]byte, error) {
	filters := make(map[string]bool, len(proxiedFilters))
	for _, name := range proxiedFilters {
		filters[name] = b.Values.Get(name) == "true"
	}
	return json.Marshal(struct {
		Lang     string          `json:"lang"`
		Compiler string          `json:"compiler"`
		Source   string          `json:"source"`
		Options  string          `json:"options"`
		Filters  map[string]bool `json:"filters"`
	}{
		Lang:     b.Values.Get("lang"),
		Compiler: b.Values.Get("compiler"),
		Source:   b.Values.Get("source"),
		Options:  b.Values.Get("userArguments"),
		Filters:  filters,
	})
}

// TextBody is a bare source body; options travel in the query string.
type TextBody struct {
	raw         []byte
	contentType string
	Query       url.Values
}

func (b *TextBody) Raw() []byte         { return b.raw }
func (b *TextBody) ContentType() string { return b.contentType }
func (b *TextBody) Lang() string        { return b.Query.Get("lang") }
func (*TextBody) isBody()               {}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, malformed("request body exceeds %d bytes", MaxBodyBytes)
	}
	return data, nil
}

// Decode reads r's body and picks its shape from the content type.
func Decode(r *http.Request) (Body, error) {
	raw, err := readBody(r)
	if err != nil {
		return nil, err
	}
	ct := r.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(ct)

	switch mediaType {
	case "application/json":
		b := &JSONBody{raw: raw}
		if err := json.Unmarshal(raw, &b.wire); err != nil {
			return nil, malformed("invalid JSON body: %v", err)
		}
		return b, nil
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err == nil && values.Get("compiler") != "" {
			return &FormBody{raw: raw, contentType: ct, Values: values}, nil
		}
	case "multipart/form-data":
		values, err := parseMultipart(raw, params["boundary"])
		if err != nil {
			return nil, malformed("invalid multipart body: %v", err)
		}
		if values.Get("compiler") != "" {
			return &FormBody{raw: raw, contentType: ct, Values: values}, nil
		}
	}
	return &TextBody{raw: raw, contentType: ct, Query: r.URL.Query()}, nil
}

func parseMultipart(raw []byte, boundary string) (url.Values, error) {
	if boundary == "" {
		return nil, errors.New("missing boundary")
	}
	req := &http.Request{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"multipart/form-data; boundary=" + boundary}},
		Body:   io.NopCloser(bytes.NewReader(raw)),
	}
	if err := req.ParseMultipartForm(MaxBodyBytes); err != nil {
		return nil, err
	}
	values := url.Values{}
	for k, vs := range req.MultipartForm.Value {
		values[k] = vs
	}
	return values, nil
}

// truthy accepts true, non-zero numbers and the strings "true"/"1".
func truthy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "0", `""`, `"false"`, `"0"`:
		return false
	}
	return true
}
