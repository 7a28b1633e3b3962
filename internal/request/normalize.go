package request

import (
	"encoding/json"
	"net/url"
	"strings"

	"cexd/internal/argsplit"
	"cexd/internal/compiler"
)

// FilterSource supplies the filters a request starts from.
type FilterSource interface {
	DefaultFilters() compiler.Filters
}

// knownFilters are accepted from forms even when the target compiler does
// not list them among its defaults.
var knownFilters = []string{
	"binary", "binaryObject", "execute", "demangle", "intel", "commentOnly",
	"directives", "labels", "libraryCode", "trim", "debugCalls", "optOutput",
}

func defaultsOf(target FilterSource) compiler.Filters {
	if target == nil {
		return compiler.Filters{}
	}
	f := target.DefaultFilters()
	if f == nil {
		return compiler.Filters{}
	}
	return f.Clone()
}

// Normalize converts body into a canonical request for target.
func Normalize(body Body, target FilterSource) (*compiler.Request, error) {
	var (
		req *compiler.Request
		err error
	)
	switch b := body.(type) {
	case *JSONBody:
		req, err = fromJSON(b, target)
	case *FormBody:
		req = fromForm(b.Values, target)
	case *TextBody:
		req = fromText(string(b.raw), b.Query, target)
	default:
		return nil, malformed("unsupported request body %T", body)
	}
	if err != nil {
		return nil, err
	}
	fillDefaults(req)
	return req, nil
}

// NormalizeCMake is Normalize for multi-file builds; the body must be JSON
// and carry "files".
func NormalizeCMake(body Body, target FilterSource) (*compiler.Request, error) {
	b, ok := body.(*JSONBody)
	if !ok || !b.HasFiles() {
		return nil, malformed("missing files")
	}
	return Normalize(body, target)
}

func fromJSON(b *JSONBody, target FilterSource) (*compiler.Request, error) {
	w := b.wire
	if w.Options == nil {
		return nil, malformed("missing options")
	}
	if w.Source == nil {
		return nil, malformed("missing source")
	}
	opts := w.Options

	filters := defaultsOf(target)
	for k, v := range opts.Filters {
		filters[k] = v
	}
	tools := make([]compiler.Tool, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		tools = append(tools, compiler.Tool{ID: t.ID, Args: t.Args.list()})
	}
	req := &compiler.Request{
		Source:         *w.Source,
		Options:        opts.UserArguments.list(),
		BackendOptions: opts.CompilerOptions,
		Filters:        filters,
		BypassCache:    truthy(w.BypassCache),
		ExecutionParameters: compiler.ExecutionParameters{
			Args:  opts.ExecuteParameters.Args.list(),
			Stdin: opts.ExecuteParameters.Stdin,
		},
		Tools:     tools,
		Libraries: opts.Libraries,
	}
	if w.Files != nil {
		req.Files = *w.Files
	}
	return req, nil
}

func fromForm(v url.Values, target FilterSource) *compiler.Request {
	defaults := defaultsOf(target)
	filters := make(compiler.Filters, len(defaults))
	for name := range defaults {
		filters[name] = v.Get(name) == "true"
	}
	for _, name := range knownFilters {
		if _, ok := filters[name]; !ok && v.Has(name) {
			filters[name] = v.Get(name) == "true"
		}
	}
	return &compiler.Request{
		Source:  v.Get("source"),
		Options: argsplit.Split(v.Get("userArguments")),
		BackendOptions: map[string]any{
			"skipAsm":     v.Get("skipAsm") == "true",
			"skipPopArgs": v.Get("skipPopArgs") == "true",
		},
		Filters:     filters,
		BypassCache: v.Get("bypassCache") == "true",
		ExecutionParameters: compiler.ExecutionParameters{
			Args:  argsplit.Split(v.Get("executeParametersArgs")),
			Stdin: v.Get("executeParametersStdin"),
		},
	}
}

func fromText(source string, q url.Values, target FilterSource) *compiler.Request {
	filters := defaultsOf(target)
	if names := q.Get("filters"); names != "" {
		filters = compiler.Filters{}
		for _, name := range splitList(names) {
			filters[name] = true
		}
	}
	for _, name := range splitList(q.Get("addFilters")) {
		filters[name] = true
	}
	for _, name := range splitList(q.Get("removeFilters")) {
		delete(filters, name)
	}
	return &compiler.Request{
		Source:  source,
		Options: argsplit.Split(q.Get("options")),
		BackendOptions: map[string]any{
			"skipAsm":     q.Get("skipAsm") == "true",
			"skipPopArgs": q.Get("skipPopArgs") == "true",
		},
		Filters:     filters,
		BypassCache: q.Get("bypassCache") == "true",
		ExecutionParameters: compiler.ExecutionParameters{
			Args:  argsplit.Split(q.Get("args")),
			Stdin: q.Get("stdin"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fillDefaults(req *compiler.Request) {
	if req.Options == nil {
		req.Options = []string{}
	}
	if req.BackendOptions == nil {
		req.BackendOptions = map[string]any{}
	}
	if req.Filters == nil {
		req.Filters = compiler.Filters{}
	}
	if req.ExecutionParameters.Args == nil {
		req.ExecutionParameters.Args = []string{}
	}
	if req.Tools == nil {
		req.Tools = []compiler.Tool{}
	}
	if req.Libraries == nil {
		req.Libraries = []compiler.Library{}
	}
}

type usedOptionsWire struct {
	Presplit    bool            `json:"presplit"`
	UsedOptions json.RawMessage `json:"usedOptions"`
}

// UsedOptions extracts the already-used options of a popular/optimization
// arguments request. The list is tokenized unless the caller sets presplit.
// An empty body yields nil.
func UsedOptions(raw []byte) ([]string, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var w usedOptionsWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("invalid JSON body: %v", err)
	}
	if len(w.UsedOptions) == 0 || string(w.UsedOptions) == "null" {
		return nil, nil
	}
	if w.Presplit {
		var list []string
		if err := json.Unmarshal(w.UsedOptions, &list); err != nil {
			return nil, malformed("presplit usedOptions must be a list of strings")
		}
		return list, nil
	}
	var s string
	if err := json.Unmarshal(w.UsedOptions, &s); err != nil {
		return nil, malformed("usedOptions must be a string unless presplit is set")
	}
	return argsplit.Split(s), nil
}
