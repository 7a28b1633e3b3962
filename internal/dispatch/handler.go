// Package dispatch serves the compile API: it finds the addressed compiler,
// delegates to remote instances, normalizes requests and shapes results.
package dispatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cexd/internal/compiler"
	"cexd/internal/errreport"
	"cexd/internal/metrics"
	"cexd/internal/request"
)

// Finder resolves compilers; *registry.Registry implements it.
type Finder interface {
	Find(lang, id string) compiler.Compiler
	List() []compiler.Info
}

// Options configure a Handler.
type Options struct {
	Compilers Finder
	Metrics   *metrics.Metrics
	Reporter  errreport.Reporter
	Logger    *slog.Logger
	// TextBanner prefixes plaintext responses as a "# " comment line.
	TextBanner string
	// Transport carries delegated requests; nil selects http.DefaultTransport.
	Transport http.RoundTripper
}

// Handler is the HTTP entry point.
type Handler struct {
	compilers Finder
	metrics   *metrics.Metrics
	reporter  errreport.Reporter
	log       *slog.Logger
	banner    string
	transport http.RoundTripper

	mux *http.ServeMux
}

// New builds the handler and its routes.
func New(opts Options) *Handler {
	h := &Handler{
		compilers: opts.Compilers,
		metrics:   opts.Metrics,
		reporter:  opts.Reporter,
		log:       opts.Logger,
		banner:    opts.TextBanner,
		transport: opts.Transport,
		mux:       http.NewServeMux(),
	}
	if h.reporter == nil {
		h.reporter = errreport.Nop{}
	}
	if h.log == nil {
		h.log = slog.New(slog.DiscardHandler)
	}

	h.mux.HandleFunc("POST /api/compiler/{compiler}/compile", h.handleCompile)
	h.mux.HandleFunc("POST /api/{lang}/compiler/{compiler}/compile", h.handleCompile)
	h.mux.HandleFunc("POST /api/compiler/{compiler}/cmake", h.handleCMake)
	h.mux.HandleFunc("GET /api/popularArguments/{compiler}", h.handlePopularArguments)
	h.mux.HandleFunc("POST /api/popularArguments/{compiler}", h.handlePopularArguments)
	h.mux.HandleFunc("GET /api/optimizationArguments/{compiler}", h.handleOptimizationArguments)
	h.mux.HandleFunc("POST /api/optimizationArguments/{compiler}", h.handleOptimizationArguments)
	h.mux.HandleFunc("GET /api/compiler/{compiler}/search", h.handleSearch)
	h.mux.HandleFunc("GET /api/compilers", h.handleList)
	h.mux.HandleFunc("GET /healthcheck", h.handleHealth)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics.Handler())
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// compilerFor picks the compiler a request addresses:
//   - JSON bodies: the route compiler in the route language, else the body language;
//   - form bodies naming a compiler: that compiler in the body language;
//   - anything else: the route compiler in the route language.
func (h *Handler) compilerFor(r *http.Request, body request.Body) compiler.Compiler {
	routeLang := r.PathValue("lang")
	routeID := r.PathValue("compiler")

	var lang, id string
	switch b := body.(type) {
	case *request.JSONBody:
		lang, id = routeLang, routeID
		if lang == "" {
			lang = b.Lang()
		}
	case *request.FormBody:
		lang, id = b.Lang(), b.Values.Get("compiler")
	default:
		lang, id = routeLang, routeID
	}
	c := h.compilers.Find(lang, id)
	if c == nil {
		h.log.Warn("unable to find compiler", "lang", lang, "compiler", id, "path", r.URL.Path)
	}
	return c
}

// decode reads the body and resolves the compiler. It answers the request
// itself and returns ok=false on a malformed body or an unknown compiler.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (request.Body, compiler.Compiler, bool) {
	body, err := request.Decode(r)
	if err != nil {
		h.badRequest(w, err)
		return nil, nil, false
	}
	c := h.compilerFor(r, body)
	if c == nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, nil, false
	}
	return body, c, true
}

type apiError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	if !errors.Is(err, request.ErrMalformedRequest) {
		h.log.Warn("bad request", "err", err)
	}
	writeJSON(w, http.StatusBadRequest, apiError{Error: true, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.compilers.List())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Everything is awesome\n"))
}
