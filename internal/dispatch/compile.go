package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"cexd/internal/compiler"
	"cexd/internal/diagfmt"
	"cexd/internal/diagparse"
	"cexd/internal/request"
)

// panicError carries a panic recovered from a compiler together with the
// goroutine stack at the point of recovery.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func runGuarded(ctx context.Context, fn func(context.Context) (*compiler.Result, error)) (res *compiler.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func (h *Handler) handleCompile(w http.ResponseWriter, r *http.Request) {
	body, c, ok := h.decode(w, r)
	if !ok {
		return
	}
	if remote := c.Remote(); remote != nil {
		h.delegate(w, r, body, *remote)
		return
	}

	if len(body.Raw()) == 0 {
		h.log.Warn("no body found in request", "path", r.URL.Path)
		h.badRequest(w, fmt.Errorf("%w: empty request body", request.ErrMalformedRequest))
		return
	}
	req, err := request.Normalize(body, c)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	info := c.Info()
	log := h.log.With("compiler", info.ID, "lang", info.Lang)
	if !req.BackendFlag("skipPopArgs") {
		c.PossibleArguments().Record(req.Options)
	}

	h.metrics.CountCompile(info.Lang)
	res, err := runGuarded(r.Context(), func(ctx context.Context) (*compiler.Result, error) {
		return c.Compile(ctx, req)
	})
	if err != nil {
		writeJSON(w, http.StatusOK, h.failureResult(log, info, err))
		return
	}
	if res.Executed() {
		h.metrics.CountExecute(info.Lang)
	}

	if prefersJSON(r.Header.Get("Accept")) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := diagfmt.Plaintext(w, res, h.banner); err != nil {
		log.Error("error rendering plaintext result", "err", err)
		h.reporter.Capture(err, map[string]string{"compiler": info.ID})
	}
}

// failureResult maps a compile error onto the uniform result shape.
func (h *Handler) failureResult(log *slog.Logger, info compiler.Info, err error) *compiler.Result {
	var (
		msgErr  compiler.MessageError
		execErr *compiler.ExecutionError
		pErr    *panicError
	)
	switch {
	case errors.As(err, &msgErr):
		log.Warn("error during compilation", "err", err)
		return compiler.ErrorResult(string(msgErr))
	case errors.As(err, &execErr):
		log.Error("error during compilation", "code", execErr.Code)
		return &compiler.Result{
			Code:   execErr.Code,
			Stdout: diagparse.ParseGeneric(execErr.Stdout, ""),
			Stderr: diagparse.ParseGeneric(execErr.Stderr, ""),
		}
	case errors.As(err, &pErr):
		log.Error("error during compilation", "err", err, "stack", string(pErr.stack))
		h.reporter.Capture(err, map[string]string{"compiler": info.ID, "lang": info.Lang})
		return compiler.ErrorResult(fmt.Sprintf("Internal Compiler Explorer error: %v\n%s", pErr.value, pErr.stack))
	default:
		log.Error("error during compilation", "err", err)
		return compiler.ErrorResult("Internal Compiler Explorer error: " + err.Error())
	}
}

func (h *Handler) handleCMake(w http.ResponseWriter, r *http.Request) {
	body, c, ok := h.decode(w, r)
	if !ok {
		return
	}
	if remote := c.Remote(); remote != nil {
		h.delegate(w, r, body, *remote)
		return
	}

	req, err := request.NormalizeCMake(body, c)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	info := c.Info()
	h.metrics.CountCMake(info.Lang)
	res, err := runGuarded(r.Context(), func(ctx context.Context) (*compiler.Result, error) {
		return c.CMake(ctx, req)
	})
	if err != nil {
		var pErr *panicError
		if errors.As(err, &pErr) {
			h.log.Error("error during cmake", "compiler", info.ID, "err", err, "stack", string(pErr.stack))
			h.reporter.Capture(err, map[string]string{"compiler": info.ID, "lang": info.Lang})
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: true, Message: err.Error()})
		return
	}
	if res.Executed() {
		h.metrics.CountCMakeExecute(info.Lang)
	}
	writeJSON(w, http.StatusOK, res)
}
