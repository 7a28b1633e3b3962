package dispatch

import (
	"net/http"

	"cexd/internal/compiler"
	"cexd/internal/request"
)

func (h *Handler) handlePopularArguments(w http.ResponseWriter, r *http.Request) {
	h.serveArguments(w, r, func(p *compiler.PossibleArguments, used []string) map[string]compiler.Argument {
		return p.Popular(used, 0)
	})
}

func (h *Handler) handleOptimizationArguments(w http.ResponseWriter, r *http.Request) {
	h.serveArguments(w, r, (*compiler.PossibleArguments).Optimization)
}

func (h *Handler) serveArguments(w http.ResponseWriter, r *http.Request, pick func(*compiler.PossibleArguments, []string) map[string]compiler.Argument) {
	body, c, ok := h.decode(w, r)
	if !ok {
		return
	}
	used, err := request.UsedOptions(body.Raw())
	if err != nil {
		h.badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pick(c.PossibleArguments(), used))
}
