package dispatch

import (
	"net/http"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"cexd/internal/compiler"
)

const (
	maxSafeInteger     = 1<<53 - 1
	defaultSearchLimit = 1000
	maxSearchLimit     = 20
)

type searchResponse struct {
	Results []compiler.Revision `json:"results"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

type searchError struct {
	Error string `json:"error"`
}

// parseSafeInt accepts "" (then def) or a decimal whose magnitude is at
// most 2^53-1.
func parseSafeInt(raw string, def int64) (int, bool) {
	n := def
	if raw = strings.TrimSpace(raw); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v > maxSafeInteger || v < -maxSafeInteger {
			return 0, false
		}
		n = v
	}
	out, err := safecast.Conv[int](n)
	if err != nil {
		return 0, false
	}
	return out, true
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.decode(w, r)
	if !ok {
		return
	}
	repo, isRepo := c.(compiler.RevisionQuerier)
	if !isRepo {
		writeJSON(w, http.StatusNotFound, searchError{Error: "Compiler repository not found!"})
		return
	}

	q := r.URL.Query()
	offset, ok := parseSafeInt(q.Get("offset"), 0)
	if !ok || offset < 0 {
		writeJSON(w, http.StatusBadRequest, searchError{Error: "Bad parameter: `offset`"})
		return
	}
	limit, ok := parseSafeInt(q.Get("limit"), defaultSearchLimit)
	if !ok || limit < 0 {
		writeJSON(w, http.StatusBadRequest, searchError{Error: "Bad parameter: `limit`"})
		return
	}
	limit = min(limit, maxSearchLimit)

	revs, err := repo.QueryRevisions(r.Context(), q.Get("q"), offset, limit)
	if err != nil {
		h.log.Error("revision search failed", "compiler", c.Info().ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, searchError{Error: err.Error()})
		return
	}
	results := revs.Items
	if results == nil {
		results = []compiler.Revision{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: revs.Total, Limit: limit, Offset: offset})
}
