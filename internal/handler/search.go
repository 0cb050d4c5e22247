package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"inkwell/internal/domain"
	"inkwell/internal/domain/services"
	"inkwell/internal/httputil"
	"inkwell/internal/search"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// SearchHandler runs full-text queries scoped to a space
type SearchHandler struct {
	searcher search.Searcher
	gate     services.PermissionGate
	logger   *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher search.Searcher, gate services.PermissionGate, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		gate:     gate,
		logger:   logger,
	}
}

// Search queries the index within one space. Query params: q (required),
// limit (optional, capped).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	spaceID := pathID(r, "spaceId")
	if spaceID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space id is required")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	uid := httputil.GetUserID(r)
	ok, err := h.gate.CanRead(r.Context(), spaceID, uid)
	if err != nil {
		handleError(w, err)
		return
	}
	if !ok {
		handleError(w, domain.ErrPermissionDenied)
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxSearchLimit)
		}
	}

	results, err := h.searcher.Search(r.Context(), spaceID, query, limit)
	if err != nil {
		h.logger.Error("search query failed", "space_id", spaceID, "error", err)
		httputil.RespondError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	httputil.RespondJSON(w, http.StatusOK, results)
}
