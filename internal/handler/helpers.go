package handler

import (
	"errors"
	"net/http"
	"strconv"

	"inkwell/internal/domain"
	"inkwell/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Version conflicts
// map to 409 so clients know to reload and retry; invariant violations map
// to 400 because retrying the same request can never succeed.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrIllegalOperation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrTreeNotExist),
		errors.Is(err, domain.ErrArticleNotExist),
		errors.Is(err, domain.ErrArticleRemoved),
		errors.Is(err, domain.ErrSpaceNotExist),
		errors.Is(err, domain.ErrMemberNotExist),
		errors.Is(err, domain.ErrAttachmentNotExist):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTreeUpdated),
		errors.Is(err, domain.ErrArticleUpdated):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a numeric path parameter, returning 0 when absent or
// malformed. Callers treat 0 as missing.
func pathID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

// formID parses an optional numeric form field the same way.
func formID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.FormValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}
