package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/httputil"
)

// SpaceHandler handles HTTP requests for spaces and memberships
type SpaceHandler struct {
	spaceService wikiSvc.SpaceService
	logger       *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(spaceService wikiSvc.SpaceService, logger *slog.Logger) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
		logger:       logger,
	}
}

// CreateSpace creates a space owned by the caller
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.CreateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	space, err := h.spaceService.CreateSpace(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, space)
}

// UpdateSpace updates a space's metadata and visibility
func (h *SpaceHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.UpdateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID = pathID(r, "spaceId")

	if err := h.spaceService.UpdateSpace(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMySpaces lists the caller's spaces
func (h *SpaceHandler) ListMySpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.spaceService.GetUserSpaces(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, spaces)
}

// ListMembers lists a space's members
func (h *SpaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	spaceID := pathID(r, "spaceId")
	if spaceID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space id is required")
		return
	}

	members, err := h.spaceService.ListMembers(r.Context(), httputil.GetUserID(r), spaceID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	UID  int64 `json:"uid"`
	Role int   `json:"role"`
}

// AddMember adds or re-roles a member
func (h *SpaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	spaceID := pathID(r, "spaceId")
	if spaceID == 0 || req.UID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space id and uid are required")
		return
	}

	if err := h.spaceService.AddMember(r.Context(), httputil.GetUserID(r), spaceID, req.UID, req.Role); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a member from a space
func (h *SpaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	spaceID, memberUID := pathID(r, "spaceId"), pathID(r, "uid")
	if spaceID == 0 || memberUID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space id and uid are required")
		return
	}

	if err := h.spaceService.RemoveMember(r.Context(), httputil.GetUserID(r), spaceID, memberUID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createTreeRequest struct {
	TreeID int64  `json:"treeId"`
	Title  string `json:"title"`
}

// CreateTree plants the root of an additional tree in a space
func (h *SpaceHandler) CreateTree(w http.ResponseWriter, r *http.Request) {
	var req createTreeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	spaceID := pathID(r, "spaceId")
	if spaceID == 0 || req.TreeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and tree ids are required")
		return
	}

	version, err := h.spaceService.CreateTree(r.Context(), httputil.GetUserID(r), spaceID, req.TreeID, req.Title)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"treeVersion": version})
}
