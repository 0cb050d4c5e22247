package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/httputil"
)

// TreeHandler handles HTTP requests for tree structure operations
type TreeHandler struct {
	treeService wikiSvc.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService wikiSvc.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// GetTree returns the nested live tree of a space
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	spaceID, treeID := pathID(r, "spaceId"), pathID(r, "treeId")
	if spaceID == 0 || treeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and tree ids are required")
		return
	}

	tree, err := h.treeService.GetTree(r.Context(), httputil.GetUserID(r), spaceID, treeID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetTreeVersion returns the tree's current version token, letting
// clients detect staleness without re-downloading the tree
func (h *TreeHandler) GetTreeVersion(w http.ResponseWriter, r *http.Request) {
	spaceID, treeID := pathID(r, "spaceId"), pathID(r, "treeId")
	if spaceID == 0 || treeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and tree ids are required")
		return
	}

	version, err := h.treeService.GetTreeVersion(r.Context(), httputil.GetUserID(r), spaceID, treeID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"treeVersion": version})
}

// GetTrash returns the trash view of a tree
func (h *TreeHandler) GetTrash(w http.ResponseWriter, r *http.Request) {
	spaceID, treeID := pathID(r, "spaceId"), pathID(r, "treeId")
	if spaceID == 0 || treeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and tree ids are required")
		return
	}

	trash, err := h.treeService.GetTrashTree(r.Context(), httputil.GetUserID(r), spaceID, treeID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, trash)
}

// AppendNode creates a node as the last child of its parent
func (h *TreeHandler) AppendNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.AppendNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.TreeID = pathID(r, "spaceId"), pathID(r, "treeId")

	result, err := h.treeService.AppendChildNode(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, result)
}

// RenameNode retitles a node
func (h *TreeHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.RenameNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.TreeID = pathID(r, "spaceId"), pathID(r, "treeId")
	req.NodeID = pathID(r, "nodeId")

	version, err := h.treeService.RenameNode(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"treeVersion": version})
}

// MoveNode reparents and/or reorders a node
func (h *TreeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.MoveNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.TreeID = pathID(r, "spaceId"), pathID(r, "treeId")
	req.NodeID = pathID(r, "nodeId")

	version, err := h.treeService.MoveNode(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"treeVersion": version})
}

// RemoveNode soft-deletes a node and its subtree
func (h *TreeHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.RemoveNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.TreeID = pathID(r, "spaceId"), pathID(r, "treeId")
	req.NodeID = pathID(r, "nodeId")

	version, err := h.treeService.RemoveNodeRecursively(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"treeVersion": version})
}

// RestoreNode brings a trashed subtree back
func (h *TreeHandler) RestoreNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.RemoveNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.TreeID = pathID(r, "spaceId"), pathID(r, "treeId")
	req.NodeID = pathID(r, "nodeId")

	version, err := h.treeService.RestoreNodeRecursively(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"treeVersion": version})
}

// MoveNodeToTree moves a subtree into another tree of the same space
func (h *TreeHandler) MoveNodeToTree(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.MoveNodeToTreeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID = pathID(r, "spaceId")
	req.NodeID = pathID(r, "nodeId")

	result, err := h.treeService.MoveNodeToAnotherTree(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
