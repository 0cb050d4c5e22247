package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/httputil"
)

// ArticleHandler handles HTTP requests for article operations
type ArticleHandler struct {
	articleService wikiSvc.ArticleService
	logger         *slog.Logger
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articleService wikiSvc.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		articleService: articleService,
		logger:         logger,
	}
}

// ListArticles returns a node's live articles in order
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	spaceID, nodeID := pathID(r, "spaceId"), pathID(r, "nodeId")
	if spaceID == 0 || nodeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and node ids are required")
		return
	}

	articles, err := h.articleService.GetArticles(r.Context(), httputil.GetUserID(r), spaceID, nodeID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, articles)
}

// ListVersions returns id/version pairs for cheap staleness checks
func (h *ArticleHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	spaceID, nodeID := pathID(r, "spaceId"), pathID(r, "nodeId")
	if spaceID == 0 || nodeID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space and node ids are required")
		return
	}

	versions, err := h.articleService.GetVersions(r.Context(), httputil.GetUserID(r), spaceID, nodeID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, versions)
}

// CreateArticle adds an article to a node
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.AddArticleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")

	article, err := h.articleService.AddArticle(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, article)
}

// UpdateArticle rewrites an article's content under its version guard
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.UpdateArticleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")
	req.ArticleID = pathID(r, "articleId")

	version, err := h.articleService.UpdateArticle(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"articleVersion": version})
}

// DeleteArticle soft-deletes an article
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.RemoveArticleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")
	req.ArticleID = pathID(r, "articleId")

	if err := h.articleService.RemoveArticle(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveArticle reorders an article within its node
func (h *ArticleHandler) MoveArticle(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.MoveArticleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")
	req.ArticleID = pathID(r, "articleId")

	if err := h.articleService.MoveArticle(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveArticleToNode reparents an article to a different node
func (h *ArticleHandler) MoveArticleToNode(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.MoveArticleToNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")
	req.ArticleID = pathID(r, "articleId")

	if err := h.articleService.MoveArticleToAnotherNode(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetLevel flips the article's pin marker
func (h *ArticleHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.SetLevelRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpaceID, req.NodeID = pathID(r, "spaceId"), pathID(r, "nodeId")
	req.ArticleID = pathID(r, "articleId")

	if err := h.articleService.SetArticleLevel(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory lists an article's snapshots, most recent first
func (h *ArticleHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	spaceID, nodeID := pathID(r, "spaceId"), pathID(r, "nodeId")
	articleID := pathID(r, "articleId")
	if spaceID == 0 || nodeID == 0 || articleID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space, node and article ids are required")
		return
	}

	history, err := h.articleService.GetHistory(r.Context(), httputil.GetUserID(r), spaceID, nodeID, articleID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, history)
}
