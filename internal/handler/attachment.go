package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/httputil"
	"inkwell/internal/service/wiki"
)

// AttachmentHandler handles attachment uploads and downloads
type AttachmentHandler struct {
	attachmentService wikiSvc.AttachmentService
	logger            *slog.Logger
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(attachmentService wikiSvc.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

// Upload accepts a multipart form with a "file" field and stores the blob.
// Node and article ids are optional form fields; attachments uploaded
// before their article exists get linked at article creation.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	spaceID := pathID(r, "spaceId")
	if spaceID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, wiki.MaxAttachmentSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	req := wikiSvc.UploadRequest{
		SpaceID:   spaceID,
		NodeID:    formID(r, "nodeId"),
		ArticleID: formID(r, "articleId"),
		Filename:  header.Filename,
		Size:      header.Size,
	}

	attachment, err := h.attachmentService.Upload(r.Context(), httputil.GetUserID(r), &req, file)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, attachment)
}

// Download streams an attachment's blob back to the client.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	attachmentID := pathID(r, "attachmentId")
	if attachmentID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "attachment id is required")
		return
	}

	blob, attachment, err := h.attachmentService.Download(r.Context(), httputil.GetUserID(r), attachmentID)
	if err != nil {
		handleError(w, err)
		return
	}
	defer blob.Close()

	contentType := mime.TypeByExtension(filepath.Ext(attachment.OriginalFilename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": attachment.OriginalFilename}))
	if attachment.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", attachment.Size))
	}

	if _, err := io.Copy(w, blob); err != nil {
		// Headers are already sent; nothing useful to return to the client.
		h.logger.Warn("attachment stream interrupted",
			"attachment_id", attachmentID, "error", err)
	}
}

// ListForArticle lists an article's attachments
func (h *AttachmentHandler) ListForArticle(w http.ResponseWriter, r *http.Request) {
	spaceID, nodeID := pathID(r, "spaceId"), pathID(r, "nodeId")
	articleID := pathID(r, "articleId")
	if spaceID == 0 || nodeID == 0 || articleID == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "space, node and article ids are required")
		return
	}

	attachments, err := h.attachmentService.ListArticleAttachments(r.Context(), httputil.GetUserID(r), spaceID, nodeID, articleID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, attachments)
}
