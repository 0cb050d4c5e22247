package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"inkwell/internal/blob"
	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/domain/services"
	wikiSvc "inkwell/internal/domain/services/wiki"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// MaxAttachmentSize caps uploads at 100 MiB.
const MaxAttachmentSize = 100 << 20

type attachmentService struct {
	attachRepo wikiRepo.AttachmentRepository
	gate       services.PermissionGate
	store      blob.Store
	logger     *slog.Logger
}

// NewAttachmentService creates the attachment service.
func NewAttachmentService(
	attachRepo wikiRepo.AttachmentRepository,
	gate services.PermissionGate,
	store blob.Store,
	logger *slog.Logger,
) wikiSvc.AttachmentService {
	return &attachmentService{
		attachRepo: attachRepo,
		gate:       gate,
		store:      store,
		logger:     logger,
	}
}

// Upload stores the blob under a generated key, then records the metadata
// row. A metadata failure removes the orphaned blob best-effort.
func (s *attachmentService) Upload(ctx context.Context, uid int64, req *wikiSvc.UploadRequest, content io.Reader) (*models.Attachment, error) {
	if err := validateUploadRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	ok, err := s.gate.CanWrite(ctx, req.SpaceID, uid)
	if err != nil {
		return nil, fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return nil, domain.ErrPermissionDenied
	}

	ext := path.Ext(req.Filename)
	key := fmt.Sprintf("space-%d/%s%s", req.SpaceID, uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, io.LimitReader(content, MaxAttachmentSize), req.Size, ""); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	attachment := &models.Attachment{
		SpaceID:          req.SpaceID,
		NodeID:           req.NodeID,
		ArticleID:        req.ArticleID,
		OriginalFilename: req.Filename,
		StoreKey:         key,
		Extension:        ext,
		Size:             req.Size,
		Uploader:         uid,
	}
	if err := s.attachRepo.InsertAttachment(ctx, attachment); err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("orphaned blob cleanup failed", "key", key, "error", rmErr)
		}
		return nil, fmt.Errorf("insert attachment: %w", err)
	}

	s.logger.Info("attachment uploaded",
		"space_id", req.SpaceID,
		"attachment_id", attachment.ID,
		"size", req.Size,
		"uploader", uid,
	)
	return attachment, nil
}

func (s *attachmentService) Download(ctx context.Context, uid int64, attachmentID int64) (io.ReadCloser, *models.Attachment, error) {
	attachment, err := s.attachRepo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("get attachment: %w", err)
	}
	if attachment == nil || attachment.Deleted {
		return nil, nil, domain.ErrAttachmentNotExist
	}

	ok, err := s.gate.CanRead(ctx, attachment.SpaceID, uid)
	if err != nil {
		return nil, nil, fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return nil, nil, domain.ErrPermissionDenied
	}

	content, err := s.store.Get(ctx, attachment.StoreKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return content, attachment, nil
}

func (s *attachmentService) ListArticleAttachments(ctx context.Context, uid int64, spaceID, nodeID, articleID int64) ([]models.Attachment, error) {
	ok, err := s.gate.CanRead(ctx, spaceID, uid)
	if err != nil {
		return nil, fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return nil, domain.ErrPermissionDenied
	}

	attachments, err := s.attachRepo.ListArticleAttachments(ctx, spaceID, nodeID, articleID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// AttachToArticle links uploaded attachments to an article. Permission was
// already checked by the operation that created the article.
func (s *attachmentService) AttachToArticle(ctx context.Context, spaceID, nodeID, articleID int64, attachmentIDs []int64) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	if err := s.attachRepo.LinkToArticle(ctx, spaceID, nodeID, articleID, attachmentIDs); err != nil {
		return fmt.Errorf("link attachments: %w", err)
	}
	return nil
}

func validateUploadRequest(req *wikiSvc.UploadRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Min(int64(0))),
		validation.Field(&req.ArticleID, validation.Min(int64(0))),
		validation.Field(&req.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Size, validation.Required, validation.Min(int64(1)), validation.Max(int64(MaxAttachmentSize))),
	)
}
