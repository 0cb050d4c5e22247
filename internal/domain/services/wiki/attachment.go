package wiki

import (
	"context"
	"io"

	"inkwell/internal/domain/models/wiki"
)

// AttachmentService stores attachment blobs and links their metadata to
// articles. Blob content is opaque to the wiki core.
type AttachmentService interface {
	// Upload stores the blob and records its metadata row.
	Upload(ctx context.Context, uid int64, req *UploadRequest, content io.Reader) (*wiki.Attachment, error)

	// Download streams an attachment's blob. The caller must close it.
	Download(ctx context.Context, uid int64, attachmentID int64) (io.ReadCloser, *wiki.Attachment, error)

	// ListArticleAttachments lists metadata for an article's attachments.
	ListArticleAttachments(ctx context.Context, uid int64, spaceID, nodeID, articleID int64) ([]wiki.Attachment, error)

	// AttachToArticle links previously uploaded attachments to an article.
	// Invoked after article creation; failures are logged by the caller and
	// never fail the create.
	AttachToArticle(ctx context.Context, spaceID, nodeID, articleID int64, attachmentIDs []int64) error
}

// UploadRequest describes an incoming attachment.
type UploadRequest struct {
	SpaceID   int64  `json:"spaceId"`
	NodeID    int64  `json:"nodeId"`
	ArticleID int64  `json:"articleId"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
}
