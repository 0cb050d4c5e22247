package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// SpaceRepository is the persistence contract for spaces and memberships.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space *wiki.Space) error
	GetSpace(ctx context.Context, spaceID int64) (*wiki.Space, error)
	UpdateSpace(ctx context.Context, space *wiki.Space) error
	ListSpacesForUser(ctx context.Context, uid int64) ([]wiki.Space, error)

	AddMember(ctx context.Context, member *wiki.SpaceMember) error
	GetMember(ctx context.Context, spaceID, uid int64) (*wiki.SpaceMember, error)
	SetMemberRole(ctx context.Context, spaceID, uid int64, role int) error
	RemoveMember(ctx context.Context, spaceID, uid int64) error
	ListMembers(ctx context.Context, spaceID int64) ([]wiki.SpaceMember, error)
}

// AttachmentRepository is the persistence contract for attachment metadata.
type AttachmentRepository interface {
	InsertAttachment(ctx context.Context, attachment *wiki.Attachment) error
	GetAttachment(ctx context.Context, attachmentID int64) (*wiki.Attachment, error)
	ListArticleAttachments(ctx context.Context, spaceID, nodeID, articleID int64) ([]wiki.Attachment, error)

	// LinkToArticle points existing attachments at an article. Used by the
	// article engine after a create; best-effort from the caller's view.
	LinkToArticle(ctx context.Context, spaceID, nodeID, articleID int64, attachmentIDs []int64) error
}
