package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// ArticleService manages the ordered article list of a tree node. Updates
// follow the same version-check-then-commit discipline as the tree engine,
// but each article carries its own version token.
type ArticleService interface {
	// GetArticles lists a node's live articles ordered by position.
	GetArticles(ctx context.Context, uid int64, spaceID, nodeID int64) ([]wiki.Article, error)

	// GetVersions lists id/version pairs for a node's live articles.
	GetVersions(ctx context.Context, uid int64, spaceID, nodeID int64) ([]wiki.ArticleVersion, error)

	// AddArticle creates an article and places it after PrevArticleID
	// (0 places it first).
	AddArticle(ctx context.Context, uid int64, req *AddArticleRequest) (*wiki.Article, error)

	// UpdateArticle rewrites content, snapshotting the prior state into
	// history and rotating the version, all in one atomic unit.
	UpdateArticle(ctx context.Context, uid int64, req *UpdateArticleRequest) (string, error)

	// RemoveArticle soft-deletes with a version check. Removing an article
	// that is already deleted succeeds when the presented version matches
	// what the article had before deletion.
	RemoveArticle(ctx context.Context, uid int64, req *RemoveArticleRequest) error

	// MoveArticle reorders an article after a predecessor within its node.
	MoveArticle(ctx context.Context, uid int64, req *MoveArticleRequest) error

	// MoveArticleToAnotherNode reparents an article, appending at the
	// destination then placing it after PrevArticleID.
	MoveArticleToAnotherNode(ctx context.Context, uid int64, req *MoveArticleToNodeRequest) error

	// SetArticleLevel updates the pin/priority marker. Not version-guarded.
	SetArticleLevel(ctx context.Context, uid int64, req *SetLevelRequest) error

	// GetHistory lists an article's snapshots, most recent first.
	GetHistory(ctx context.Context, uid int64, spaceID, nodeID, articleID int64) ([]wiki.ArticleHistory, error)
}

// AddArticleRequest creates an article on a node.
type AddArticleRequest struct {
	SpaceID       int64               `json:"spaceId"`
	NodeID        int64               `json:"nodeId"`
	Type          int                 `json:"type"`
	Content       wiki.ArticleContent `json:"content"`
	PrevArticleID int64               `json:"prevArticleId"`
	AttachmentIDs []int64             `json:"attachmentIds,omitempty"`
}

// UpdateArticleRequest rewrites an article's content.
type UpdateArticleRequest struct {
	SpaceID        int64               `json:"spaceId"`
	NodeID         int64               `json:"nodeId"`
	ArticleID      int64               `json:"articleId"`
	ArticleVersion string              `json:"articleVersion"`
	Content        wiki.ArticleContent `json:"content"`
}

// RemoveArticleRequest soft-deletes an article.
type RemoveArticleRequest struct {
	SpaceID        int64  `json:"spaceId"`
	NodeID         int64  `json:"nodeId"`
	ArticleID      int64  `json:"articleId"`
	ArticleVersion string `json:"articleVersion"`
}

// MoveArticleRequest reorders an article. PrevArticleID 0 means first.
type MoveArticleRequest struct {
	SpaceID       int64 `json:"spaceId"`
	NodeID        int64 `json:"nodeId"`
	ArticleID     int64 `json:"articleId"`
	PrevArticleID int64 `json:"prevArticleId"`
}

// MoveArticleToNodeRequest reparents an article to a different node.
type MoveArticleToNodeRequest struct {
	SpaceID       int64 `json:"spaceId"`
	NodeID        int64 `json:"nodeId"`
	ArticleID     int64 `json:"articleId"`
	NewNodeID     int64 `json:"newNodeId"`
	PrevArticleID int64 `json:"prevArticleId"`
}

// SetLevelRequest updates an article's level marker.
type SetLevelRequest struct {
	SpaceID   int64 `json:"spaceId"`
	NodeID    int64 `json:"nodeId"`
	ArticleID int64 `json:"articleId"`
	Level     int   `json:"level"`
}
