package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// ArticleRepository is the persistence contract for articles and their
// history. All methods participate in a context-carried transaction when
// one is present.
type ArticleRepository interface {
	// ListArticles returns a node's live articles ordered by pos ascending.
	ListArticles(ctx context.Context, spaceID, nodeID int64) ([]wiki.Article, error)

	// ListVersions returns id/version pairs for a node's live articles,
	// ordered by pos ascending.
	ListVersions(ctx context.Context, spaceID, nodeID int64) ([]wiki.ArticleVersion, error)

	// GetArticle fetches one article regardless of deletion state, or nil if
	// it was never created. Callers distinguish deleted from live.
	GetArticle(ctx context.Context, spaceID, nodeID, articleID int64) (*wiki.Article, error)

	// InsertArticle persists a new article and fills in its generated id.
	InsertArticle(ctx context.Context, article *wiki.Article) error

	// UpdateContent conditionally rewrites an article's content and version:
	// the write applies only while the stored version equals expected.
	// Returns false when the row-count check shows another writer won.
	UpdateContent(ctx context.Context, spaceID, nodeID, articleID int64, expected string, content wiki.ArticleContent, next string) (bool, error)

	// InsertHistory appends a pre-update snapshot. History is append-only.
	InsertHistory(ctx context.Context, history *wiki.ArticleHistory) error

	// ListHistory returns an article's snapshots, most recent first.
	ListHistory(ctx context.Context, articleID int64) ([]wiki.ArticleHistory, error)

	// ModifyPositions applies a renumbering plan to a node's articles.
	ModifyPositions(ctx context.Context, spaceID, nodeID int64, poses map[int64]int) error

	// SetLevel updates the priority marker. Deliberately unconditional.
	SetLevel(ctx context.Context, spaceID, nodeID, articleID int64, level int) error

	// SetNode reparents an article to another node with a new position.
	SetNode(ctx context.Context, spaceID, articleID, newNodeID int64, pos int) error

	// SoftDelete conditionally marks an article deleted while its version
	// equals expected. Returns false on a version race.
	SoftDelete(ctx context.Context, spaceID, nodeID, articleID int64, expected string) (bool, error)
}
