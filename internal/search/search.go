// Package search defines the external full-text index contract. The wiki
// engines notify the index after successful commits; notifications are
// best-effort and never roll back the owning transaction.
package search

import "context"

// ObjectType tags what kind of object an index entry describes.
type ObjectType int

const (
	ObjectSpace   ObjectType = 1
	ObjectNode    ObjectType = 2
	ObjectArticle ObjectType = 3
)

// Notifier receives index change notifications. Implementations must be
// safe for concurrent use; errors are for the caller to log, not act on.
type Notifier interface {
	Upsert(ctx context.Context, spaceID int64, objectType ObjectType, objectID int64, title, content string) error
	MarkDeleted(ctx context.Context, spaceID int64, objectType ObjectType, objectID int64) error
}

// Result is one search hit.
type Result struct {
	Type     ObjectType `json:"type"`
	ID       int64      `json:"id"`
	SpaceID  int64      `json:"spaceId"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
}

// Searcher runs queries against the index.
type Searcher interface {
	Search(ctx context.Context, spaceID int64, query string, limit int) ([]Result, error)
}

// Nop is a Notifier and Searcher that does nothing, for deployments
// without a search backend and for tests.
type Nop struct{}

func (Nop) Upsert(context.Context, int64, ObjectType, int64, string, string) error { return nil }
func (Nop) MarkDeleted(context.Context, int64, ObjectType, int64) error            { return nil }
func (Nop) Search(context.Context, int64, string, int) ([]Result, error)           { return nil, nil }
