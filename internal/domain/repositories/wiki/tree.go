package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// TreeRepository is the persistence contract for tree nodes. All methods
// participate in a context-carried transaction when one is present.
type TreeRepository interface {
	// ListNodes returns all nodes of one tree in the given deletion state,
	// ordered by pos ascending.
	ListNodes(ctx context.Context, spaceID, treeID int64, deleted bool) ([]wiki.TreeNode, error)

	// GetNode fetches a single live node, or nil if absent or deleted.
	GetNode(ctx context.Context, spaceID, treeID, nodeID int64) (*wiki.TreeNode, error)

	// FindNode fetches a live node by id alone, whichever tree of the space
	// it currently sits in. Node ids are unique within a space, so callers
	// that only hold a node id (the article layer) resolve through this.
	FindNode(ctx context.Context, spaceID, nodeID int64) (*wiki.TreeNode, error)

	// GetRoot fetches the tree's root node (pid = 0), or nil if absent.
	GetRoot(ctx context.Context, spaceID, treeID int64) (*wiki.TreeNode, error)

	// InsertNode persists a new node and fills in its generated id.
	InsertNode(ctx context.Context, node *wiki.TreeNode) error

	// ApplyUpdates applies a batch of partial node updates. Each update must
	// affect exactly one row; the batch is expected to run inside a
	// transaction so it is all-or-nothing.
	ApplyUpdates(ctx context.Context, spaceID, treeID int64, updates []wiki.NodeUpdate) error

	// CompareAndSwapRootVersion atomically replaces the root's version only
	// if it still equals expected. Returns false when another writer won the
	// race; the caller maps that to a version-conflict error.
	CompareAndSwapRootVersion(ctx context.Context, spaceID, treeID int64, expected, next string) (bool, error)

	// RetagTree moves the given nodes to another tree within the same space.
	RetagTree(ctx context.Context, spaceID int64, nodeIDs []int64, newTreeID int64) error
}
