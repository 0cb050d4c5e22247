package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// TreeService is the hierarchical ordered-tree mutation engine. Every
// mutation is optimistic: the caller presents the tree version it loaded,
// and the commit succeeds only if that version is still current.
type TreeService interface {
	// GetTree loads the live tree as a nested structure.
	GetTree(ctx context.Context, uid int64, spaceID, treeID int64) (*wiki.TreeView, error)

	// GetTreeVersion returns the tree's current version token.
	GetTreeVersion(ctx context.Context, uid int64, spaceID, treeID int64) (string, error)

	// AppendChildNode adds a node as the last child of a parent.
	AppendChildNode(ctx context.Context, uid int64, req *AppendNodeRequest) (*NodeResult, error)

	// RenameNode retitles a non-root node.
	RenameNode(ctx context.Context, uid int64, req *RenameNodeRequest) (string, error)

	// MoveNode reparents and/or reorders a non-root node. Moving a node to
	// the slot it already occupies is a silent no-op without a version bump.
	MoveNode(ctx context.Context, uid int64, req *MoveNodeRequest) (string, error)

	// RemoveNodeRecursively soft-deletes a node and its whole subtree.
	RemoveNodeRecursively(ctx context.Context, uid int64, req *RemoveNodeRequest) (string, error)

	// RestoreNodeRecursively undeletes a trashed node and the deleted
	// subtree below it.
	RestoreNodeRecursively(ctx context.Context, uid int64, req *RemoveNodeRequest) (string, error)

	// GetTrashTree lists soft-deleted nodes grouped under a virtual root.
	GetTrashTree(ctx context.Context, uid int64, spaceID, treeID int64) (*wiki.TreeView, error)

	// MoveNodeToAnotherTree reparents a subtree into a different tree of the
	// same space. Both trees' versions are checked and bumped atomically.
	MoveNodeToAnotherTree(ctx context.Context, uid int64, req *MoveNodeToTreeRequest) (*CrossTreeResult, error)
}

// AppendNodeRequest creates a new child node.
type AppendNodeRequest struct {
	SpaceID     int64  `json:"spaceId"`
	TreeID      int64  `json:"treeId"`
	TreeVersion string `json:"treeVersion"`
	Pid         int64  `json:"pid"`
	Title       string `json:"title"`
	Type        int    `json:"type"`
}

// NodeResult reports a newly created node and the tree version after the
// mutation.
type NodeResult struct {
	NodeID      int64  `json:"nodeId"`
	TreeVersion string `json:"treeVersion"`
}

// RenameNodeRequest retitles a node.
type RenameNodeRequest struct {
	SpaceID     int64  `json:"spaceId"`
	TreeID      int64  `json:"treeId"`
	TreeVersion string `json:"treeVersion"`
	NodeID      int64  `json:"nodeId"`
	NewTitle    string `json:"newTitle"`
}

// MoveNodeRequest reparents/reorders a node. NewIndex addresses the slot
// among the new parent's children; index == child count appends.
type MoveNodeRequest struct {
	SpaceID     int64  `json:"spaceId"`
	TreeID      int64  `json:"treeId"`
	TreeVersion string `json:"treeVersion"`
	NodeID      int64  `json:"nodeId"`
	NewPid      int64  `json:"newPid"`
	NewIndex    int    `json:"newIndex"`
}

// RemoveNodeRequest soft-deletes or restores a subtree.
type RemoveNodeRequest struct {
	SpaceID     int64  `json:"spaceId"`
	TreeID      int64  `json:"treeId"`
	TreeVersion string `json:"treeVersion"`
	NodeID      int64  `json:"nodeId"`
}

// MoveNodeToTreeRequest moves a subtree into another tree of the same
// space. Both tree versions must match for the move to commit.
type MoveNodeToTreeRequest struct {
	SpaceID        int64  `json:"spaceId"`
	SrcTreeID      int64  `json:"srcTreeId"`
	SrcTreeVersion string `json:"srcTreeVersion"`
	DstTreeID      int64  `json:"dstTreeId"`
	DstTreeVersion string `json:"dstTreeVersion"`
	NodeID         int64  `json:"nodeId"`
	NewPid         int64  `json:"newPid"`
	NewIndex       int    `json:"newIndex"`
}

// CrossTreeResult reports both trees' versions after a cross-tree move.
type CrossTreeResult struct {
	SrcTreeVersion string `json:"srcTreeVersion"`
	DstTreeVersion string `json:"dstTreeVersion"`
}
