package wiki

import "time"

// RootPid is the sentinel parent id marking a tree's root node.
// Exactly one node per (space, tree) carries it.
const RootPid int64 = 0

// Well-known tree ids within a space.
const (
	TreeMain  int64 = 1
	TreeTrash int64 = 2
)

// Node type tags.
const (
	NodeTypeArticlePage = 1
	NodeTypeDiscussion  = 2
)

// TreeNode is one position in a space's tree. Version is populated on the
// root node only and stands for the version of the entire tree: every
// structural mutation refreshes it, so a caller holding a stale version
// fails fast instead of corrupting structure.
type TreeNode struct {
	ID      int64     `json:"id"`
	SpaceID int64     `json:"spaceId"`
	TreeID  int64     `json:"treeId"`
	Pid     int64     `json:"pid"`
	Type    int       `json:"type"`
	Title   string    `json:"title"`
	Pos     int       `json:"pos"`
	Version string    `json:"version,omitempty"`
	Deleted bool      `json:"-"`
	Ctime   time.Time `json:"ctime"`
	Mtime   time.Time `json:"mtime"`
}

// IsRoot reports whether the node is its tree's root.
func (n *TreeNode) IsRoot() bool {
	return n.Pid == RootPid
}

// TreeView is the nested form of a tree, materialized from the flat node
// set for API responses.
type TreeView struct {
	TreeNode
	Children []*TreeView `json:"children,omitempty"`
}

// NodeUpdate is a tagged partial update for one node. Only the non-nil
// fields are written. Updates are applied in order inside a single
// transaction; a partial application would corrupt ordering invariants,
// so the store must treat the batch as all-or-nothing.
type NodeUpdate struct {
	NodeID  int64
	Title   *string
	Pos     *int
	Pid     *int64
	TreeID  *int64
	Deleted *bool
}

// NewPosUpdate builds the common position-only update.
func NewPosUpdate(nodeID int64, pos int) NodeUpdate {
	return NodeUpdate{NodeID: nodeID, Pos: &pos}
}

// NewMoveUpdate builds the reparent update for a moved node.
func NewMoveUpdate(nodeID, pid int64, pos int) NodeUpdate {
	return NodeUpdate{NodeID: nodeID, Pid: &pid, Pos: &pos}
}

// NewDeletedUpdate builds a soft-delete or restore update.
func NewDeletedUpdate(nodeID int64, deleted bool) NodeUpdate {
	return NodeUpdate{NodeID: nodeID, Deleted: &deleted}
}
