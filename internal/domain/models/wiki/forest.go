package wiki

import "sort"

// ForestView is an in-memory index over one tree's flat node set, built
// once per operation and passed to every sub-step that needs structure.
// It is a read-only snapshot; mutations go through the store and a fresh
// view is built on the next operation.
type ForestView struct {
	byID     map[int64]*TreeNode
	children map[int64][]*TreeNode
	root     *TreeNode
}

// NewForestView indexes the given nodes. Siblings are ordered by pos
// ascending. The returned view has a nil Root if no node has pid 0, which
// callers must treat as a missing tree.
func NewForestView(nodes []TreeNode) *ForestView {
	f := &ForestView{
		byID:     make(map[int64]*TreeNode, len(nodes)),
		children: make(map[int64][]*TreeNode),
	}
	for i := range nodes {
		n := &nodes[i]
		f.byID[n.ID] = n
		f.children[n.Pid] = append(f.children[n.Pid], n)
		if n.IsRoot() {
			f.root = n
		}
	}
	for pid := range f.children {
		siblings := f.children[pid]
		sort.SliceStable(siblings, func(i, j int) bool {
			return siblings[i].Pos < siblings[j].Pos
		})
	}
	return f
}

// Root returns the tree's root node, or nil if absent.
func (f *ForestView) Root() *TreeNode {
	return f.root
}

// Node returns the node with the given id, or nil.
func (f *ForestView) Node(id int64) *TreeNode {
	return f.byID[id]
}

// Children returns the node's children ordered by pos ascending.
func (f *ForestView) Children(id int64) []*TreeNode {
	return f.children[id]
}

// Descendants collects the ids of the node's entire subtree, excluding the
// node itself, using an explicit stack over the parent index.
func (f *ForestView) Descendants(id int64) []int64 {
	var out []int64
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range f.children[cur] {
			out = append(out, child.ID)
			stack = append(stack, child.ID)
		}
	}
	return out
}

// IsDescendant reports whether candidate lies inside the subtree rooted at
// id. A node is not its own descendant.
func (f *ForestView) IsDescendant(id, candidate int64) bool {
	if id == candidate {
		return false
	}
	for _, descID := range f.Descendants(id) {
		if descID == candidate {
			return true
		}
	}
	return false
}

// SiblingIndex returns the node's position among its parent's children,
// or -1 if the node is unknown.
func (f *ForestView) SiblingIndex(id int64) int {
	n := f.byID[id]
	if n == nil {
		return -1
	}
	for i, sibling := range f.children[n.Pid] {
		if sibling.ID == id {
			return i
		}
	}
	return -1
}

// Materialize walks the forest from its root and returns the nested tree.
// Returns nil when the view has no root.
func (f *ForestView) Materialize() *TreeView {
	if f.root == nil {
		return nil
	}
	return f.materialize(f.root)
}

func (f *ForestView) materialize(n *TreeNode) *TreeView {
	view := &TreeView{TreeNode: *n}
	for _, child := range f.children[n.ID] {
		view.Children = append(view.Children, f.materialize(child))
	}
	return view
}

// BuildTrashForest reconstructs parent/child relationships among a set of
// soft-deleted nodes. A deleted node whose parent is not itself deleted
// becomes a top-level trash entry; top-level entries are ordered by
// modification time descending (most recently trashed first), and the
// whole forest hangs under a synthesized virtual root.
func BuildTrashForest(deleted []TreeNode) *TreeView {
	byID := make(map[int64]*TreeNode, len(deleted))
	for i := range deleted {
		byID[deleted[i].ID] = &deleted[i]
	}

	children := make(map[int64][]*TreeNode)
	var top []*TreeNode
	for i := range deleted {
		n := &deleted[i]
		if _, parentDeleted := byID[n.Pid]; parentDeleted {
			children[n.Pid] = append(children[n.Pid], n)
		} else {
			top = append(top, n)
		}
	}
	for pid := range children {
		siblings := children[pid]
		sort.SliceStable(siblings, func(i, j int) bool {
			return siblings[i].Pos < siblings[j].Pos
		})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Mtime.After(top[j].Mtime)
	})

	var materialize func(n *TreeNode) *TreeView
	materialize = func(n *TreeNode) *TreeView {
		view := &TreeView{TreeNode: *n}
		for _, child := range children[n.ID] {
			view.Children = append(view.Children, materialize(child))
		}
		return view
	}

	root := &TreeView{}
	for _, n := range top {
		root.Children = append(root.Children, materialize(n))
	}
	return root
}
