package wiki

import (
	"testing"
	"time"
)

func node(id, pid int64, title string, pos int) TreeNode {
	return TreeNode{ID: id, SpaceID: 1, TreeID: 1, Pid: pid, Title: title, Pos: pos}
}

func TestNewForestView(t *testing.T) {
	forest := NewForestView([]TreeNode{
		node(1, RootPid, "root", 0),
		node(3, 1, "B", 2000),
		node(2, 1, "A", 1000),
		node(4, 2, "A1", 1000),
	})

	if forest.Root() == nil || forest.Root().ID != 1 {
		t.Fatal("root not identified")
	}

	children := forest.Children(1)
	if len(children) != 2 {
		t.Fatalf("root children = %d, want 2", len(children))
	}
	if children[0].ID != 2 || children[1].ID != 3 {
		t.Errorf("children not ordered by pos: %d, %d", children[0].ID, children[1].ID)
	}
	if forest.Node(4) == nil {
		t.Error("lookup by id failed")
	}
	if forest.Node(99) != nil {
		t.Error("unknown id must return nil")
	}
}

func TestForestView_NoRoot(t *testing.T) {
	forest := NewForestView([]TreeNode{node(2, 1, "orphan", 1000)})
	if forest.Root() != nil {
		t.Error("view without a pid-0 node must have nil root")
	}
}

func TestForestView_Descendants(t *testing.T) {
	forest := NewForestView([]TreeNode{
		node(1, RootPid, "root", 0),
		node(2, 1, "A", 1000),
		node(3, 2, "A1", 1000),
		node(4, 3, "A1a", 1000),
		node(5, 1, "B", 2000),
	})

	got := forest.Descendants(2)
	want := map[int64]bool{3: true, 4: true}
	if len(got) != len(want) {
		t.Fatalf("descendants = %v, want ids 3 and 4", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected descendant %d", id)
		}
	}

	if forest.Descendants(4) != nil {
		t.Error("leaf must have no descendants")
	}
}

func TestForestView_IsDescendant(t *testing.T) {
	forest := NewForestView([]TreeNode{
		node(1, RootPid, "root", 0),
		node(2, 1, "A", 1000),
		node(3, 2, "A1", 1000),
		node(4, 1, "B", 2000),
	})

	if !forest.IsDescendant(2, 3) {
		t.Error("direct child must count as descendant")
	}
	if forest.IsDescendant(2, 4) {
		t.Error("sibling is not a descendant")
	}
	if forest.IsDescendant(2, 2) {
		t.Error("a node is not its own descendant")
	}
}

func TestForestView_SiblingIndex(t *testing.T) {
	forest := NewForestView([]TreeNode{
		node(1, RootPid, "root", 0),
		node(2, 1, "A", 1000),
		node(3, 1, "B", 2000),
		node(4, 1, "C", 3000),
	})

	for i, id := range []int64{2, 3, 4} {
		if got := forest.SiblingIndex(id); got != i {
			t.Errorf("SiblingIndex(%d) = %d, want %d", id, got, i)
		}
	}
	if forest.SiblingIndex(99) != -1 {
		t.Error("unknown node must report -1")
	}
}

func TestForestView_Materialize(t *testing.T) {
	forest := NewForestView([]TreeNode{
		node(1, RootPid, "root", 0),
		node(2, 1, "A", 1000),
		node(3, 2, "A1", 1000),
	})

	view := forest.Materialize()
	if view == nil || view.ID != 1 {
		t.Fatal("materialized view missing root")
	}
	if len(view.Children) != 1 || view.Children[0].ID != 2 {
		t.Fatal("first level wrong")
	}
	if len(view.Children[0].Children) != 1 || view.Children[0].Children[0].ID != 3 {
		t.Fatal("second level wrong")
	}
}

func TestBuildTrashForest(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	withMtime := func(n TreeNode, offset time.Duration) TreeNode {
		n.Deleted = true
		n.Mtime = base.Add(offset)
		return n
	}

	// Nodes 2 and 5 hang from live parents; 3 and 4 form a deleted chain
	// under 2.
	trash := BuildTrashForest([]TreeNode{
		withMtime(node(2, 1, "older entry", 1000), 0),
		withMtime(node(3, 2, "kept child", 1000), time.Minute),
		withMtime(node(4, 3, "kept grandchild", 1000), time.Minute),
		withMtime(node(5, 1, "newer entry", 2000), time.Hour),
	})

	if len(trash.Children) != 2 {
		t.Fatalf("top-level entries = %d, want 2", len(trash.Children))
	}
	if trash.Children[0].ID != 5 || trash.Children[1].ID != 2 {
		t.Errorf("entries not sorted by mtime desc: %d, %d", trash.Children[0].ID, trash.Children[1].ID)
	}

	entry := trash.Children[1]
	if len(entry.Children) != 1 || entry.Children[0].ID != 3 {
		t.Fatal("deleted chain not preserved under its entry")
	}
	if len(entry.Children[0].Children) != 1 || entry.Children[0].Children[0].ID != 4 {
		t.Fatal("grandchild not preserved")
	}
}

func TestBuildTrashForest_Empty(t *testing.T) {
	trash := BuildTrashForest(nil)
	if trash == nil {
		t.Fatal("empty trash must still yield a virtual root")
	}
	if len(trash.Children) != 0 {
		t.Errorf("empty trash has %d entries", len(trash.Children))
	}
}
