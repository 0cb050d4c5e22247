package wiki

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/wiki"
	"inkwell/internal/domain/repositories"
	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/search"
)

// fakeTreeRepo keeps nodes in memory and mimics the conditional-update
// semantics of the real store.
type fakeTreeRepo struct {
	seq   int64
	nodes map[int64]*models.TreeNode
}

func newFakeTreeRepo(nodes ...models.TreeNode) *fakeTreeRepo {
	r := &fakeTreeRepo{seq: 100, nodes: make(map[int64]*models.TreeNode)}
	for i := range nodes {
		n := nodes[i]
		r.nodes[n.ID] = &n
	}
	return r
}

func (r *fakeTreeRepo) ListNodes(_ context.Context, spaceID, treeID int64, deleted bool) ([]models.TreeNode, error) {
	var out []models.TreeNode
	for _, n := range r.nodes {
		if n.SpaceID == spaceID && n.TreeID == treeID && n.Deleted == deleted {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out, nil
}

func (r *fakeTreeRepo) GetNode(_ context.Context, spaceID, treeID, nodeID int64) (*models.TreeNode, error) {
	n, ok := r.nodes[nodeID]
	if !ok || n.SpaceID != spaceID || n.TreeID != treeID || n.Deleted {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (r *fakeTreeRepo) FindNode(_ context.Context, spaceID, nodeID int64) (*models.TreeNode, error) {
	n, ok := r.nodes[nodeID]
	if !ok || n.SpaceID != spaceID || n.Deleted {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (r *fakeTreeRepo) GetRoot(_ context.Context, spaceID, treeID int64) (*models.TreeNode, error) {
	for _, n := range r.nodes {
		if n.SpaceID == spaceID && n.TreeID == treeID && n.IsRoot() {
			copied := *n
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTreeRepo) InsertNode(_ context.Context, node *models.TreeNode) error {
	r.seq++
	node.ID = r.seq
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *fakeTreeRepo) ApplyUpdates(_ context.Context, spaceID, treeID int64, updates []models.NodeUpdate) error {
	for _, u := range updates {
		n, ok := r.nodes[u.NodeID]
		if !ok || n.SpaceID != spaceID || n.TreeID != treeID {
			return errors.New("update matched no row")
		}
		if u.Title != nil {
			n.Title = *u.Title
		}
		if u.Pos != nil {
			n.Pos = *u.Pos
		}
		if u.Pid != nil {
			n.Pid = *u.Pid
		}
		if u.TreeID != nil {
			n.TreeID = *u.TreeID
		}
		if u.Deleted != nil {
			n.Deleted = *u.Deleted
		}
	}
	return nil
}

func (r *fakeTreeRepo) CompareAndSwapRootVersion(_ context.Context, spaceID, treeID int64, expected, next string) (bool, error) {
	for _, n := range r.nodes {
		if n.SpaceID == spaceID && n.TreeID == treeID && n.IsRoot() {
			if n.Version != expected {
				return false, nil
			}
			n.Version = next
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTreeRepo) RetagTree(_ context.Context, spaceID int64, nodeIDs []int64, newTreeID int64) error {
	for _, id := range nodeIDs {
		n, ok := r.nodes[id]
		if !ok || n.SpaceID != spaceID {
			return errors.New("retag matched no row")
		}
		n.TreeID = newTreeID
	}
	return nil
}

// fakeTxManager snapshots the repo before running fn and restores it when
// fn fails, so conflict losers observably leave no trace.
type fakeTxManager struct {
	repo *fakeTreeRepo
}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	snapshot := make(map[int64]*models.TreeNode, len(m.repo.nodes))
	for id, n := range m.repo.nodes {
		copied := *n
		snapshot[id] = &copied
	}
	seq := m.repo.seq
	if err := fn(ctx); err != nil {
		m.repo.nodes = snapshot
		m.repo.seq = seq
		return err
	}
	return nil
}

type fakeGate struct {
	read, write bool
}

func (g *fakeGate) CanRead(context.Context, int64, int64) (bool, error)  { return g.read, nil }
func (g *fakeGate) CanWrite(context.Context, int64, int64) (bool, error) { return g.write, nil }
func (g *fakeGate) CanAdminister(context.Context, int64, int64) (bool, error) {
	return g.write, nil
}

func newTestTreeService(repo *fakeTreeRepo) wikiSvc.TreeService {
	return NewTreeService(
		repo,
		&fakeTxManager{repo: repo},
		&fakeGate{read: true, write: true},
		search.Nop{},
		slog.New(slog.DiscardHandler),
	)
}

func rootNode(id int64, version string) models.TreeNode {
	return models.TreeNode{ID: id, SpaceID: 1, TreeID: 1, Pid: models.RootPid, Title: "space", Version: version}
}

func childNode(id, pid int64, title string, pos int) models.TreeNode {
	return models.TreeNode{ID: id, SpaceID: 1, TreeID: 1, Pid: pid, Title: title, Pos: pos}
}

func TestAppendChildNode(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"))
	svc := newTestTreeService(repo)

	res, err := svc.AppendChildNode(context.Background(), 7, &wikiSvc.AppendNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", Pid: 1, Title: "first", Type: models.NodeTypeArticlePage,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if res.TreeVersion == "v1" {
		t.Error("version was not rotated")
	}
	node := repo.nodes[res.NodeID]
	if node == nil {
		t.Fatal("node not persisted")
	}
	if node.Pos != 1000 {
		t.Errorf("first child pos = %d, want 1000", node.Pos)
	}

	// A second append lands after the first with the standard gap.
	res2, err := svc.AppendChildNode(context.Background(), 7, &wikiSvc.AppendNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: res.TreeVersion, Pid: 1, Title: "second", Type: models.NodeTypeArticlePage,
	})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if got := repo.nodes[res2.NodeID].Pos; got != 2000 {
		t.Errorf("second child pos = %d, want 2000", got)
	}
}

func TestAppendChildNode_StaleVersion(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v2"))
	svc := newTestTreeService(repo)

	_, err := svc.AppendChildNode(context.Background(), 7, &wikiSvc.AppendNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", Pid: 1, Title: "late", Type: models.NodeTypeArticlePage,
	})
	if !errors.Is(err, domain.ErrTreeUpdated) {
		t.Fatalf("err = %v, want ErrTreeUpdated", err)
	}
	if len(repo.nodes) != 1 {
		t.Error("conflict loser inserted a node")
	}
	if repo.nodes[1].Version != "v2" {
		t.Error("conflict loser changed the version")
	}
}

func TestAppendChildNode_MissingParent(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"))
	svc := newTestTreeService(repo)

	_, err := svc.AppendChildNode(context.Background(), 7, &wikiSvc.AppendNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", Pid: 99, Title: "orphan", Type: models.NodeTypeArticlePage,
	})
	if !errors.Is(err, domain.ErrTreeUpdated) {
		t.Fatalf("err = %v, want ErrTreeUpdated", err)
	}
}

func TestRenameNode(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"), childNode(2, 1, "old", 1000))
	svc := newTestTreeService(repo)

	newVersion, err := svc.RenameNode(context.Background(), 7, &wikiSvc.RenameNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 2, NewTitle: "new",
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if repo.nodes[2].Title != "new" {
		t.Error("title not updated")
	}
	if repo.nodes[1].Version != newVersion || newVersion == "v1" {
		t.Error("version not rotated")
	}
}

func TestRenameNode_RootIsImmutable(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"))
	svc := newTestTreeService(repo)

	_, err := svc.RenameNode(context.Background(), 7, &wikiSvc.RenameNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 1, NewTitle: "hijack",
	})
	if !errors.Is(err, domain.ErrIllegalOperation) {
		t.Fatalf("err = %v, want ErrIllegalOperation", err)
	}
	if repo.nodes[1].Version != "v1" {
		t.Error("rejected operation must not bump the version")
	}
}

func TestMoveNode_ToFront(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 1, "B", 2000),
	)
	svc := newTestTreeService(repo)

	_, err := svc.MoveNode(context.Background(), 7, &wikiSvc.MoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 3, NewPid: 1, NewIndex: 0,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := repo.nodes[3].Pos; got != 0 {
		t.Errorf("moved node pos = %d, want 0", got)
	}
	if got := repo.nodes[2].Pos; got != 1000 {
		t.Errorf("untouched sibling pos = %d, want 1000", got)
	}
}

func TestMoveNode_SameSlotIsNoOp(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 1, "B", 2000),
	)
	svc := newTestTreeService(repo)

	got, err := svc.MoveNode(context.Background(), 7, &wikiSvc.MoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 3, NewPid: 1, NewIndex: 1,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got != "v1" {
		t.Errorf("no-op returned version %q, want the current one", got)
	}
	if repo.nodes[1].Version != "v1" {
		t.Error("no-op must not invalidate other editors' tokens")
	}
}

func TestMoveNode_IntoOwnSubtree(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 2, "A1", 1000),
		childNode(4, 3, "A1a", 1000),
	)
	svc := newTestTreeService(repo)

	for _, newPid := range []int64{2, 4} {
		_, err := svc.MoveNode(context.Background(), 7, &wikiSvc.MoveNodeRequest{
			SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 2, NewPid: newPid, NewIndex: 0,
		})
		if !errors.Is(err, domain.ErrIllegalOperation) {
			t.Errorf("newPid=%d: err = %v, want ErrIllegalOperation", newPid, err)
		}
	}
}

func TestMoveNode_ReparentWithRenumber(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 1, "B", 2000),
		childNode(4, 2, "A1", 10),
		childNode(5, 2, "A2", 11),
	)
	svc := newTestTreeService(repo)

	// Land B between A1 and A2; the packed pair forces a renumber.
	newVersion, err := svc.MoveNode(context.Background(), 7, &wikiSvc.MoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 3, NewPid: 2, NewIndex: 1,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if repo.nodes[3].Pid != 2 {
		t.Error("node not reparented")
	}
	if got := repo.nodes[3].Pos; got != 1010 {
		t.Errorf("moved node pos = %d, want 1010", got)
	}
	if got := repo.nodes[5].Pos; got != 2011 {
		t.Errorf("shifted sibling pos = %d, want 2011", got)
	}
	if repo.nodes[1].Version != newVersion {
		t.Error("version not rotated")
	}
}

func TestRemoveAndRestoreSubtree(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 2, "A1", 1000),
		childNode(4, 3, "A1a", 1000),
		childNode(5, 1, "B", 2000),
	)
	svc := newTestTreeService(repo)

	v2, err := svc.RemoveNodeRecursively(context.Background(), 7, &wikiSvc.RemoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 2,
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, id := range []int64{2, 3, 4} {
		if !repo.nodes[id].Deleted {
			t.Errorf("node %d not soft-deleted", id)
		}
	}
	if repo.nodes[5].Deleted {
		t.Error("unrelated sibling was deleted")
	}

	if _, err := svc.RestoreNodeRecursively(context.Background(), 7, &wikiSvc.RemoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: v2, NodeID: 2,
	}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, id := range []int64{2, 3, 4} {
		if repo.nodes[id].Deleted {
			t.Errorf("node %d not restored", id)
		}
	}
}

func TestRemoveNodeRecursively_RootRejected(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"))
	svc := newTestTreeService(repo)

	_, err := svc.RemoveNodeRecursively(context.Background(), 7, &wikiSvc.RemoveNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", NodeID: 1,
	})
	if !errors.Is(err, domain.ErrIllegalOperation) {
		t.Fatalf("err = %v, want ErrIllegalOperation", err)
	}
}

func TestMoveNodeToAnotherTree(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "src-v1"),
		childNode(2, 1, "A", 1000),
		childNode(3, 2, "A1", 1000),
		models.TreeNode{ID: 10, SpaceID: 1, TreeID: 2, Pid: models.RootPid, Title: "dst", Version: "dst-v1"},
		models.TreeNode{ID: 11, SpaceID: 1, TreeID: 2, Pid: 10, Title: "X", Pos: 1000},
	)
	svc := newTestTreeService(repo)

	res, err := svc.MoveNodeToAnotherTree(context.Background(), 7, &wikiSvc.MoveNodeToTreeRequest{
		SpaceID: 1, SrcTreeID: 1, SrcTreeVersion: "src-v1",
		DstTreeID: 2, DstTreeVersion: "dst-v1",
		NodeID: 2, NewPid: 10, NewIndex: 1,
	})
	if err != nil {
		t.Fatalf("cross-tree move: %v", err)
	}
	for _, id := range []int64{2, 3} {
		if repo.nodes[id].TreeID != 2 {
			t.Errorf("node %d not retagged to destination tree", id)
		}
	}
	if repo.nodes[2].Pid != 10 {
		t.Error("node not reparented under destination parent")
	}
	if got := repo.nodes[2].Pos; got != 2000 {
		t.Errorf("moved node pos = %d, want 2000", got)
	}
	if repo.nodes[1].Version != res.SrcTreeVersion || repo.nodes[10].Version != res.DstTreeVersion {
		t.Error("tree versions not rotated")
	}
}

func TestMoveNodeToAnotherTree_DstConflictRollsBackBoth(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "src-v1"),
		childNode(2, 1, "A", 1000),
		models.TreeNode{ID: 10, SpaceID: 1, TreeID: 2, Pid: models.RootPid, Title: "dst", Version: "dst-v2"},
	)
	svc := newTestTreeService(repo)

	_, err := svc.MoveNodeToAnotherTree(context.Background(), 7, &wikiSvc.MoveNodeToTreeRequest{
		SpaceID: 1, SrcTreeID: 1, SrcTreeVersion: "src-v1",
		DstTreeID: 2, DstTreeVersion: "dst-v1",
		NodeID: 2, NewPid: 10, NewIndex: 0,
	})
	if !errors.Is(err, domain.ErrTreeUpdated) {
		t.Fatalf("err = %v, want ErrTreeUpdated", err)
	}
	if repo.nodes[1].Version != "src-v1" {
		t.Error("source version change was not rolled back")
	}
	if repo.nodes[2].TreeID != 1 {
		t.Error("node retag was not rolled back")
	}
}

func TestGetTree(t *testing.T) {
	repo := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(2, 1, "B", 2000),
		childNode(3, 1, "A", 1000),
		childNode(4, 3, "A1", 1000),
	)
	svc := newTestTreeService(repo)

	view, err := svc.GetTree(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(view.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(view.Children))
	}
	if view.Children[0].Title != "A" || view.Children[1].Title != "B" {
		t.Errorf("children out of order: %q, %q", view.Children[0].Title, view.Children[1].Title)
	}
	if len(view.Children[0].Children) != 1 || view.Children[0].Children[0].Title != "A1" {
		t.Error("nested child missing")
	}
}

func TestGetTree_Missing(t *testing.T) {
	repo := newFakeTreeRepo()
	svc := newTestTreeService(repo)

	if _, err := svc.GetTree(context.Background(), 7, 1, 1); !errors.Is(err, domain.ErrTreeNotExist) {
		t.Fatalf("err = %v, want ErrTreeNotExist", err)
	}
}

func TestTreeService_PermissionDenied(t *testing.T) {
	repo := newFakeTreeRepo(rootNode(1, "v1"))
	svc := NewTreeService(
		repo,
		&fakeTxManager{repo: repo},
		&fakeGate{read: false, write: false},
		search.Nop{},
		slog.New(slog.DiscardHandler),
	)

	if _, err := svc.GetTree(context.Background(), 7, 1, 1); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("read err = %v, want ErrPermissionDenied", err)
	}
	_, err := svc.AppendChildNode(context.Background(), 7, &wikiSvc.AppendNodeRequest{
		SpaceID: 1, TreeID: 1, TreeVersion: "v1", Pid: 1, Title: "n", Type: models.NodeTypeArticlePage,
	})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("write err = %v, want ErrPermissionDenied", err)
	}
}
