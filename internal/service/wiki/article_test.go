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

type fakeArticleRepo struct {
	seq      int64
	articles map[int64]*models.Article
	history  []models.ArticleHistory
}

func newFakeArticleRepo(articles ...models.Article) *fakeArticleRepo {
	r := &fakeArticleRepo{seq: 100, articles: make(map[int64]*models.Article)}
	for i := range articles {
		a := articles[i]
		r.articles[a.ID] = &a
	}
	return r
}

func (r *fakeArticleRepo) ListArticles(_ context.Context, spaceID, nodeID int64) ([]models.Article, error) {
	var out []models.Article
	for _, a := range r.articles {
		if a.SpaceID == spaceID && a.NodeID == nodeID && !a.Deleted {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out, nil
}

func (r *fakeArticleRepo) ListVersions(ctx context.Context, spaceID, nodeID int64) ([]models.ArticleVersion, error) {
	articles, _ := r.ListArticles(ctx, spaceID, nodeID)
	out := make([]models.ArticleVersion, 0, len(articles))
	for _, a := range articles {
		out = append(out, models.ArticleVersion{ID: a.ID, Version: a.Version})
	}
	return out, nil
}

func (r *fakeArticleRepo) GetArticle(_ context.Context, spaceID, nodeID, articleID int64) (*models.Article, error) {
	a, ok := r.articles[articleID]
	if !ok || a.SpaceID != spaceID || a.NodeID != nodeID {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeArticleRepo) InsertArticle(_ context.Context, article *models.Article) error {
	r.seq++
	article.ID = r.seq
	copied := *article
	r.articles[article.ID] = &copied
	return nil
}

func (r *fakeArticleRepo) UpdateContent(_ context.Context, spaceID, nodeID, articleID int64, expected string, content models.ArticleContent, next string) (bool, error) {
	a, ok := r.articles[articleID]
	if !ok || a.SpaceID != spaceID || a.NodeID != nodeID || a.Deleted || a.Version != expected {
		return false, nil
	}
	a.Title = content.Title
	a.Body = content.Body
	a.Search = content.Search
	a.Version = next
	return true, nil
}

func (r *fakeArticleRepo) InsertHistory(_ context.Context, history *models.ArticleHistory) error {
	history.ID = int64(len(r.history) + 1)
	r.history = append(r.history, *history)
	return nil
}

func (r *fakeArticleRepo) ListHistory(_ context.Context, articleID int64) ([]models.ArticleHistory, error) {
	var out []models.ArticleHistory
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].ArticleID == articleID {
			out = append(out, r.history[i])
		}
	}
	return out, nil
}

func (r *fakeArticleRepo) ModifyPositions(_ context.Context, spaceID, nodeID int64, poses map[int64]int) error {
	for id, pos := range poses {
		a, ok := r.articles[id]
		if !ok || a.SpaceID != spaceID || a.NodeID != nodeID {
			return errors.New("position update matched no row")
		}
		a.Pos = pos
	}
	return nil
}

func (r *fakeArticleRepo) SetLevel(_ context.Context, spaceID, nodeID, articleID int64, level int) error {
	a, ok := r.articles[articleID]
	if !ok || a.SpaceID != spaceID || a.NodeID != nodeID {
		return errors.New("no such article")
	}
	a.Level = level
	return nil
}

func (r *fakeArticleRepo) SetNode(_ context.Context, spaceID, articleID, newNodeID int64, pos int) error {
	a, ok := r.articles[articleID]
	if !ok || a.SpaceID != spaceID {
		return errors.New("no such article")
	}
	a.NodeID = newNodeID
	a.Pos = pos
	return nil
}

func (r *fakeArticleRepo) SoftDelete(_ context.Context, spaceID, nodeID, articleID int64, expected string) (bool, error) {
	a, ok := r.articles[articleID]
	if !ok || a.SpaceID != spaceID || a.NodeID != nodeID || a.Deleted || a.Version != expected {
		return false, nil
	}
	a.Deleted = true
	return true, nil
}

// articleTxManager snapshots articles and history, restoring both when the
// wrapped function fails.
type articleTxManager struct {
	repo *fakeArticleRepo
}

func (m *articleTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	snapshot := make(map[int64]*models.Article, len(m.repo.articles))
	for id, a := range m.repo.articles {
		copied := *a
		snapshot[id] = &copied
	}
	history := append([]models.ArticleHistory(nil), m.repo.history...)
	seq := m.repo.seq
	if err := fn(ctx); err != nil {
		m.repo.articles = snapshot
		m.repo.history = history
		m.repo.seq = seq
		return err
	}
	return nil
}

func article(id, nodeID int64, title, ver string, pos int) models.Article {
	return models.Article{
		ID: id, SpaceID: 1, NodeID: nodeID,
		Type: models.ArticleTypeRichText, Title: title, Version: ver, Pos: pos,
	}
}

func newTestArticleService(repo *fakeArticleRepo, trees *fakeTreeRepo) wikiSvc.ArticleService {
	return NewArticleService(
		repo,
		trees,
		&articleTxManager{repo: repo},
		&fakeGate{read: true, write: true},
		nil,
		search.Nop{},
		slog.New(slog.DiscardHandler),
	)
}

func liveNode(id int64) *fakeTreeRepo {
	return newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(id, 1, "page", 1000),
	)
}

func TestAddArticle(t *testing.T) {
	repo := newFakeArticleRepo()
	svc := newTestArticleService(repo, liveNode(5))

	got, err := svc.AddArticle(context.Background(), 42, &wikiSvc.AddArticleRequest{
		SpaceID: 1, NodeID: 5, Type: models.ArticleTypeRichText,
		Content: models.ArticleContent{Title: "hello", Body: "world"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	stored := repo.articles[got.ID]
	if stored == nil {
		t.Fatal("article not persisted")
	}
	if stored.Pos != 1000 {
		t.Errorf("first article pos = %d, want 1000", stored.Pos)
	}
	if stored.Author != 42 {
		t.Errorf("author = %d, want 42", stored.Author)
	}
	if stored.Version == "" {
		t.Error("version token not assigned")
	}
}

func TestAddArticle_PlacedFirst(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "existing", "e1", 1000))
	svc := newTestArticleService(repo, liveNode(5))

	got, err := svc.AddArticle(context.Background(), 42, &wikiSvc.AddArticleRequest{
		SpaceID: 1, NodeID: 5, Type: models.ArticleTypeRichText,
		Content: models.ArticleContent{Title: "new first"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.Pos != 0 {
		t.Errorf("pos = %d, want 0 (before the existing 1000)", got.Pos)
	}
}

func TestAddArticle_AfterPredecessor(t *testing.T) {
	repo := newFakeArticleRepo(
		article(10, 5, "A", "a1", 1000),
		article(11, 5, "B", "b1", 2000),
	)
	svc := newTestArticleService(repo, liveNode(5))

	got, err := svc.AddArticle(context.Background(), 42, &wikiSvc.AddArticleRequest{
		SpaceID: 1, NodeID: 5, Type: models.ArticleTypeRichText,
		Content: models.ArticleContent{Title: "between"}, PrevArticleID: 10,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.Pos != 1500 {
		t.Errorf("pos = %d, want 1500", got.Pos)
	}
}

func TestAddArticle_NodeOnSecondaryTree(t *testing.T) {
	// Spaces can carry more than one tree; articles attach to nodes by id
	// no matter which tree the node lives in.
	trees := newFakeTreeRepo(
		rootNode(1, "v1"),
		models.TreeNode{ID: 30, SpaceID: 1, TreeID: 3, Pid: models.RootPid, Title: "notes", Version: "n1"},
		models.TreeNode{ID: 31, SpaceID: 1, TreeID: 3, Pid: 30, Title: "page", Pos: 1000},
	)
	repo := newFakeArticleRepo()
	svc := newTestArticleService(repo, trees)

	got, err := svc.AddArticle(context.Background(), 42, &wikiSvc.AddArticleRequest{
		SpaceID: 1, NodeID: 31, Type: models.ArticleTypeRichText,
		Content: models.ArticleContent{Title: "on the notes tree"},
	})
	if err != nil {
		t.Fatalf("add on secondary-tree node: %v", err)
	}
	if repo.articles[got.ID] == nil {
		t.Fatal("article not persisted")
	}
}

func TestAddArticle_NodeMissing(t *testing.T) {
	svc := newTestArticleService(newFakeArticleRepo(), newFakeTreeRepo(rootNode(1, "v1")))

	_, err := svc.AddArticle(context.Background(), 42, &wikiSvc.AddArticleRequest{
		SpaceID: 1, NodeID: 5, Type: models.ArticleTypeRichText,
		Content: models.ArticleContent{Title: "orphan"},
	})
	if !errors.Is(err, domain.ErrTreeNotExist) {
		t.Fatalf("err = %v, want ErrTreeNotExist", err)
	}
}

func TestUpdateArticle(t *testing.T) {
	a := article(10, 5, "draft", "v1", 1000)
	a.Body = "old body"
	repo := newFakeArticleRepo(a)
	svc := newTestArticleService(repo, liveNode(5))

	newVersion, err := svc.UpdateArticle(context.Background(), 42, &wikiSvc.UpdateArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, ArticleVersion: "v1",
		Content: models.ArticleContent{Title: "final", Body: "new body"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := repo.articles[10]
	if stored.Title != "final" || stored.Body != "new body" {
		t.Error("content not rewritten")
	}
	if stored.Version != newVersion || newVersion == "v1" {
		t.Error("version not rotated")
	}

	// The pre-update state must be captured, exactly once.
	if len(repo.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(repo.history))
	}
	snap := repo.history[0]
	if snap.Title != "draft" || snap.Body != "old body" || snap.Version != "v1" {
		t.Errorf("snapshot holds %q/%q/%q, want the pre-update state", snap.Title, snap.Body, snap.Version)
	}
}

func TestUpdateArticle_StaleVersion(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "current", "v2", 1000))
	svc := newTestArticleService(repo, liveNode(5))

	_, err := svc.UpdateArticle(context.Background(), 42, &wikiSvc.UpdateArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, ArticleVersion: "v1",
		Content: models.ArticleContent{Title: "late edit"},
	})
	if !errors.Is(err, domain.ErrArticleUpdated) {
		t.Fatalf("err = %v, want ErrArticleUpdated", err)
	}
	if repo.articles[10].Title != "current" {
		t.Error("loser's content must not land")
	}
	if len(repo.history) != 0 {
		t.Error("loser must not leave a history row")
	}
}

func TestUpdateArticle_Deleted(t *testing.T) {
	a := article(10, 5, "gone", "v1", 1000)
	a.Deleted = true
	svc := newTestArticleService(newFakeArticleRepo(a), liveNode(5))

	_, err := svc.UpdateArticle(context.Background(), 42, &wikiSvc.UpdateArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, ArticleVersion: "v1",
		Content: models.ArticleContent{Title: "necromancy"},
	})
	if !errors.Is(err, domain.ErrArticleRemoved) {
		t.Fatalf("err = %v, want ErrArticleRemoved", err)
	}
}

func TestRemoveArticle_Idempotent(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "doomed", "v1", 1000))
	svc := newTestArticleService(repo, liveNode(5))

	req := &wikiSvc.RemoveArticleRequest{SpaceID: 1, NodeID: 5, ArticleID: 10, ArticleVersion: "v1"}
	if err := svc.RemoveArticle(context.Background(), 42, req); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !repo.articles[10].Deleted {
		t.Fatal("article not soft-deleted")
	}

	// Retrying with the same token succeeds.
	if err := svc.RemoveArticle(context.Background(), 42, req); err != nil {
		t.Fatalf("retried remove: %v", err)
	}

	// A different token on an already-deleted article is a conflict.
	err := svc.RemoveArticle(context.Background(), 42, &wikiSvc.RemoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, ArticleVersion: "v9",
	})
	if !errors.Is(err, domain.ErrArticleUpdated) {
		t.Fatalf("err = %v, want ErrArticleUpdated", err)
	}
}

func TestMoveArticle(t *testing.T) {
	repo := newFakeArticleRepo(
		article(10, 5, "A", "a1", 1000),
		article(11, 5, "B", "b1", 2000),
		article(12, 5, "C", "c1", 3000),
	)
	svc := newTestArticleService(repo, liveNode(5))

	err := svc.MoveArticle(context.Background(), 42, &wikiSvc.MoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 12, PrevArticleID: 10,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := repo.articles[12].Pos; got != 1500 {
		t.Errorf("moved article pos = %d, want 1500", got)
	}
}

func TestMoveArticle_ToFront(t *testing.T) {
	repo := newFakeArticleRepo(
		article(10, 5, "A", "a1", 1000),
		article(11, 5, "B", "b1", 2000),
	)
	svc := newTestArticleService(repo, liveNode(5))

	err := svc.MoveArticle(context.Background(), 42, &wikiSvc.MoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 11, PrevArticleID: 0,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := repo.articles[11].Pos; got != 0 {
		t.Errorf("pos = %d, want 0", got)
	}
}

func TestMoveArticle_NoOpKeepsPositions(t *testing.T) {
	repo := newFakeArticleRepo(
		article(10, 5, "A", "a1", 1000),
		article(11, 5, "B", "b1", 2000),
	)
	svc := newTestArticleService(repo, liveNode(5))

	// B already follows A.
	err := svc.MoveArticle(context.Background(), 42, &wikiSvc.MoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 11, PrevArticleID: 10,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if repo.articles[11].Pos != 2000 {
		t.Error("no-op move must not touch positions")
	}
}

func TestMoveArticle_Errors(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "A", "a1", 1000))
	svc := newTestArticleService(repo, liveNode(5))

	err := svc.MoveArticle(context.Background(), 42, &wikiSvc.MoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, PrevArticleID: 10,
	})
	if !errors.Is(err, domain.ErrIllegalOperation) {
		t.Errorf("self predecessor: err = %v, want ErrIllegalOperation", err)
	}

	err = svc.MoveArticle(context.Background(), 42, &wikiSvc.MoveArticleRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, PrevArticleID: 77,
	})
	if !errors.Is(err, domain.ErrArticleUpdated) {
		t.Errorf("vanished predecessor: err = %v, want ErrArticleUpdated", err)
	}
}

func TestMoveArticleToAnotherNode(t *testing.T) {
	repo := newFakeArticleRepo(
		article(10, 5, "mover", "m1", 1000),
		article(20, 6, "anchor", "x1", 1000),
	)
	trees := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(5, 1, "src page", 1000),
		childNode(6, 1, "dst page", 2000),
	)
	svc := newTestArticleService(repo, trees)

	err := svc.MoveArticleToAnotherNode(context.Background(), 42, &wikiSvc.MoveArticleToNodeRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, NewNodeID: 6, PrevArticleID: 20,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	moved := repo.articles[10]
	if moved.NodeID != 6 {
		t.Error("article not reparented")
	}
	if moved.Pos != 2000 {
		t.Errorf("pos = %d, want 2000 (after the anchor)", moved.Pos)
	}
}

func TestMoveArticleToAnotherNode_AcrossTrees(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "mover", "m1", 1000))
	trees := newFakeTreeRepo(
		rootNode(1, "v1"),
		childNode(5, 1, "src page", 1000),
		models.TreeNode{ID: 30, SpaceID: 1, TreeID: 3, Pid: models.RootPid, Title: "notes", Version: "n1"},
		models.TreeNode{ID: 31, SpaceID: 1, TreeID: 3, Pid: 30, Title: "dst page", Pos: 1000},
	)
	svc := newTestArticleService(repo, trees)

	err := svc.MoveArticleToAnotherNode(context.Background(), 42, &wikiSvc.MoveArticleToNodeRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, NewNodeID: 31,
	})
	if err != nil {
		t.Fatalf("move to secondary-tree node: %v", err)
	}
	if repo.articles[10].NodeID != 31 {
		t.Error("article not reparented onto the secondary-tree node")
	}
}

func TestSetArticleLevel(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "A", "a1", 1000))
	svc := newTestArticleService(repo, liveNode(5))

	err := svc.SetArticleLevel(context.Background(), 42, &wikiSvc.SetLevelRequest{
		SpaceID: 1, NodeID: 5, ArticleID: 10, Level: 1,
	})
	if err != nil {
		t.Fatalf("set level: %v", err)
	}
	if repo.articles[10].Level != 1 {
		t.Error("level not updated")
	}
}

func TestGetHistory(t *testing.T) {
	repo := newFakeArticleRepo(article(10, 5, "A", "v3", 1000))
	repo.history = []models.ArticleHistory{
		{ID: 1, ArticleID: 10, Version: "v1", Title: "first"},
		{ID: 2, ArticleID: 10, Version: "v2", Title: "second"},
		{ID: 3, ArticleID: 99, Version: "z1", Title: "other article"},
	}
	svc := newTestArticleService(repo, liveNode(5))

	history, err := svc.GetHistory(context.Background(), 42, 1, 5, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(history))
	}
	if history[0].Version != "v2" || history[1].Version != "v1" {
		t.Error("history not ordered most recent first")
	}
}
