package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/wiki"
	"inkwell/internal/domain/repositories"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/domain/services"
	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/search"
	"inkwell/internal/version"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type articleService struct {
	articleRepo wikiRepo.ArticleRepository
	treeRepo    wikiRepo.TreeRepository
	txManager   repositories.TransactionManager
	gate        services.PermissionGate
	attachments wikiSvc.AttachmentService
	notifier    search.Notifier
	logger      *slog.Logger
}

// NewArticleService creates the article engine. attachments may be nil for
// deployments without blob storage.
func NewArticleService(
	articleRepo wikiRepo.ArticleRepository,
	treeRepo wikiRepo.TreeRepository,
	txManager repositories.TransactionManager,
	gate services.PermissionGate,
	attachments wikiSvc.AttachmentService,
	notifier search.Notifier,
	logger *slog.Logger,
) wikiSvc.ArticleService {
	return &articleService{
		articleRepo: articleRepo,
		treeRepo:    treeRepo,
		txManager:   txManager,
		gate:        gate,
		attachments: attachments,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *articleService) GetArticles(ctx context.Context, uid int64, spaceID, nodeID int64) ([]models.Article, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.ListArticles(ctx, spaceID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

func (s *articleService) GetVersions(ctx context.Context, uid int64, spaceID, nodeID int64) ([]models.ArticleVersion, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return nil, err
	}
	versions, err := s.articleRepo.ListVersions(ctx, spaceID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list article versions: %w", err)
	}
	return versions, nil
}

// AddArticle creates an article on a live node, placed right after the
// requested predecessor (predecessor 0 places it first).
func (s *articleService) AddArticle(ctx context.Context, uid int64, req *wikiSvc.AddArticleRequest) (*models.Article, error) {
	if err := validateAddArticleRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return nil, err
	}

	node, err := s.treeRepo.FindNode(ctx, req.SpaceID, req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("find node: %w", err)
	}
	if node == nil {
		return nil, domain.ErrTreeNotExist
	}

	articles, err := s.articleRepo.ListArticles(ctx, req.SpaceID, req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	target, err := targetAfterPredecessor(articles, req.PrevArticleID, 0)
	if err != nil {
		return nil, err
	}
	pos, plan := positionForInsert(articleEntries(articles, 0), target)

	article := &models.Article{
		SpaceID: req.SpaceID,
		NodeID:  req.NodeID,
		Type:    req.Type,
		Title:   req.Content.Title,
		Body:    req.Content.Body,
		Search:  req.Content.Search,
		Author:  uid,
		Version: version.Generate(),
		Pos:     pos,
	}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if len(plan) > 0 {
			if err := s.articleRepo.ModifyPositions(txCtx, req.SpaceID, req.NodeID, plan); err != nil {
				return err
			}
		}
		return s.articleRepo.InsertArticle(txCtx, article)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("article added",
		"space_id", req.SpaceID,
		"node_id", req.NodeID,
		"article_id", article.ID,
		"author", uid,
	)
	s.notifyArticleUpsert(ctx, article)

	if len(req.AttachmentIDs) > 0 && s.attachments != nil {
		if err := s.attachments.AttachToArticle(ctx, req.SpaceID, req.NodeID, article.ID, req.AttachmentIDs); err != nil {
			s.logger.Warn("attachment linking failed", "article_id", article.ID, "error", err)
		}
	}
	return article, nil
}

// UpdateArticle snapshots the current state into history and rewrites the
// content, guarded by the article's version token. History and update
// commit together: a version race rolls both back.
func (s *articleService) UpdateArticle(ctx context.Context, uid int64, req *wikiSvc.UpdateArticleRequest) (string, error) {
	if err := validateUpdateArticleRequest(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return "", err
	}

	article, err := s.articleRepo.GetArticle(ctx, req.SpaceID, req.NodeID, req.ArticleID)
	if err != nil {
		return "", fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return "", domain.ErrArticleNotExist
	}
	if article.Deleted {
		return "", domain.ErrArticleRemoved
	}
	if !version.Equal(article.Version, req.ArticleVersion) {
		return "", domain.ErrArticleUpdated
	}

	snapshot := &models.ArticleHistory{
		ArticleID: article.ID,
		Version:   article.Version,
		Title:     article.Title,
		Body:      article.Body,
		Search:    article.Search,
		Author:    article.Author,
		Stime:     article.Stime,
	}
	newVersion := version.Generate()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.articleRepo.InsertHistory(txCtx, snapshot); err != nil {
			return err
		}
		ok, err := s.articleRepo.UpdateContent(txCtx, req.SpaceID, req.NodeID, req.ArticleID, req.ArticleVersion, req.Content, newVersion)
		if err != nil {
			return err
		}
		if !ok {
			// The rollback discards the snapshot too.
			return domain.ErrArticleUpdated
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	article.Title = req.Content.Title
	article.Search = req.Content.Search
	s.notifyArticleUpsert(ctx, article)
	return newVersion, nil
}

// RemoveArticle soft-deletes under a version check. Repeating the removal
// with the same token succeeds, so a retried request is harmless.
func (s *articleService) RemoveArticle(ctx context.Context, uid int64, req *wikiSvc.RemoveArticleRequest) error {
	if err := validateRemoveArticleRequest(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return err
	}

	article, err := s.articleRepo.GetArticle(ctx, req.SpaceID, req.NodeID, req.ArticleID)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return domain.ErrArticleNotExist
	}
	if article.Deleted {
		if version.Equal(article.Version, req.ArticleVersion) {
			return nil
		}
		return domain.ErrArticleUpdated
	}

	ok, err := s.articleRepo.SoftDelete(ctx, req.SpaceID, req.NodeID, req.ArticleID, req.ArticleVersion)
	if err != nil {
		return fmt.Errorf("soft delete article: %w", err)
	}
	if !ok {
		return domain.ErrArticleUpdated
	}

	s.logger.Info("article removed",
		"space_id", req.SpaceID,
		"node_id", req.NodeID,
		"article_id", req.ArticleID,
	)
	if err := s.notifier.MarkDeleted(ctx, req.SpaceID, search.ObjectArticle, req.ArticleID); err != nil {
		s.logger.Warn("search delete failed", "article_id", req.ArticleID, "error", err)
	}
	return nil
}

// MoveArticle reorders an article after a predecessor within its node.
// Re-stating the current order is a silent no-op.
func (s *articleService) MoveArticle(ctx context.Context, uid int64, req *wikiSvc.MoveArticleRequest) error {
	if err := validateMoveArticleRequest(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.PrevArticleID == req.ArticleID {
		return fmt.Errorf("%w: article cannot follow itself", domain.ErrIllegalOperation)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return err
	}

	articles, err := s.articleRepo.ListArticles(ctx, req.SpaceID, req.NodeID)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}

	curIdx := -1
	for i := range articles {
		if articles[i].ID == req.ArticleID {
			curIdx = i
			break
		}
	}
	if curIdx < 0 {
		return domain.ErrArticleNotExist
	}

	var curPrev int64
	if curIdx > 0 {
		curPrev = articles[curIdx-1].ID
	}
	if curPrev == req.PrevArticleID {
		return nil
	}

	target, err := targetAfterPredecessor(articles, req.PrevArticleID, req.ArticleID)
	if err != nil {
		return err
	}
	pos, plan := positionForInsert(articleEntries(articles, req.ArticleID), target)

	if plan == nil {
		plan = make(map[int64]int, 1)
	}
	plan[req.ArticleID] = pos

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.articleRepo.ModifyPositions(txCtx, req.SpaceID, req.NodeID, plan)
	})
	if err != nil {
		return err
	}

	s.logger.Info("article moved",
		"space_id", req.SpaceID,
		"node_id", req.NodeID,
		"article_id", req.ArticleID,
		"prev_article_id", req.PrevArticleID,
	)
	return nil
}

// MoveArticleToAnotherNode reparents an article into another node's list,
// placed after the requested predecessor there.
func (s *articleService) MoveArticleToAnotherNode(ctx context.Context, uid int64, req *wikiSvc.MoveArticleToNodeRequest) error {
	if err := validateMoveToNodeRequest(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.NewNodeID == req.NodeID {
		return fmt.Errorf("%w: article is already on that node", domain.ErrIllegalOperation)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return err
	}

	article, err := s.articleRepo.GetArticle(ctx, req.SpaceID, req.NodeID, req.ArticleID)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return domain.ErrArticleNotExist
	}
	if article.Deleted {
		return domain.ErrArticleRemoved
	}

	dest, err := s.treeRepo.FindNode(ctx, req.SpaceID, req.NewNodeID)
	if err != nil {
		return fmt.Errorf("find destination node: %w", err)
	}
	if dest == nil {
		return domain.ErrTreeNotExist
	}

	destArticles, err := s.articleRepo.ListArticles(ctx, req.SpaceID, req.NewNodeID)
	if err != nil {
		return fmt.Errorf("list destination articles: %w", err)
	}

	target, err := targetAfterPredecessor(destArticles, req.PrevArticleID, 0)
	if err != nil {
		return err
	}
	pos, plan := positionForInsert(articleEntries(destArticles, 0), target)

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if len(plan) > 0 {
			if err := s.articleRepo.ModifyPositions(txCtx, req.SpaceID, req.NewNodeID, plan); err != nil {
				return err
			}
		}
		return s.articleRepo.SetNode(txCtx, req.SpaceID, req.ArticleID, req.NewNodeID, pos)
	})
	if err != nil {
		return err
	}

	s.logger.Info("article reparented",
		"space_id", req.SpaceID,
		"article_id", req.ArticleID,
		"from_node_id", req.NodeID,
		"to_node_id", req.NewNodeID,
	)
	article.NodeID = req.NewNodeID
	s.notifyArticleUpsert(ctx, article)
	return nil
}

// SetArticleLevel flips the pin/priority marker. Deliberately without a
// version guard: losing a race on a boolean-ish marker is harmless and a
// conflict error would only annoy the caller.
func (s *articleService) SetArticleLevel(ctx context.Context, uid int64, req *wikiSvc.SetLevelRequest) error {
	if err := validateSetLevelRequest(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return err
	}

	article, err := s.articleRepo.GetArticle(ctx, req.SpaceID, req.NodeID, req.ArticleID)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return domain.ErrArticleNotExist
	}
	if article.Deleted {
		return domain.ErrArticleRemoved
	}

	if err := s.articleRepo.SetLevel(ctx, req.SpaceID, req.NodeID, req.ArticleID, req.Level); err != nil {
		return fmt.Errorf("set article level: %w", err)
	}
	return nil
}

func (s *articleService) GetHistory(ctx context.Context, uid int64, spaceID, nodeID, articleID int64) ([]models.ArticleHistory, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return nil, err
	}

	article, err := s.articleRepo.GetArticle(ctx, spaceID, nodeID, articleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, domain.ErrArticleNotExist
	}

	history, err := s.articleRepo.ListHistory(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return history, nil
}

func (s *articleService) requireRead(ctx context.Context, spaceID, uid int64) error {
	ok, err := s.gate.CanRead(ctx, spaceID, uid)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *articleService) requireWrite(ctx context.Context, spaceID, uid int64) error {
	ok, err := s.gate.CanWrite(ctx, spaceID, uid)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *articleService) notifyArticleUpsert(ctx context.Context, article *models.Article) {
	if err := s.notifier.Upsert(ctx, article.SpaceID, search.ObjectArticle, article.ID, article.Title, article.Search); err != nil {
		s.logger.Warn("search upsert failed", "article_id", article.ID, "error", err)
	}
}

// articleEntries converts the ordered article list into allocator entries,
// leaving out the moving article (pass 0 to keep all).
func articleEntries(articles []models.Article, exclude int64) []posEntry {
	entries := make([]posEntry, 0, len(articles))
	for i := range articles {
		if articles[i].ID == exclude {
			continue
		}
		entries = append(entries, posEntry{id: articles[i].ID, pos: articles[i].Pos})
	}
	return entries
}

// targetAfterPredecessor resolves predecessor-id placement to an index in
// the list with the moving article excluded. A vanished predecessor means
// the caller's view of the list is stale.
func targetAfterPredecessor(articles []models.Article, prevID, exclude int64) (int, error) {
	if prevID == 0 {
		return 0, nil
	}
	idx := 0
	for i := range articles {
		if articles[i].ID == exclude {
			continue
		}
		idx++
		if articles[i].ID == prevID {
			return idx, nil
		}
	}
	return 0, domain.ErrArticleUpdated
}

func validateAddArticleRequest(req *wikiSvc.AddArticleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.PrevArticleID, validation.Min(int64(0))),
		validation.Field(&req.Content, validation.By(func(any) error {
			return validation.ValidateStruct(&req.Content,
				validation.Field(&req.Content.Title, validation.Required, validation.Length(1, MaxTitleLength)),
			)
		})),
	)
}

func validateUpdateArticleRequest(req *wikiSvc.UpdateArticleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.Content, validation.By(func(any) error {
			return validation.ValidateStruct(&req.Content,
				validation.Field(&req.Content.Title, validation.Required, validation.Length(1, MaxTitleLength)),
			)
		})),
	)
}

func validateRemoveArticleRequest(req *wikiSvc.RemoveArticleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleVersion, validation.Required, validation.Length(1, 40)),
	)
}

func validateMoveArticleRequest(req *wikiSvc.MoveArticleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.PrevArticleID, validation.Min(int64(0))),
	)
}

func validateMoveToNodeRequest(req *wikiSvc.MoveArticleToNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewNodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.PrevArticleID, validation.Min(int64(0))),
	)
}

func validateSetLevelRequest(req *wikiSvc.SetLevelRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.ArticleID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Level, validation.Min(0), validation.Max(1)),
	)
}
