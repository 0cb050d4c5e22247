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

// MaxTitleLength bounds node titles, matching the storage column.
const MaxTitleLength = 200

type treeService struct {
	treeRepo  wikiRepo.TreeRepository
	txManager repositories.TransactionManager
	gate      services.PermissionGate
	notifier  search.Notifier
	logger    *slog.Logger
}

// NewTreeService creates the tree mutation engine.
func NewTreeService(
	treeRepo wikiRepo.TreeRepository,
	txManager repositories.TransactionManager,
	gate services.PermissionGate,
	notifier search.Notifier,
	logger *slog.Logger,
) wikiSvc.TreeService {
	return &treeService{
		treeRepo:  treeRepo,
		txManager: txManager,
		gate:      gate,
		notifier:  notifier,
		logger:    logger,
	}
}

// GetTree loads all live nodes and materializes the nested tree.
func (s *treeService) GetTree(ctx context.Context, uid int64, spaceID, treeID int64) (*models.TreeView, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return nil, err
	}

	forest, err := s.loadForest(ctx, spaceID, treeID)
	if err != nil {
		return nil, err
	}
	return forest.Materialize(), nil
}

// GetTreeVersion returns the root's current version token.
func (s *treeService) GetTreeVersion(ctx context.Context, uid int64, spaceID, treeID int64) (string, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return "", err
	}

	root, err := s.treeRepo.GetRoot(ctx, spaceID, treeID)
	if err != nil {
		return "", fmt.Errorf("get tree root: %w", err)
	}
	if root == nil {
		return "", domain.ErrTreeNotExist
	}
	return root.Version, nil
}

// AppendChildNode inserts a new node as the last child of the parent and
// refreshes the root version, both in one transaction guarded by the
// caller's version token.
func (s *treeService) AppendChildNode(ctx context.Context, uid int64, req *wikiSvc.AppendNodeRequest) (*wikiSvc.NodeResult, error) {
	if err := validateAppendRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return nil, err
	}

	forest, err := s.loadForest(ctx, req.SpaceID, req.TreeID)
	if err != nil {
		return nil, err
	}

	parent := forest.Node(req.Pid)
	if parent == nil {
		// The parent vanished since the caller loaded the tree.
		return nil, domain.ErrTreeUpdated
	}

	node := &models.TreeNode{
		SpaceID: req.SpaceID,
		TreeID:  req.TreeID,
		Pid:     req.Pid,
		Type:    req.Type,
		Title:   req.Title,
		Pos:     positionForAppend(maxChildPos(forest.Children(req.Pid))),
	}
	newVersion := version.Generate()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.TreeID, req.TreeVersion, newVersion); err != nil {
			return err
		}
		return s.treeRepo.InsertNode(txCtx, node)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node appended",
		"space_id", req.SpaceID,
		"tree_id", req.TreeID,
		"node_id", node.ID,
		"pid", req.Pid,
	)
	s.notifyNodeUpsert(ctx, req.SpaceID, node.ID, req.Title)

	return &wikiSvc.NodeResult{NodeID: node.ID, TreeVersion: newVersion}, nil
}

// RenameNode retitles a non-root node under the tree-wide version guard.
func (s *treeService) RenameNode(ctx context.Context, uid int64, req *wikiSvc.RenameNodeRequest) (string, error) {
	if err := validateRenameRequest(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return "", err
	}

	node, err := s.treeRepo.GetNode(ctx, req.SpaceID, req.TreeID, req.NodeID)
	if err != nil {
		return "", fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return "", domain.ErrTreeUpdated
	}
	if node.IsRoot() {
		return "", fmt.Errorf("%w: root cannot be renamed", domain.ErrIllegalOperation)
	}

	newVersion := version.Generate()
	title := req.NewTitle
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.TreeID, req.TreeVersion, newVersion); err != nil {
			return err
		}
		return s.treeRepo.ApplyUpdates(txCtx, req.SpaceID, req.TreeID, []models.NodeUpdate{
			{NodeID: req.NodeID, Title: &title},
		})
	})
	if err != nil {
		return "", err
	}

	s.notifyNodeUpsert(ctx, req.SpaceID, req.NodeID, req.NewTitle)
	return newVersion, nil
}

// MoveNode reparents and/or reorders a node. The new index addresses the
// slot among the destination parent's children once the moving node is
// taken out of line; index == child count appends. Moving a node onto the
// slot it already occupies returns the current version untouched, so other
// editors' tokens stay valid.
func (s *treeService) MoveNode(ctx context.Context, uid int64, req *wikiSvc.MoveNodeRequest) (string, error) {
	if err := validateMoveRequest(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return "", err
	}

	forest, err := s.loadForest(ctx, req.SpaceID, req.TreeID)
	if err != nil {
		return "", err
	}

	node := forest.Node(req.NodeID)
	if node == nil {
		return "", domain.ErrTreeUpdated
	}
	if node.IsRoot() {
		return "", fmt.Errorf("%w: root cannot be moved", domain.ErrIllegalOperation)
	}
	newParent := forest.Node(req.NewPid)
	if newParent == nil {
		return "", domain.ErrTreeUpdated
	}
	if req.NewPid == req.NodeID || forest.IsDescendant(req.NodeID, req.NewPid) {
		return "", fmt.Errorf("%w: node cannot be moved under its own subtree", domain.ErrIllegalOperation)
	}

	children := forest.Children(req.NewPid)
	if req.NewIndex < 0 || req.NewIndex > len(children) {
		return "", fmt.Errorf("%w: index %d out of range", domain.ErrIllegalOperation, req.NewIndex)
	}

	// True no-op: same parent, same slot. Re-confirming an unchanged state
	// must not invalidate other editors' version tokens.
	if req.NewPid == node.Pid && forest.SiblingIndex(req.NodeID) == req.NewIndex {
		return forest.Root().Version, nil
	}

	siblings := make([]posEntry, 0, len(children))
	for _, child := range children {
		if child.ID != req.NodeID {
			siblings = append(siblings, posEntry{id: child.ID, pos: child.Pos})
		}
	}
	target := req.NewIndex
	if target > len(siblings) {
		target = len(siblings)
	}

	newPos, plan := positionForInsert(siblings, target)
	updates := make([]models.NodeUpdate, 0, len(plan)+1)
	for id, pos := range plan {
		updates = append(updates, models.NewPosUpdate(id, pos))
	}
	updates = append(updates, models.NewMoveUpdate(req.NodeID, req.NewPid, newPos))

	newVersion := version.Generate()
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.TreeID, req.TreeVersion, newVersion); err != nil {
			return err
		}
		return s.treeRepo.ApplyUpdates(txCtx, req.SpaceID, req.TreeID, updates)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("node moved",
		"space_id", req.SpaceID,
		"tree_id", req.TreeID,
		"node_id", req.NodeID,
		"new_pid", req.NewPid,
		"renumbered", len(plan),
	)
	return newVersion, nil
}

// RemoveNodeRecursively soft-deletes a node and every descendant in one
// version-guarded batch.
func (s *treeService) RemoveNodeRecursively(ctx context.Context, uid int64, req *wikiSvc.RemoveNodeRequest) (string, error) {
	if err := validateRemoveRequest(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return "", err
	}

	forest, err := s.loadForest(ctx, req.SpaceID, req.TreeID)
	if err != nil {
		return "", err
	}

	node := forest.Node(req.NodeID)
	if node == nil {
		return "", domain.ErrTreeUpdated
	}
	if node.IsRoot() {
		return "", fmt.Errorf("%w: root cannot be removed", domain.ErrIllegalOperation)
	}

	ids := append([]int64{req.NodeID}, forest.Descendants(req.NodeID)...)
	updates := make([]models.NodeUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, models.NewDeletedUpdate(id, true))
	}

	newVersion := version.Generate()
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.TreeID, req.TreeVersion, newVersion); err != nil {
			return err
		}
		return s.treeRepo.ApplyUpdates(txCtx, req.SpaceID, req.TreeID, updates)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("subtree removed",
		"space_id", req.SpaceID,
		"tree_id", req.TreeID,
		"node_id", req.NodeID,
		"nodes", len(ids),
	)
	for _, id := range ids {
		s.notifyNodeDeleted(ctx, req.SpaceID, id)
	}
	return newVersion, nil
}

// RestoreNodeRecursively undeletes a trashed node plus the deleted subtree
// below it. The walk is scoped to the deleted set: descendants that were
// never trashed are untouched.
func (s *treeService) RestoreNodeRecursively(ctx context.Context, uid int64, req *wikiSvc.RemoveNodeRequest) (string, error) {
	if err := validateRemoveRequest(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return "", err
	}

	deleted, err := s.treeRepo.ListNodes(ctx, req.SpaceID, req.TreeID, true)
	if err != nil {
		return "", fmt.Errorf("list deleted nodes: %w", err)
	}
	trash := models.NewForestView(deleted)

	node := trash.Node(req.NodeID)
	if node == nil {
		return "", domain.ErrTreeUpdated
	}

	ids := append([]int64{req.NodeID}, trash.Descendants(req.NodeID)...)
	updates := make([]models.NodeUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, models.NewDeletedUpdate(id, false))
	}

	newVersion := version.Generate()
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.TreeID, req.TreeVersion, newVersion); err != nil {
			return err
		}
		return s.treeRepo.ApplyUpdates(txCtx, req.SpaceID, req.TreeID, updates)
	})
	if err != nil {
		return "", err
	}

	for _, id := range ids {
		if restored := trash.Node(id); restored != nil {
			s.notifyNodeUpsert(ctx, req.SpaceID, id, restored.Title)
		}
	}
	return newVersion, nil
}

// GetTrashTree lists soft-deleted nodes. Deleted nodes whose parent is
// still live surface as top-level trash entries, most recently modified
// first, under a synthesized virtual root.
func (s *treeService) GetTrashTree(ctx context.Context, uid int64, spaceID, treeID int64) (*models.TreeView, error) {
	if err := s.requireRead(ctx, spaceID, uid); err != nil {
		return nil, err
	}

	deleted, err := s.treeRepo.ListNodes(ctx, spaceID, treeID, true)
	if err != nil {
		return nil, fmt.Errorf("list deleted nodes: %w", err)
	}
	return models.BuildTrashForest(deleted), nil
}

// MoveNodeToAnotherTree reparents a subtree into a different tree of the
// same space. Both roots' versions are checked and bumped inside a single
// transaction; a conflict on either side rolls back the whole move.
func (s *treeService) MoveNodeToAnotherTree(ctx context.Context, uid int64, req *wikiSvc.MoveNodeToTreeRequest) (*wikiSvc.CrossTreeResult, error) {
	if err := validateMoveToTreeRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.SrcTreeID == req.DstTreeID {
		return nil, fmt.Errorf("%w: source and destination tree are the same", domain.ErrIllegalOperation)
	}
	if err := s.requireWrite(ctx, req.SpaceID, uid); err != nil {
		return nil, err
	}

	srcForest, err := s.loadForest(ctx, req.SpaceID, req.SrcTreeID)
	if err != nil {
		return nil, err
	}
	node := srcForest.Node(req.NodeID)
	if node == nil {
		return nil, domain.ErrTreeUpdated
	}
	if node.IsRoot() {
		return nil, fmt.Errorf("%w: root cannot be moved", domain.ErrIllegalOperation)
	}

	dstForest, err := s.loadForest(ctx, req.SpaceID, req.DstTreeID)
	if err != nil {
		return nil, err
	}
	newParent := dstForest.Node(req.NewPid)
	if newParent == nil {
		return nil, domain.ErrTreeUpdated
	}

	children := dstForest.Children(req.NewPid)
	if req.NewIndex < 0 || req.NewIndex > len(children) {
		return nil, fmt.Errorf("%w: index %d out of range", domain.ErrIllegalOperation, req.NewIndex)
	}

	siblings := make([]posEntry, 0, len(children))
	for _, child := range children {
		siblings = append(siblings, posEntry{id: child.ID, pos: child.Pos})
	}
	newPos, plan := positionForInsert(siblings, req.NewIndex)
	updates := make([]models.NodeUpdate, 0, len(plan)+1)
	for id, pos := range plan {
		updates = append(updates, models.NewPosUpdate(id, pos))
	}
	updates = append(updates, models.NewMoveUpdate(req.NodeID, req.NewPid, newPos))

	ids := append([]int64{req.NodeID}, srcForest.Descendants(req.NodeID)...)

	newSrcVersion := version.Generate()
	newDstVersion := version.Generate()
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.SrcTreeID, req.SrcTreeVersion, newSrcVersion); err != nil {
			return err
		}
		if err := s.swapRootVersion(txCtx, req.SpaceID, req.DstTreeID, req.DstTreeVersion, newDstVersion); err != nil {
			return err
		}
		if err := s.treeRepo.RetagTree(txCtx, req.SpaceID, ids, req.DstTreeID); err != nil {
			return err
		}
		return s.treeRepo.ApplyUpdates(txCtx, req.SpaceID, req.DstTreeID, updates)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subtree moved across trees",
		"space_id", req.SpaceID,
		"node_id", req.NodeID,
		"src_tree_id", req.SrcTreeID,
		"dst_tree_id", req.DstTreeID,
		"nodes", len(ids),
	)
	return &wikiSvc.CrossTreeResult{
		SrcTreeVersion: newSrcVersion,
		DstTreeVersion: newDstVersion,
	}, nil
}

// loadForest reads the live node set and indexes it. A missing root means
// the tree does not exist.
func (s *treeService) loadForest(ctx context.Context, spaceID, treeID int64) (*models.ForestView, error) {
	nodes, err := s.treeRepo.ListNodes(ctx, spaceID, treeID, false)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	forest := models.NewForestView(nodes)
	if forest.Root() == nil {
		return nil, domain.ErrTreeNotExist
	}
	return forest, nil
}

// swapRootVersion performs the atomic optimistic commit check. Exactly one
// of two racing committers can succeed; the loser sees a version conflict.
func (s *treeService) swapRootVersion(ctx context.Context, spaceID, treeID int64, expected, next string) error {
	ok, err := s.treeRepo.CompareAndSwapRootVersion(ctx, spaceID, treeID, expected, next)
	if err != nil {
		return fmt.Errorf("swap root version: %w", err)
	}
	if !ok {
		return domain.ErrTreeUpdated
	}
	return nil
}

func (s *treeService) requireRead(ctx context.Context, spaceID, uid int64) error {
	ok, err := s.gate.CanRead(ctx, spaceID, uid)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *treeService) requireWrite(ctx context.Context, spaceID, uid int64) error {
	ok, err := s.gate.CanWrite(ctx, spaceID, uid)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *treeService) notifyNodeUpsert(ctx context.Context, spaceID, nodeID int64, title string) {
	if err := s.notifier.Upsert(ctx, spaceID, search.ObjectNode, nodeID, title, ""); err != nil {
		s.logger.Warn("search upsert failed", "node_id", nodeID, "error", err)
	}
}

func (s *treeService) notifyNodeDeleted(ctx context.Context, spaceID, nodeID int64) {
	if err := s.notifier.MarkDeleted(ctx, spaceID, search.ObjectNode, nodeID); err != nil {
		s.logger.Warn("search delete failed", "node_id", nodeID, "error", err)
	}
}

func maxChildPos(children []*models.TreeNode) int {
	if len(children) == 0 {
		return 0
	}
	return children[len(children)-1].Pos
}

func validateAppendRequest(req *wikiSvc.AppendNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.Pid, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Title, validation.Required, validation.Length(1, MaxTitleLength)),
	)
}

func validateRenameRequest(req *wikiSvc.RenameNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewTitle, validation.Required, validation.Length(1, MaxTitleLength)),
	)
}

func validateMoveRequest(req *wikiSvc.MoveNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewPid, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewIndex, validation.Min(0)),
	)
}

func validateRemoveRequest(req *wikiSvc.RemoveNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
	)
}

func validateMoveToTreeRequest(req *wikiSvc.MoveNodeToTreeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.SrcTreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.SrcTreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.DstTreeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.DstTreeVersion, validation.Required, validation.Length(1, 40)),
		validation.Field(&req.NodeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewPid, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.NewIndex, validation.Min(0)),
	)
}
