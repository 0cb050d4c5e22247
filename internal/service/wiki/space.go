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

// permissionInvalidator drops cached permission answers after membership
// changes. Satisfied by CachedPermissionGate; nil disables invalidation.
type permissionInvalidator interface {
	Invalidate(ctx context.Context, spaceID, uid int64)
}

type spaceService struct {
	spaceRepo   wikiRepo.SpaceRepository
	treeRepo    wikiRepo.TreeRepository
	txManager   repositories.TransactionManager
	gate        services.PermissionGate
	invalidator permissionInvalidator
	notifier    search.Notifier
	logger      *slog.Logger
}

// NewSpaceService creates the space/membership service.
func NewSpaceService(
	spaceRepo wikiRepo.SpaceRepository,
	treeRepo wikiRepo.TreeRepository,
	txManager repositories.TransactionManager,
	gate services.PermissionGate,
	invalidator permissionInvalidator,
	notifier search.Notifier,
	logger *slog.Logger,
) wikiSvc.SpaceService {
	return &spaceService{
		spaceRepo:   spaceRepo,
		treeRepo:    treeRepo,
		txManager:   txManager,
		gate:        gate,
		invalidator: invalidator,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateSpace creates the space row, the creator's membership and the main
// tree's root node in one transaction, so a space is never observable
// without a usable tree.
func (s *spaceService) CreateSpace(ctx context.Context, uid int64, req *wikiSvc.CreateSpaceRequest) (*models.Space, error) {
	if err := validateCreateSpaceRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	space := &models.Space{
		Type:        req.Type,
		Title:       req.Title,
		Desc:        req.Desc,
		OthersRead:  req.OthersRead,
		OthersWrite: req.OthersWrite,
	}
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.spaceRepo.CreateSpace(txCtx, space); err != nil {
			return err
		}
		if err := s.spaceRepo.AddMember(txCtx, &models.SpaceMember{
			SpaceID: space.ID,
			UID:     uid,
			Role:    models.RoleCreator,
		}); err != nil {
			return err
		}
		return s.treeRepo.InsertNode(txCtx, &models.TreeNode{
			SpaceID: space.ID,
			TreeID:  models.TreeMain,
			Pid:     models.RootPid,
			Title:   req.Title,
			Version: version.Generate(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space created", "space_id", space.ID, "creator", uid)
	if err := s.notifier.Upsert(ctx, space.ID, search.ObjectSpace, space.ID, space.Title, space.Desc); err != nil {
		s.logger.Warn("search upsert failed", "space_id", space.ID, "error", err)
	}
	return space, nil
}

func (s *spaceService) UpdateSpace(ctx context.Context, uid int64, req *wikiSvc.UpdateSpaceRequest) error {
	if err := validateUpdateSpaceRequest(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.requireAdmin(ctx, req.SpaceID, uid); err != nil {
		return err
	}

	space, err := s.spaceRepo.GetSpace(ctx, req.SpaceID)
	if err != nil {
		return fmt.Errorf("get space: %w", err)
	}
	if space == nil {
		return domain.ErrSpaceNotExist
	}

	space.Title = req.Title
	space.Desc = req.Desc
	space.OthersRead = req.OthersRead
	space.OthersWrite = req.OthersWrite
	if err := s.spaceRepo.UpdateSpace(ctx, space); err != nil {
		return fmt.Errorf("update space: %w", err)
	}

	if err := s.notifier.Upsert(ctx, space.ID, search.ObjectSpace, space.ID, space.Title, space.Desc); err != nil {
		s.logger.Warn("search upsert failed", "space_id", space.ID, "error", err)
	}
	return nil
}

func (s *spaceService) GetUserSpaces(ctx context.Context, uid int64) ([]models.Space, error) {
	spaces, err := s.spaceRepo.ListSpacesForUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

func (s *spaceService) ListMembers(ctx context.Context, uid int64, spaceID int64) ([]models.SpaceMember, error) {
	ok, err := s.gate.CanRead(ctx, spaceID, uid)
	if err != nil {
		return nil, fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return nil, domain.ErrPermissionDenied
	}

	members, err := s.spaceRepo.ListMembers(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *spaceService) AddMember(ctx context.Context, uid int64, spaceID, newUID int64, role int) error {
	if role != models.RoleAdmin && role != models.RoleGeneral {
		return fmt.Errorf("%w: role %d cannot be granted", domain.ErrIllegalOperation, role)
	}
	if err := s.requireAdmin(ctx, spaceID, uid); err != nil {
		return err
	}

	if err := s.spaceRepo.AddMember(ctx, &models.SpaceMember{
		SpaceID: spaceID,
		UID:     newUID,
		Role:    role,
	}); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	s.logger.Info("member added", "space_id", spaceID, "uid", newUID, "role", role, "by", uid)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, spaceID, newUID)
	}
	return nil
}

func (s *spaceService) RemoveMember(ctx context.Context, uid int64, spaceID, memberUID int64) error {
	if err := s.requireAdmin(ctx, spaceID, uid); err != nil {
		return err
	}

	member, err := s.spaceRepo.GetMember(ctx, spaceID, memberUID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return nil
	}
	if member.Role == models.RoleCreator {
		return fmt.Errorf("%w: the creator cannot be removed", domain.ErrIllegalOperation)
	}

	if err := s.spaceRepo.RemoveMember(ctx, spaceID, memberUID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	s.logger.Info("member removed", "space_id", spaceID, "uid", memberUID, "by", uid)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, spaceID, memberUID)
	}
	return nil
}

// CreateTree plants the root node for an additional tree in the space.
// Planting over an existing tree is rejected.
func (s *spaceService) CreateTree(ctx context.Context, uid int64, spaceID, treeID int64, title string) (string, error) {
	if err := validation.Validate(title, validation.Required, validation.Length(1, MaxTitleLength)); err != nil {
		return "", fmt.Errorf("%w: title: %v", domain.ErrValidation, err)
	}
	if err := s.requireAdmin(ctx, spaceID, uid); err != nil {
		return "", err
	}

	existing, err := s.treeRepo.GetRoot(ctx, spaceID, treeID)
	if err != nil {
		return "", fmt.Errorf("get tree root: %w", err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w: tree %d already exists", domain.ErrIllegalOperation, treeID)
	}

	root := &models.TreeNode{
		SpaceID: spaceID,
		TreeID:  treeID,
		Pid:     models.RootPid,
		Title:   title,
		Version: version.Generate(),
	}
	if err := s.treeRepo.InsertNode(ctx, root); err != nil {
		return "", fmt.Errorf("insert root: %w", err)
	}

	s.logger.Info("tree created", "space_id", spaceID, "tree_id", treeID)
	return root.Version, nil
}

func (s *spaceService) requireAdmin(ctx context.Context, spaceID, uid int64) error {
	ok, err := s.gate.CanAdminister(ctx, spaceID, uid)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

func validateCreateSpaceRequest(req *wikiSvc.CreateSpaceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Type, validation.Required, validation.In(
			models.SpaceTypePerson, models.SpaceTypeGroup, models.SpaceTypeProject,
		)),
		validation.Field(&req.Title, validation.Required, validation.Length(1, MaxTitleLength)),
		validation.Field(&req.Desc, validation.Length(0, 2000)),
	)
}

func validateUpdateSpaceRequest(req *wikiSvc.UpdateSpaceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Title, validation.Required, validation.Length(1, MaxTitleLength)),
		validation.Field(&req.Desc, validation.Length(0, 2000)),
	)
}
