package wiki

import (
	"context"

	"inkwell/internal/domain/models/wiki"
)

// SpaceService manages spaces, memberships and the roots of their trees.
type SpaceService interface {
	// CreateSpace creates the space, its creator membership and the main
	// tree's root node in one transaction.
	CreateSpace(ctx context.Context, uid int64, req *CreateSpaceRequest) (*wiki.Space, error)

	UpdateSpace(ctx context.Context, uid int64, req *UpdateSpaceRequest) error
	GetUserSpaces(ctx context.Context, uid int64) ([]wiki.Space, error)

	ListMembers(ctx context.Context, uid int64, spaceID int64) ([]wiki.SpaceMember, error)
	AddMember(ctx context.Context, uid int64, spaceID, newUID int64, role int) error
	RemoveMember(ctx context.Context, uid int64, spaceID, memberUID int64) error

	// CreateTree plants a new root for an additional tree in the space.
	CreateTree(ctx context.Context, uid int64, spaceID, treeID int64, title string) (string, error)
}

// CreateSpaceRequest creates a space.
type CreateSpaceRequest struct {
	Type        int    `json:"type"`
	Title       string `json:"title"`
	Desc        string `json:"desc"`
	OthersRead  bool   `json:"othersRead"`
	OthersWrite bool   `json:"othersWrite"`
}

// UpdateSpaceRequest updates a space's metadata and visibility.
type UpdateSpaceRequest struct {
	SpaceID     int64  `json:"spaceId"`
	Title       string `json:"title"`
	Desc        string `json:"desc"`
	OthersRead  bool   `json:"othersRead"`
	OthersWrite bool   `json:"othersWrite"`
}
