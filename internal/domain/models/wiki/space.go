package wiki

import "time"

// Space types.
const (
	SpaceTypePerson  = 1
	SpaceTypeGroup   = 2
	SpaceTypeProject = 3
)

// Space member roles.
const (
	RoleCreator = 1
	RoleAdmin   = 2
	RoleGeneral = 3
)

// Space is the top-level tenant container. Tree nodes and articles are
// exclusively owned by their space.
type Space struct {
	ID          int64     `json:"id"`
	Type        int       `json:"type"`
	Title       string    `json:"title"`
	Desc        string    `json:"desc"`
	OthersRead  bool      `json:"othersRead"`
	OthersWrite bool      `json:"othersWrite"`
	Ctime       time.Time `json:"ctime"`
	Mtime       time.Time `json:"mtime"`
}

// SpaceMember links a user to a space with a role.
type SpaceMember struct {
	SpaceID int64     `json:"spaceId"`
	UID     int64     `json:"uid"`
	Role    int       `json:"role"`
	Ctime   time.Time `json:"ctime"`
	Mtime   time.Time `json:"mtime"`
}
