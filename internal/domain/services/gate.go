package services

import "context"

// PermissionGate answers authorization questions for a space. Engines
// consult it before every read or mutation and translate a false answer
// into a permission-denied error. It is a pure boolean oracle; how the
// answer is computed (membership roles, public flags, caching) is an
// implementation concern.
type PermissionGate interface {
	CanRead(ctx context.Context, spaceID, uid int64) (bool, error)
	CanWrite(ctx context.Context, spaceID, uid int64) (bool, error)
	CanAdminister(ctx context.Context, spaceID, uid int64) (bool, error)
}
