package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/domain/services"

	"github.com/redis/go-redis/v9"
)

// Permission bits cached per (space, user).
const (
	permRead = 1 << iota
	permWrite
	permAdmin
)

// CachedPermissionGate answers space authorization questions from
// membership rows and the space's visibility flags, with a short-lived
// redis cache in front. Cache trouble degrades to direct lookups, never to
// denied access.
type CachedPermissionGate struct {
	spaces wikiRepo.SpaceRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedPermissionGate builds the gate. rdb may be nil to disable
// caching entirely.
func NewCachedPermissionGate(spaces wikiRepo.SpaceRepository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedPermissionGate {
	return &CachedPermissionGate{spaces: spaces, rdb: rdb, ttl: ttl, logger: logger}
}

var _ services.PermissionGate = (*CachedPermissionGate)(nil)

func (g *CachedPermissionGate) CanRead(ctx context.Context, spaceID, uid int64) (bool, error) {
	mask, err := g.mask(ctx, spaceID, uid)
	return mask&permRead != 0, err
}

func (g *CachedPermissionGate) CanWrite(ctx context.Context, spaceID, uid int64) (bool, error) {
	mask, err := g.mask(ctx, spaceID, uid)
	return mask&permWrite != 0, err
}

func (g *CachedPermissionGate) CanAdminister(ctx context.Context, spaceID, uid int64) (bool, error) {
	mask, err := g.mask(ctx, spaceID, uid)
	return mask&permAdmin != 0, err
}

// Invalidate drops the cached entry after a membership or visibility
// change so the new answer takes effect immediately.
func (g *CachedPermissionGate) Invalidate(ctx context.Context, spaceID, uid int64) {
	if g.rdb == nil {
		return
	}
	if err := g.rdb.Del(ctx, permKey(spaceID, uid)).Err(); err != nil {
		g.logger.Warn("permission cache invalidation failed", "space_id", spaceID, "uid", uid, "error", err)
	}
}

func (g *CachedPermissionGate) mask(ctx context.Context, spaceID, uid int64) (int, error) {
	key := permKey(spaceID, uid)
	if g.rdb != nil {
		val, err := g.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			if mask, convErr := strconv.Atoi(val); convErr == nil {
				return mask, nil
			}
		case !errors.Is(err, redis.Nil):
			g.logger.Warn("permission cache read failed", "space_id", spaceID, "error", err)
		}
	}

	mask, err := g.compute(ctx, spaceID, uid)
	if err != nil {
		return 0, err
	}

	if g.rdb != nil {
		if err := g.rdb.Set(ctx, key, strconv.Itoa(mask), g.ttl).Err(); err != nil {
			g.logger.Warn("permission cache write failed", "space_id", spaceID, "error", err)
		}
	}
	return mask, nil
}

func (g *CachedPermissionGate) compute(ctx context.Context, spaceID, uid int64) (int, error) {
	space, err := g.spaces.GetSpace(ctx, spaceID)
	if err != nil {
		return 0, fmt.Errorf("get space: %w", err)
	}
	if space == nil {
		return 0, domain.ErrSpaceNotExist
	}

	member, err := g.spaces.GetMember(ctx, spaceID, uid)
	if err != nil {
		return 0, fmt.Errorf("get member: %w", err)
	}

	var mask int
	if member != nil {
		mask = permRead | permWrite
		if member.Role == models.RoleCreator || member.Role == models.RoleAdmin {
			mask |= permAdmin
		}
		return mask, nil
	}
	if space.OthersRead {
		mask |= permRead
	}
	if space.OthersWrite {
		mask |= permRead | permWrite
	}
	return mask, nil
}

func permKey(spaceID, uid int64) string {
	return fmt.Sprintf("perm:%d:%d", spaceID, uid)
}
