package wiki

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/wiki"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeSpaceRepo struct {
	spaces  map[int64]*models.Space
	members map[[2]int64]*models.SpaceMember

	memberLookups int
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{
		spaces:  make(map[int64]*models.Space),
		members: make(map[[2]int64]*models.SpaceMember),
	}
}

func (r *fakeSpaceRepo) CreateSpace(_ context.Context, space *models.Space) error {
	space.ID = int64(len(r.spaces) + 1)
	copied := *space
	r.spaces[space.ID] = &copied
	return nil
}

func (r *fakeSpaceRepo) GetSpace(_ context.Context, spaceID int64) (*models.Space, error) {
	s, ok := r.spaces[spaceID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSpaceRepo) UpdateSpace(_ context.Context, space *models.Space) error {
	if _, ok := r.spaces[space.ID]; !ok {
		return errors.New("no such space")
	}
	copied := *space
	r.spaces[space.ID] = &copied
	return nil
}

func (r *fakeSpaceRepo) ListSpacesForUser(_ context.Context, uid int64) ([]models.Space, error) {
	var out []models.Space
	for key, m := range r.members {
		if m.UID == uid {
			if s, ok := r.spaces[key[0]]; ok {
				out = append(out, *s)
			}
		}
	}
	return out, nil
}

func (r *fakeSpaceRepo) AddMember(_ context.Context, member *models.SpaceMember) error {
	copied := *member
	r.members[[2]int64{member.SpaceID, member.UID}] = &copied
	return nil
}

func (r *fakeSpaceRepo) GetMember(_ context.Context, spaceID, uid int64) (*models.SpaceMember, error) {
	r.memberLookups++
	m, ok := r.members[[2]int64{spaceID, uid}]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeSpaceRepo) SetMemberRole(_ context.Context, spaceID, uid int64, role int) error {
	m, ok := r.members[[2]int64{spaceID, uid}]
	if !ok {
		return errors.New("no such member")
	}
	m.Role = role
	return nil
}

func (r *fakeSpaceRepo) RemoveMember(_ context.Context, spaceID, uid int64) error {
	delete(r.members, [2]int64{spaceID, uid})
	return nil
}

func (r *fakeSpaceRepo) ListMembers(_ context.Context, spaceID int64) ([]models.SpaceMember, error) {
	var out []models.SpaceMember
	for key, m := range r.members {
		if key[0] == spaceID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func seedSpace(repo *fakeSpaceRepo, othersRead, othersWrite bool) int64 {
	space := &models.Space{Type: models.SpaceTypeGroup, Title: "team", OthersRead: othersRead, OthersWrite: othersWrite}
	_ = repo.CreateSpace(context.Background(), space)
	return space.ID
}

func TestPermissionGate_Roles(t *testing.T) {
	repo := newFakeSpaceRepo()
	spaceID := seedSpace(repo, false, false)
	_ = repo.AddMember(context.Background(), &models.SpaceMember{SpaceID: spaceID, UID: 1, Role: models.RoleCreator})
	_ = repo.AddMember(context.Background(), &models.SpaceMember{SpaceID: spaceID, UID: 2, Role: models.RoleGeneral})

	gate := NewCachedPermissionGate(repo, testRedis(t), time.Minute, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	tests := []struct {
		name                     string
		uid                      int64
		wantRead, wantWrite, wantAdmin bool
	}{
		{"creator", 1, true, true, true},
		{"general member", 2, true, true, false},
		{"outsider on private space", 3, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read, err := gate.CanRead(ctx, spaceID, tt.uid)
			if err != nil || read != tt.wantRead {
				t.Errorf("CanRead = %v, %v; want %v", read, err, tt.wantRead)
			}
			write, err := gate.CanWrite(ctx, spaceID, tt.uid)
			if err != nil || write != tt.wantWrite {
				t.Errorf("CanWrite = %v, %v; want %v", write, err, tt.wantWrite)
			}
			admin, err := gate.CanAdminister(ctx, spaceID, tt.uid)
			if err != nil || admin != tt.wantAdmin {
				t.Errorf("CanAdminister = %v, %v; want %v", admin, err, tt.wantAdmin)
			}
		})
	}
}

func TestPermissionGate_PublicFlags(t *testing.T) {
	repo := newFakeSpaceRepo()
	readable := seedSpace(repo, true, false)
	writable := seedSpace(repo, false, true)

	gate := NewCachedPermissionGate(repo, testRedis(t), time.Minute, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if ok, _ := gate.CanRead(ctx, readable, 9); !ok {
		t.Error("others-read space must be readable by outsiders")
	}
	if ok, _ := gate.CanWrite(ctx, readable, 9); ok {
		t.Error("others-read space must not be writable by outsiders")
	}
	if ok, _ := gate.CanWrite(ctx, writable, 9); !ok {
		t.Error("others-write space must be writable by outsiders")
	}
	if ok, _ := gate.CanAdminister(ctx, writable, 9); ok {
		t.Error("outsiders never administer")
	}
}

func TestPermissionGate_MissingSpace(t *testing.T) {
	gate := NewCachedPermissionGate(newFakeSpaceRepo(), testRedis(t), time.Minute, slog.New(slog.DiscardHandler))

	_, err := gate.CanRead(context.Background(), 404, 1)
	if !errors.Is(err, domain.ErrSpaceNotExist) {
		t.Fatalf("err = %v, want ErrSpaceNotExist", err)
	}
}

func TestPermissionGate_CachesAndInvalidates(t *testing.T) {
	repo := newFakeSpaceRepo()
	spaceID := seedSpace(repo, false, false)
	_ = repo.AddMember(context.Background(), &models.SpaceMember{SpaceID: spaceID, UID: 1, Role: models.RoleGeneral})

	gate := NewCachedPermissionGate(repo, testRedis(t), time.Minute, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if ok, _ := gate.CanWrite(ctx, spaceID, 1); !ok {
		t.Fatal("member must write")
	}
	lookups := repo.memberLookups
	if ok, _ := gate.CanRead(ctx, spaceID, 1); !ok {
		t.Fatal("member must read")
	}
	if repo.memberLookups != lookups {
		t.Error("second check should be served from cache")
	}

	// After removal plus invalidation the gate re-computes and denies.
	_ = repo.RemoveMember(ctx, spaceID, 1)
	gate.Invalidate(ctx, spaceID, 1)
	if ok, _ := gate.CanWrite(ctx, spaceID, 1); ok {
		t.Error("removed member must not write")
	}
}

func TestPermissionGate_NoCacheBackend(t *testing.T) {
	repo := newFakeSpaceRepo()
	spaceID := seedSpace(repo, true, false)

	gate := NewCachedPermissionGate(repo, nil, time.Minute, slog.New(slog.DiscardHandler))
	if ok, err := gate.CanRead(context.Background(), spaceID, 5); err != nil || !ok {
		t.Fatalf("gate without redis: ok=%v err=%v", ok, err)
	}
}
