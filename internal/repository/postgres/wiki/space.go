package wiki

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/repository/postgres"
)

// PostgresSpaceRepository implements the SpaceRepository interface
type PostgresSpaceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSpaceRepository creates a new space repository
func NewSpaceRepository(config *postgres.RepositoryConfig) wikiRepo.SpaceRepository {
	return &PostgresSpaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const spaceColumns = "id, type, title, description, others_read, others_write, ctime, mtime"

func (r *PostgresSpaceRepository) CreateSpace(ctx context.Context, space *wiki.Space) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (type, title, description, others_read, others_write)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ctime, mtime
	`, r.tables.Spaces)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		space.Type,
		space.Title,
		space.Desc,
		space.OthersRead,
		space.OthersWrite,
	).Scan(&space.ID, &space.Ctime, &space.Mtime)
	if err != nil {
		return fmt.Errorf("create space: %w", err)
	}
	return nil
}

func (r *PostgresSpaceRepository) GetSpace(ctx context.Context, spaceID int64) (*wiki.Space, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, spaceColumns, r.tables.Spaces)

	var s wiki.Space
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, spaceID).Scan(
		&s.ID, &s.Type, &s.Title, &s.Desc, &s.OthersRead, &s.OthersWrite, &s.Ctime, &s.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get space: %w", err)
	}
	return &s, nil
}

func (r *PostgresSpaceRepository) UpdateSpace(ctx context.Context, space *wiki.Space) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, description = $2, others_read = $3, others_write = $4, mtime = now()
		WHERE id = $5
	`, r.tables.Spaces)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query,
		space.Title,
		space.Desc,
		space.OthersRead,
		space.OthersWrite,
		space.ID,
	)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSpaceNotExist
	}
	return nil
}

func (r *PostgresSpaceRepository) ListSpacesForUser(ctx context.Context, uid int64) ([]wiki.Space, error) {
	query := fmt.Sprintf(`
		SELECT s.id, s.type, s.title, s.description, s.others_read, s.others_write, s.ctime, s.mtime
		FROM %s s
		JOIN %s m ON m.space_id = s.id
		WHERE m.uid = $1
		ORDER BY s.id
	`, r.tables.Spaces, r.tables.SpaceMembers)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []wiki.Space
	for rows.Next() {
		var s wiki.Space
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &s.Desc, &s.OthersRead, &s.OthersWrite, &s.Ctime, &s.Mtime); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

func (r *PostgresSpaceRepository) AddMember(ctx context.Context, member *wiki.SpaceMember) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (space_id, uid, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (space_id, uid) DO UPDATE SET role = EXCLUDED.role, mtime = now()
		RETURNING ctime, mtime
	`, r.tables.SpaceMembers)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		member.SpaceID,
		member.UID,
		member.Role,
	).Scan(&member.Ctime, &member.Mtime)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *PostgresSpaceRepository) GetMember(ctx context.Context, spaceID, uid int64) (*wiki.SpaceMember, error) {
	query := fmt.Sprintf(`
		SELECT space_id, uid, role, ctime, mtime
		FROM %s
		WHERE space_id = $1 AND uid = $2
	`, r.tables.SpaceMembers)

	var m wiki.SpaceMember
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, spaceID, uid).Scan(
		&m.SpaceID, &m.UID, &m.Role, &m.Ctime, &m.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (r *PostgresSpaceRepository) SetMemberRole(ctx context.Context, spaceID, uid int64, role int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET role = $1, mtime = now()
		WHERE space_id = $2 AND uid = $3
	`, r.tables.SpaceMembers)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, role, spaceID, uid)
	if err != nil {
		return fmt.Errorf("set member role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("set member role: no matching row")
	}
	return nil
}

func (r *PostgresSpaceRepository) RemoveMember(ctx context.Context, spaceID, uid int64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE space_id = $1 AND uid = $2
	`, r.tables.SpaceMembers)

	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, spaceID, uid); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (r *PostgresSpaceRepository) ListMembers(ctx context.Context, spaceID int64) ([]wiki.SpaceMember, error) {
	query := fmt.Sprintf(`
		SELECT space_id, uid, role, ctime, mtime
		FROM %s
		WHERE space_id = $1
		ORDER BY role, uid
	`, r.tables.SpaceMembers)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []wiki.SpaceMember
	for rows.Next() {
		var m wiki.SpaceMember
		if err := rows.Scan(&m.SpaceID, &m.UID, &m.Role, &m.Ctime, &m.Mtime); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
