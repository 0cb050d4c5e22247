package wiki

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/repository/postgres"
)

// PostgresTreeRepository implements the TreeRepository interface
type PostgresTreeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewTreeRepository creates a new tree node repository
func NewTreeRepository(config *postgres.RepositoryConfig) wikiRepo.TreeRepository {
	return &PostgresTreeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const treeNodeColumns = "id, space_id, tree_id, pid, type, title, pos, version, deleted, ctime, mtime"

func (r *PostgresTreeRepository) ListNodes(ctx context.Context, spaceID, treeID int64, deleted bool) ([]wiki.TreeNode, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND tree_id = $2 AND deleted = $3
		ORDER BY pos
	`, treeNodeColumns, r.tables.TreeNodes)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, spaceID, treeID, deleted)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []wiki.TreeNode
	for rows.Next() {
		var n wiki.TreeNode
		if err := rows.Scan(
			&n.ID, &n.SpaceID, &n.TreeID, &n.Pid, &n.Type,
			&n.Title, &n.Pos, &n.Version, &n.Deleted, &n.Ctime, &n.Mtime,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return nodes, nil
}

func (r *PostgresTreeRepository) GetNode(ctx context.Context, spaceID, treeID, nodeID int64) (*wiki.TreeNode, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND space_id = $2 AND tree_id = $3 AND deleted = FALSE
	`, treeNodeColumns, r.tables.TreeNodes)

	var n wiki.TreeNode
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, nodeID, spaceID, treeID).Scan(
		&n.ID, &n.SpaceID, &n.TreeID, &n.Pid, &n.Type,
		&n.Title, &n.Pos, &n.Version, &n.Deleted, &n.Ctime, &n.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return &n, nil
}

func (r *PostgresTreeRepository) FindNode(ctx context.Context, spaceID, nodeID int64) (*wiki.TreeNode, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND space_id = $2 AND deleted = FALSE
	`, treeNodeColumns, r.tables.TreeNodes)

	var n wiki.TreeNode
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, nodeID, spaceID).Scan(
		&n.ID, &n.SpaceID, &n.TreeID, &n.Pid, &n.Type,
		&n.Title, &n.Pos, &n.Version, &n.Deleted, &n.Ctime, &n.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find node: %w", err)
	}
	return &n, nil
}

func (r *PostgresTreeRepository) GetRoot(ctx context.Context, spaceID, treeID int64) (*wiki.TreeNode, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND tree_id = $2 AND pid = 0
	`, treeNodeColumns, r.tables.TreeNodes)

	var n wiki.TreeNode
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, spaceID, treeID).Scan(
		&n.ID, &n.SpaceID, &n.TreeID, &n.Pid, &n.Type,
		&n.Title, &n.Pos, &n.Version, &n.Deleted, &n.Ctime, &n.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get root: %w", err)
	}
	return &n, nil
}

func (r *PostgresTreeRepository) InsertNode(ctx context.Context, node *wiki.TreeNode) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (space_id, tree_id, pid, type, title, pos, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, ctime, mtime
	`, r.tables.TreeNodes)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		node.SpaceID,
		node.TreeID,
		node.Pid,
		node.Type,
		node.Title,
		node.Pos,
		node.Version,
	).Scan(&node.ID, &node.Ctime, &node.Mtime)
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

func (r *PostgresTreeRepository) ApplyUpdates(ctx context.Context, spaceID, treeID int64, updates []wiki.NodeUpdate) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	for _, update := range updates {
		sets := []string{"mtime = now()"}
		args := []any{update.NodeID, spaceID, treeID}
		if update.Title != nil {
			args = append(args, *update.Title)
			sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
		}
		if update.Pos != nil {
			args = append(args, *update.Pos)
			sets = append(sets, fmt.Sprintf("pos = $%d", len(args)))
		}
		if update.Pid != nil {
			args = append(args, *update.Pid)
			sets = append(sets, fmt.Sprintf("pid = $%d", len(args)))
		}
		if update.TreeID != nil {
			args = append(args, *update.TreeID)
			sets = append(sets, fmt.Sprintf("tree_id = $%d", len(args)))
		}
		if update.Deleted != nil {
			args = append(args, *update.Deleted)
			sets = append(sets, fmt.Sprintf("deleted = $%d", len(args)))
		}

		query := fmt.Sprintf(`
			UPDATE %s
			SET %s
			WHERE id = $1 AND space_id = $2 AND tree_id = $3
		`, r.tables.TreeNodes, strings.Join(sets, ", "))

		result, err := executor.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update node %d: %w", update.NodeID, err)
		}
		if result.RowsAffected() != 1 {
			return fmt.Errorf("update node %d: no matching row", update.NodeID)
		}
	}
	return nil
}

func (r *PostgresTreeRepository) CompareAndSwapRootVersion(ctx context.Context, spaceID, treeID int64, expected, next string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET version = $1, mtime = now()
		WHERE space_id = $2 AND tree_id = $3 AND pid = 0 AND version = $4
	`, r.tables.TreeNodes)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, next, spaceID, treeID, expected)
	if err != nil {
		return false, fmt.Errorf("swap root version: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PostgresTreeRepository) RetagTree(ctx context.Context, spaceID int64, nodeIDs []int64, newTreeID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET tree_id = $1, mtime = now()
		WHERE space_id = $2 AND id = ANY($3)
	`, r.tables.TreeNodes)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, newTreeID, spaceID, nodeIDs)
	if err != nil {
		return fmt.Errorf("retag nodes: %w", err)
	}
	if int(result.RowsAffected()) != len(nodeIDs) {
		return fmt.Errorf("retag nodes: %d of %d rows matched", result.RowsAffected(), len(nodeIDs))
	}
	return nil
}
