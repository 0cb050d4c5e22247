package wiki

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/repository/postgres"
)

// PostgresAttachmentRepository implements the AttachmentRepository interface
type PostgresAttachmentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewAttachmentRepository creates a new attachment metadata repository
func NewAttachmentRepository(config *postgres.RepositoryConfig) wikiRepo.AttachmentRepository {
	return &PostgresAttachmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const attachmentColumns = "id, space_id, node_id, article_id, original_filename, store_key, extension, size, uploader, deleted, ctime, mtime"

func (r *PostgresAttachmentRepository) InsertAttachment(ctx context.Context, attachment *wiki.Attachment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (space_id, node_id, article_id, original_filename, store_key, extension, size, uploader)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, ctime, mtime
	`, r.tables.Attachments)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		attachment.SpaceID,
		attachment.NodeID,
		attachment.ArticleID,
		attachment.OriginalFilename,
		attachment.StoreKey,
		attachment.Extension,
		attachment.Size,
		attachment.Uploader,
	).Scan(&attachment.ID, &attachment.Ctime, &attachment.Mtime)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *PostgresAttachmentRepository) GetAttachment(ctx context.Context, attachmentID int64) (*wiki.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, attachmentColumns, r.tables.Attachments)

	var a wiki.Attachment
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, attachmentID).Scan(
		&a.ID, &a.SpaceID, &a.NodeID, &a.ArticleID, &a.OriginalFilename, &a.StoreKey,
		&a.Extension, &a.Size, &a.Uploader, &a.Deleted, &a.Ctime, &a.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &a, nil
}

func (r *PostgresAttachmentRepository) ListArticleAttachments(ctx context.Context, spaceID, nodeID, articleID int64) ([]wiki.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND node_id = $2 AND article_id = $3 AND deleted = FALSE
		ORDER BY id
	`, attachmentColumns, r.tables.Attachments)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, spaceID, nodeID, articleID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []wiki.Attachment
	for rows.Next() {
		var a wiki.Attachment
		if err := rows.Scan(
			&a.ID, &a.SpaceID, &a.NodeID, &a.ArticleID, &a.OriginalFilename, &a.StoreKey,
			&a.Extension, &a.Size, &a.Uploader, &a.Deleted, &a.Ctime, &a.Mtime,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

func (r *PostgresAttachmentRepository) LinkToArticle(ctx context.Context, spaceID, nodeID, articleID int64, attachmentIDs []int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET node_id = $1, article_id = $2, mtime = now()
		WHERE space_id = $3 AND id = ANY($4)
	`, r.tables.Attachments)

	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, nodeID, articleID, spaceID, attachmentIDs); err != nil {
		return fmt.Errorf("link attachments: %w", err)
	}
	return nil
}
