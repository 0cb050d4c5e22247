package wiki

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain/models/wiki"
	wikiRepo "inkwell/internal/domain/repositories/wiki"
	"inkwell/internal/repository/postgres"
)

// PostgresArticleRepository implements the ArticleRepository interface
type PostgresArticleRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(config *postgres.RepositoryConfig) wikiRepo.ArticleRepository {
	return &PostgresArticleRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const articleColumns = "id, space_id, node_id, type, title, body, search, level, author, version, pos, deleted, ctime, stime, mtime"

func (r *PostgresArticleRepository) ListArticles(ctx context.Context, spaceID, nodeID int64) ([]wiki.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND node_id = $2 AND deleted = FALSE
		ORDER BY pos
	`, articleColumns, r.tables.Articles)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, spaceID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []wiki.Article
	for rows.Next() {
		var a wiki.Article
		if err := rows.Scan(
			&a.ID, &a.SpaceID, &a.NodeID, &a.Type, &a.Title, &a.Body, &a.Search,
			&a.Level, &a.Author, &a.Version, &a.Pos, &a.Deleted, &a.Ctime, &a.Stime, &a.Mtime,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

func (r *PostgresArticleRepository) ListVersions(ctx context.Context, spaceID, nodeID int64) ([]wiki.ArticleVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, version
		FROM %s
		WHERE space_id = $1 AND node_id = $2 AND deleted = FALSE
		ORDER BY pos
	`, r.tables.Articles)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, spaceID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list article versions: %w", err)
	}
	defer rows.Close()

	var versions []wiki.ArticleVersion
	for rows.Next() {
		var v wiki.ArticleVersion
		if err := rows.Scan(&v.ID, &v.Version); err != nil {
			return nil, fmt.Errorf("scan article version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list article versions: %w", err)
	}
	return versions, nil
}

func (r *PostgresArticleRepository) GetArticle(ctx context.Context, spaceID, nodeID, articleID int64) (*wiki.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND space_id = $2 AND node_id = $3
	`, articleColumns, r.tables.Articles)

	var a wiki.Article
	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, articleID, spaceID, nodeID).Scan(
		&a.ID, &a.SpaceID, &a.NodeID, &a.Type, &a.Title, &a.Body, &a.Search,
		&a.Level, &a.Author, &a.Version, &a.Pos, &a.Deleted, &a.Ctime, &a.Stime, &a.Mtime,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

func (r *PostgresArticleRepository) InsertArticle(ctx context.Context, article *wiki.Article) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (space_id, node_id, type, title, body, search, level, author, version, pos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, ctime, stime, mtime
	`, r.tables.Articles)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		article.SpaceID,
		article.NodeID,
		article.Type,
		article.Title,
		article.Body,
		article.Search,
		article.Level,
		article.Author,
		article.Version,
		article.Pos,
	).Scan(&article.ID, &article.Ctime, &article.Stime, &article.Mtime)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) UpdateContent(ctx context.Context, spaceID, nodeID, articleID int64, expected string, content wiki.ArticleContent, next string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, body = $2, search = $3, version = $4, stime = now(), mtime = now()
		WHERE id = $5 AND space_id = $6 AND node_id = $7 AND deleted = FALSE AND version = $8
	`, r.tables.Articles)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query,
		content.Title,
		content.Body,
		content.Search,
		next,
		articleID,
		spaceID,
		nodeID,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("update article content: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PostgresArticleRepository) InsertHistory(ctx context.Context, history *wiki.ArticleHistory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (article_id, version, title, body, search, author, stime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, r.tables.ArticleHistory)

	err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		history.ArticleID,
		history.Version,
		history.Title,
		history.Body,
		history.Search,
		history.Author,
		history.Stime,
	).Scan(&history.ID)
	if err != nil {
		return fmt.Errorf("insert article history: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) ListHistory(ctx context.Context, articleID int64) ([]wiki.ArticleHistory, error) {
	query := fmt.Sprintf(`
		SELECT id, article_id, version, title, body, search, author, stime
		FROM %s
		WHERE article_id = $1
		ORDER BY id DESC
	`, r.tables.ArticleHistory)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("list article history: %w", err)
	}
	defer rows.Close()

	var history []wiki.ArticleHistory
	for rows.Next() {
		var h wiki.ArticleHistory
		if err := rows.Scan(&h.ID, &h.ArticleID, &h.Version, &h.Title, &h.Body, &h.Search, &h.Author, &h.Stime); err != nil {
			return nil, fmt.Errorf("scan article history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list article history: %w", err)
	}
	return history, nil
}

func (r *PostgresArticleRepository) ModifyPositions(ctx context.Context, spaceID, nodeID int64, poses map[int64]int) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET pos = $1, mtime = now()
		WHERE id = $2 AND space_id = $3 AND node_id = $4
	`, r.tables.Articles)

	for id, pos := range poses {
		result, err := executor.Exec(ctx, query, pos, id, spaceID, nodeID)
		if err != nil {
			return fmt.Errorf("update article %d position: %w", id, err)
		}
		if result.RowsAffected() != 1 {
			return fmt.Errorf("update article %d position: no matching row", id)
		}
	}
	return nil
}

func (r *PostgresArticleRepository) SetLevel(ctx context.Context, spaceID, nodeID, articleID int64, level int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET level = $1, mtime = now()
		WHERE id = $2 AND space_id = $3 AND node_id = $4 AND deleted = FALSE
	`, r.tables.Articles)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, level, articleID, spaceID, nodeID)
	if err != nil {
		return fmt.Errorf("set article level: %w", err)
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("set article level: no matching row")
	}
	return nil
}

func (r *PostgresArticleRepository) SetNode(ctx context.Context, spaceID, articleID, newNodeID int64, pos int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET node_id = $1, pos = $2, mtime = now()
		WHERE id = $3 AND space_id = $4 AND deleted = FALSE
	`, r.tables.Articles)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, newNodeID, pos, articleID, spaceID)
	if err != nil {
		return fmt.Errorf("set article node: %w", err)
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("set article node: no matching row")
	}
	return nil
}

func (r *PostgresArticleRepository) SoftDelete(ctx context.Context, spaceID, nodeID, articleID int64, expected string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted = TRUE, mtime = now()
		WHERE id = $1 AND space_id = $2 AND node_id = $3 AND deleted = FALSE AND version = $4
	`, r.tables.Articles)

	result, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, articleID, spaceID, nodeID, expected)
	if err != nil {
		return false, fmt.Errorf("soft delete article: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
