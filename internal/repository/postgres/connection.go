package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	TreeNodes      string
	Articles       string
	ArticleHistory string
	Spaces         string
	SpaceMembers   string
	Attachments    string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		TreeNodes:      fmt.Sprintf("%stree_nodes", prefix),
		Articles:       fmt.Sprintf("%sarticles", prefix),
		ArticleHistory: fmt.Sprintf("%sarticle_history", prefix),
		Spaces:         fmt.Sprintf("%sspaces", prefix),
		SpaceMembers:   fmt.Sprintf("%sspace_members", prefix),
		Attachments:    fmt.Sprintf("%sattachments", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool.
//
// When the connection goes through a transaction-pooling PgBouncer (port
// 6543), prepared statements break with "prepared statement already
// exists". QueryExecModeCacheDescribe keeps the extended protocol (needed
// for JSONB parameters) while staying pooler-compatible, so it is applied
// automatically for that port unless the connection string overrides the
// mode explicitly.
//
// The fmt.Sprintf table-name interpolation used across the repositories is
// safe with prepared statements: names are fixed per environment before
// the SQL ever reaches the server.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
// This enables repositories to automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
