package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"inkwell/internal/config"
	wikiModels "inkwell/internal/domain/models/wiki"
	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/repository/postgres"
	postgresWiki "inkwell/internal/repository/postgres/wiki"
	"inkwell/internal/search"
	serviceWiki "inkwell/internal/service/wiki"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo content")
	seedUID := flag.Int64("uid", 1, "User id to own the demo space")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: Cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories and services; seeding goes through the service
	// layer so positions and version tokens come out the same as in
	// normal operation.
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	spaceRepo := postgresWiki.NewSpaceRepository(repoConfig)
	treeRepo := postgresWiki.NewTreeRepository(repoConfig)
	articleRepo := postgresWiki.NewArticleRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	gate := serviceWiki.NewCachedPermissionGate(spaceRepo, nil, 0, logger)
	spaceService := serviceWiki.NewSpaceService(spaceRepo, treeRepo, txManager, gate, gate, search.Nop{}, logger)
	treeService := serviceWiki.NewTreeService(treeRepo, txManager, gate, search.Nop{}, logger)
	articleService := serviceWiki.NewArticleService(articleRepo, treeRepo, txManager, gate, nil, search.Nop{}, logger)

	uid := *seedUID
	space, err := spaceService.CreateSpace(ctx, uid, &wikiSvc.CreateSpaceRequest{
		Type:       wikiModels.SpaceTypeGroup,
		Title:      "Getting Started",
		Desc:       "A demo space with a small page tree",
		OthersRead: true,
	})
	if err != nil {
		log.Fatalf("Failed to create demo space: %v", err)
	}
	log.Printf("Created space %d", space.ID)

	tree, err := treeService.GetTree(ctx, uid, space.ID, wikiModels.TreeMain)
	if err != nil {
		log.Fatalf("Failed to load tree: %v", err)
	}
	rootID, version := tree.ID, tree.Version

	pages := []struct {
		title string
		body  string
	}{
		{"Welcome", "This space shows how pages, ordering and history work."},
		{"Writing pages", "Every page lives on a tree node. Drag nodes to reorder them."},
		{"Collaboration", "Concurrent edits are detected and the later writer is asked to reload."},
	}
	for _, page := range pages {
		node, err := treeService.AppendChildNode(ctx, uid, &wikiSvc.AppendNodeRequest{
			SpaceID:     space.ID,
			TreeID:      wikiModels.TreeMain,
			TreeVersion: version,
			Pid:         rootID,
			Title:       page.title,
			Type:        wikiModels.NodeTypeArticlePage,
		})
		if err != nil {
			log.Fatalf("Failed to create node %q: %v", page.title, err)
		}
		version = node.TreeVersion

		_, err = articleService.AddArticle(ctx, uid, &wikiSvc.AddArticleRequest{
			SpaceID: space.ID,
			NodeID:  node.NodeID,
			Type:    wikiModels.ArticleTypeMarkdown,
			Content: wikiModels.ArticleContent{
				Title:  page.title,
				Body:   page.body,
				Search: page.body,
			},
		})
		if err != nil {
			log.Fatalf("Failed to create article %q: %v", page.title, err)
		}
		log.Printf("Created page %q (node %d)", page.title, node.NodeID)
	}

	log.Println("Seeding complete")
}

// runSchema creates tables if they don't exist. Mirrors db/migrations but
// with the environment's table prefix applied.
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Spaces + ` (
			id BIGSERIAL PRIMARY KEY,
			type INT NOT NULL DEFAULT 1,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			others_read BOOLEAN NOT NULL DEFAULT FALSE,
			others_write BOOLEAN NOT NULL DEFAULT FALSE,
			ctime TIMESTAMPTZ NOT NULL DEFAULT now(),
			mtime TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.SpaceMembers + ` (
			space_id BIGINT NOT NULL REFERENCES ` + tables.Spaces + ` (id),
			uid BIGINT NOT NULL,
			role INT NOT NULL DEFAULT 3,
			ctime TIMESTAMPTZ NOT NULL DEFAULT now(),
			mtime TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (space_id, uid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.SpaceMembers + `_uid
			ON ` + tables.SpaceMembers + ` (uid)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.TreeNodes + ` (
			id BIGSERIAL PRIMARY KEY,
			space_id BIGINT NOT NULL,
			tree_id BIGINT NOT NULL,
			pid BIGINT NOT NULL DEFAULT 0,
			type INT NOT NULL DEFAULT 1,
			title VARCHAR(200) NOT NULL DEFAULT '',
			pos INT NOT NULL DEFAULT 0,
			version VARCHAR(40) NOT NULL,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			ctime TIMESTAMPTZ NOT NULL DEFAULT now(),
			mtime TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.TreeNodes + `_tree
			ON ` + tables.TreeNodes + ` (space_id, tree_id, deleted)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_` + tables.TreeNodes + `_root
			ON ` + tables.TreeNodes + ` (space_id, tree_id) WHERE pid = 0`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Articles + ` (
			id BIGSERIAL PRIMARY KEY,
			space_id BIGINT NOT NULL,
			node_id BIGINT NOT NULL,
			type INT NOT NULL DEFAULT 1,
			title VARCHAR(200) NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			search TEXT NOT NULL DEFAULT '',
			level INT NOT NULL DEFAULT 0,
			author BIGINT NOT NULL,
			version VARCHAR(40) NOT NULL,
			pos INT NOT NULL DEFAULT 0,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			ctime TIMESTAMPTZ NOT NULL DEFAULT now(),
			stime TIMESTAMPTZ NOT NULL DEFAULT now(),
			mtime TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Articles + `_node
			ON ` + tables.Articles + ` (space_id, node_id, deleted, pos)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.ArticleHistory + ` (
			id BIGSERIAL PRIMARY KEY,
			article_id BIGINT NOT NULL,
			version VARCHAR(40) NOT NULL,
			title VARCHAR(200) NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			search TEXT NOT NULL DEFAULT '',
			author BIGINT NOT NULL,
			stime TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.ArticleHistory + `_article
			ON ` + tables.ArticleHistory + ` (article_id, id DESC)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Attachments + ` (
			id BIGSERIAL PRIMARY KEY,
			space_id BIGINT NOT NULL,
			node_id BIGINT NOT NULL DEFAULT 0,
			article_id BIGINT NOT NULL DEFAULT 0,
			original_filename VARCHAR(255) NOT NULL,
			store_key VARCHAR(255) NOT NULL,
			extension VARCHAR(32) NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			uploader BIGINT NOT NULL,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			ctime TIMESTAMPTZ NOT NULL DEFAULT now(),
			mtime TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Attachments + `_article
			ON ` + tables.Attachments + ` (space_id, article_id, deleted)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// dropAllTables drops the wiki tables in dependency order.
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	names := []string{
		tables.Attachments,
		tables.ArticleHistory,
		tables.Articles,
		tables.TreeNodes,
		tables.SpaceMembers,
		tables.Spaces,
	}
	for _, name := range names {
		if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS `+name+` CASCADE`); err != nil {
			return err
		}
	}
	return nil
}
