package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/blob"
	"inkwell/internal/config"
	"inkwell/internal/handler"
	"inkwell/internal/httputil"
	"inkwell/internal/middleware"
	wikiSvc "inkwell/internal/domain/services/wiki"
	"inkwell/internal/repository/postgres"
	postgresWiki "inkwell/internal/repository/postgres/wiki"
	"inkwell/internal/search"
	serviceWiki "inkwell/internal/service/wiki"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logWriter io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 7)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logWriter = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	treeRepo := postgresWiki.NewTreeRepository(repoConfig)
	articleRepo := postgresWiki.NewArticleRepository(repoConfig)
	spaceRepo := postgresWiki.NewSpaceRepository(repoConfig)
	attachRepo := postgresWiki.NewAttachmentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Permission cache (optional; falls back to direct lookups)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, permission caching degraded", "error", err)
		} else {
			logger.Info("permission cache connected", "addr", cfg.RedisAddr)
		}
	}
	gate := serviceWiki.NewCachedPermissionGate(spaceRepo, rdb, cfg.PermCacheTTL, logger)

	// Full-text search (optional; no-op without a backend)
	var notifier search.Notifier = search.Nop{}
	var searcher search.Searcher = search.Nop{}
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliKey, logger)
		defer meili.Close()
		notifier, searcher = meili, meili
		logger.Info("search index connected", "url", cfg.MeiliURL)
	}

	// Attachment blob store (optional; uploads disabled without it)
	var attachmentService wikiSvc.AttachmentService
	if cfg.MinioEndpoint != "" {
		store, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to create blob store: %v", err)
		}
		attachmentService = serviceWiki.NewAttachmentService(attachRepo, gate, store, logger)
		logger.Info("blob store connected", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	// Create wiki services
	spaceService := serviceWiki.NewSpaceService(spaceRepo, treeRepo, txManager, gate, gate, notifier, logger)
	treeService := serviceWiki.NewTreeService(treeRepo, txManager, gate, notifier, logger)
	articleService := serviceWiki.NewArticleService(articleRepo, treeRepo, txManager, gate, attachmentService, notifier, logger)

	// Create handlers
	spaceHandler := handler.NewSpaceHandler(spaceService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)
	articleHandler := handler.NewArticleHandler(articleService, logger)
	searchHandler := handler.NewSearchHandler(searcher, gate, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Space routes
	mux.HandleFunc("POST /api/spaces", spaceHandler.CreateSpace)
	mux.HandleFunc("GET /api/spaces", spaceHandler.ListMySpaces)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}", spaceHandler.UpdateSpace)
	mux.HandleFunc("GET /api/spaces/{spaceId}/members", spaceHandler.ListMembers)
	mux.HandleFunc("POST /api/spaces/{spaceId}/members", spaceHandler.AddMember)
	mux.HandleFunc("DELETE /api/spaces/{spaceId}/members/{uid}", spaceHandler.RemoveMember)
	mux.HandleFunc("POST /api/spaces/{spaceId}/trees", spaceHandler.CreateTree)

	// Tree routes
	mux.HandleFunc("GET /api/spaces/{spaceId}/trees/{treeId}", treeHandler.GetTree)
	mux.HandleFunc("GET /api/spaces/{spaceId}/trees/{treeId}/version", treeHandler.GetTreeVersion)
	mux.HandleFunc("GET /api/spaces/{spaceId}/trees/{treeId}/trash", treeHandler.GetTrash)
	mux.HandleFunc("POST /api/spaces/{spaceId}/trees/{treeId}/nodes", treeHandler.AppendNode)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/trees/{treeId}/nodes/{nodeId}/title", treeHandler.RenameNode)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/trees/{treeId}/nodes/{nodeId}/position", treeHandler.MoveNode)
	mux.HandleFunc("DELETE /api/spaces/{spaceId}/trees/{treeId}/nodes/{nodeId}", treeHandler.RemoveNode)
	mux.HandleFunc("POST /api/spaces/{spaceId}/trees/{treeId}/nodes/{nodeId}/restore", treeHandler.RestoreNode)
	mux.HandleFunc("POST /api/spaces/{spaceId}/nodes/{nodeId}/move-tree", treeHandler.MoveNodeToTree)

	// Article routes
	mux.HandleFunc("GET /api/spaces/{spaceId}/nodes/{nodeId}/articles", articleHandler.ListArticles)
	mux.HandleFunc("GET /api/spaces/{spaceId}/nodes/{nodeId}/articles/versions", articleHandler.ListVersions)
	mux.HandleFunc("POST /api/spaces/{spaceId}/nodes/{nodeId}/articles", articleHandler.CreateArticle)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}", articleHandler.UpdateArticle)
	mux.HandleFunc("DELETE /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}", articleHandler.DeleteArticle)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}/position", articleHandler.MoveArticle)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}/node", articleHandler.MoveArticleToNode)
	mux.HandleFunc("PATCH /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}/level", articleHandler.SetLevel)
	mux.HandleFunc("GET /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}/history", articleHandler.GetHistory)

	// Attachment routes (only when a blob store is configured)
	if attachmentService != nil {
		attachmentHandler := handler.NewAttachmentHandler(attachmentService, logger)
		mux.HandleFunc("POST /api/spaces/{spaceId}/attachments", attachmentHandler.Upload)
		mux.HandleFunc("GET /api/attachments/{attachmentId}", attachmentHandler.Download)
		mux.HandleFunc("GET /api/spaces/{spaceId}/nodes/{nodeId}/articles/{articleId}/attachments", attachmentHandler.ListForArticle)
	}

	// Search routes
	mux.HandleFunc("GET /api/spaces/{spaceId}/search", searchHandler.Search)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
