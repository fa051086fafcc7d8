// Package main provides the figure catalog server entry point.
// It hosts the catalog API and the contribution review pipelines
// under a single process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/figuredex/figuredex/pkg/auth"
	"github.com/figuredex/figuredex/pkg/registry"
	"github.com/figuredex/figuredex/pkg/review"
)

func main() {
	var (
		listenAddr   string
		configPath   string
		databaseType string
		databaseDSN  string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&configPath, "config", "", "Path to server config file (optional)")
	flag.StringVar(&databaseType, "db-type", "", "Database type (postgres, mysql, or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := defaultConfig()
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			glog.Fatalf("Failed to load config: %v", err)
		}
		logger.Info("loaded config", "path", configPath)
	}
	cfg.applyOverrides(listenAddr, databaseType, databaseDSN)

	logger.Info("starting figure server",
		"listen", cfg.Listen,
		"dbType", cfg.Database.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := setupDatabase(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	catalog := registry.NewCatalogService(gormDB, logger)
	engine := review.NewEngine(gormDB, logger)

	if err := catalog.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate catalog schema: %v", err)
	}
	if err := engine.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate review schema: %v", err)
	}

	migrated, err := catalog.Users().MigrateLegacyRoles()
	if err != nil {
		glog.Fatalf("Failed to migrate legacy roles: %v", err)
	}
	if migrated > 0 {
		logger.Info("migrated legacy contributor roles", "count", migrated)
	}

	// Set up identity extraction based on AUTH_MODE.
	extractor := auth.HeaderPrincipalExtractor
	authMode := os.Getenv("FIGUREDEX_AUTH_MODE")
	switch authMode {
	case "jwt":
		jwtCfg := auth.JWTExtractorConfig{
			SubjectClaim:  envOrDefault("FIGUREDEX_JWT_SUBJECT_CLAIM", "sub"),
			NameClaim:     envOrDefault("FIGUREDEX_JWT_NAME_CLAIM", "name"),
			RoleClaim:     envOrDefault("FIGUREDEX_JWT_ROLE_CLAIM", "role"),
			PublicKeyPath: os.Getenv("FIGUREDEX_JWT_PUBLIC_KEY_PATH"),
			Issuer:        os.Getenv("FIGUREDEX_JWT_ISSUER"),
			Audience:      os.Getenv("FIGUREDEX_JWT_AUDIENCE"),
			Logger:        logger,
		}
		extractor, err = auth.NewJWTPrincipalExtractor(jwtCfg)
		if err != nil {
			glog.Fatalf("Failed to configure JWT auth: %v", err)
		}
		logger.Info("using JWT auth",
			"roleClaim", jwtCfg.RoleClaim,
			"hasPublicKey", jwtCfg.PublicKeyPath != "")
	case "header", "":
		// Default: identity headers from a trusted proxy (development mode)
		if authMode == "" {
			logger.Info("using default header-based auth (X-User-Id / X-User-Role)")
		}
	default:
		glog.Fatalf("Unknown auth mode: %q (expected jwt, header, or empty)", authMode)
	}

	router := buildRouter(catalog, engine, extractor, gormDB)

	logger.Info("figure server ready", "listen", cfg.Listen)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("figure server stopped")
}

func buildRouter(catalog *registry.CatalogService, engine *review.Engine, extractor auth.PrincipalExtractor, gormDB *gorm.DB) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.UserIDHeader, auth.UserNameHeader, auth.RoleHeader},
		MaxAge:         300,
	}))
	r.Use(auth.IdentityMiddleware(extractor))

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		sqlDB, err := gormDB.DB()
		if err == nil {
			err = sqlDB.PingContext(req.Context())
		}
		if err != nil {
			registry.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		registry.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/", registry.NewRouter(catalog))
		r.Mount("/review", review.NewRouter(engine))
	})

	return r
}

func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
	}

	if dbType == "" {
		dbType = os.Getenv("DATABASE_TYPE")
		if dbType == "" {
			dbType = "postgres"
		}
	}

	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q (expected postgres, mysql, or sqlite)", dbType)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return gormDB, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
