// Package main provides the docuvault server entry point. It hosts the
// document, workflow, notification, and sweep APIs in a single process.
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
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/expiry"
	"github.com/docuvault/docuvault/pkg/ha"
	"github.com/docuvault/docuvault/pkg/notify"
	"github.com/docuvault/docuvault/pkg/session"
	"github.com/docuvault/docuvault/pkg/storage"
	"github.com/docuvault/docuvault/pkg/workflow"
)

func main() {
	var (
		listenAddr    string
		workflowsPath string
		databaseType  string
		databaseDSN   string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&workflowsPath, "workflows", "/config/workflows.yaml", "Path to workflow definitions config")
	flag.StringVar(&databaseType, "db-type", "", "Database type (postgres, mysql, or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.Parse()

	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting docuvault server",
		"listen", listenAddr,
		"workflows", workflowsPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	registry, err := workflow.LoadDefinitions(workflowsPath)
	if err != nil {
		glog.Fatalf("Failed to load workflow definitions: %v", err)
	}
	logger.Info("loaded workflow definitions", "count", len(registry.List()))

	// Stores and migrations.
	documentStore := docs.NewDocumentStore(gormDB)
	versionStore := docs.NewVersionStore(gormDB)
	activityStore := docs.NewActivityStore(gormDB)
	notificationStore := notify.NewNotificationStore(gormDB)
	instanceStore := workflow.NewInstanceStore(gormDB)
	sweepStore := expiry.NewSweepStore(gormDB)

	var locker ha.MigrationLocker
	if ha.MigrationLockEnabled() {
		locker = ha.NewMigrationLocker(gormDB)
	} else {
		locker = ha.NewMigrationLocker(nil)
	}
	err = locker.WithLock(ctx, func() error {
		if err := documentStore.AutoMigrate(); err != nil {
			return fmt.Errorf("document tables: %w", err)
		}
		if err := notificationStore.AutoMigrate(); err != nil {
			return fmt.Errorf("notification tables: %w", err)
		}
		if err := instanceStore.AutoMigrate(); err != nil {
			return fmt.Errorf("workflow tables: %w", err)
		}
		if err := sweepStore.AutoMigrate(); err != nil {
			return fmt.Errorf("sweep tables: %w", err)
		}
		return nil
	})
	if err != nil {
		glog.Fatalf("Failed to migrate database schema: %v", err)
	}

	// Services.
	emitter := notify.NewEmitter(notificationStore)
	lifecycle := docs.NewLifecycleService(documentStore, activityStore, emitter)
	checkout := docs.NewCheckoutService(documentStore, versionStore, activityStore)
	engine := workflow.NewEngine(registry, instanceStore, documentStore, lifecycle, emitter, logger)

	sweepCfg := expiry.SweepConfigFromEnv()
	sweeper := expiry.NewSweeper(documentStore, lifecycle, emitter, sweepStore, sweepCfg, logger)
	go sweeper.Run(ctx)

	verifier, err := session.NewServiceTokenVerifier(session.ServiceTokenConfig{
		PublicKeyPath: os.Getenv("DOCUVAULT_SERVICE_TOKEN_PUBLIC_KEY_PATH"),
		Issuer:        os.Getenv("DOCUVAULT_SERVICE_TOKEN_ISSUER"),
		Audience:      os.Getenv("DOCUVAULT_SERVICE_TOKEN_AUDIENCE"),
		Logger:        logger,
	})
	if err != nil {
		glog.Fatalf("Failed to create service token verifier: %v", err)
	}

	// Object storage is optional; without it the file endpoints are not mounted.
	var objects docs.ObjectStore
	if endpoint := os.Getenv("DOCUVAULT_S3_ENDPOINT"); endpoint != "" {
		objects, err = storage.NewMinioStore(storage.Config{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("DOCUVAULT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("DOCUVAULT_S3_SECRET_KEY"),
			Bucket:    envOrDefault("DOCUVAULT_S3_BUCKET", "documents"),
			UseSSL:    os.Getenv("DOCUVAULT_S3_USE_SSL") == "true",
		})
		if err != nil {
			glog.Fatalf("Failed to connect to object store: %v", err)
		}
		logger.Info("object storage enabled", "endpoint", endpoint)
	} else {
		logger.Info("object storage disabled, file endpoints not mounted")
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id", "X-User-Name", "X-User-Role"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1alpha1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(session.HeaderResolver{}))
			r.Mount("/documents", docs.NewRouter(documentStore, versionStore, activityStore, checkout, lifecycle, objects))
			r.Mount("/workflows", workflow.NewRouter(engine, instanceStore))
			r.Mount("/notifications", notify.NewRouter(notificationStore))
		})
		r.Mount("/sweep", expiry.NewRouter(sweeper, sweepStore, verifier))
	})

	logger.Info("docuvault server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
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

	logger.Info("docuvault server stopped")
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

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch dbType {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), gormCfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q (expected postgres, mysql, or sqlite)", dbType)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
