package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/providers/appscript"
	"journal-desk/providers/sheets"
	"journal-desk/providers/unpaywall"
	"journal-desk/services"
	"journal-desk/storage"
)

type appStore interface {
	bookmarkStore
	sessionStore
	services.SnapshotStore
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Storage
	var store appStore
	if cfg.DatabaseEnabled() {
		db, err := storage.OpenPostgres(cfg, logging)
		if err != nil {
			logging.Fatal("Failed to connect to database", zap.Error(err))
		}
		store = storage.NewPostgresStore(db)
	} else {
		logging.Info("Kein DB_HOST gesetzt, verwende In-Memory-Speicher")
		store = storage.NewMemoryStore()
	}

	// Setup Catalog
	catalog := services.NewCatalogService(sheets.NewFetcher(cfg, logging), cfg.CronSchedule, logging)
	catalog.Store = store
	if cfg.EnrichmentEnabled() {
		catalog.Enricher = services.NewEnricher(unpaywall.NewFetcher(cfg, logging), logging)
	}
	if cfg.ArchiveEnabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		catalog.Archive = storage.NewArchive(s3Client, cfg, logging)
	}
	if err := catalog.Start(ctx); err != nil {
		logging.Fatal("Catalog start failed", zap.Error(err))
	}
	defer catalog.Stop()

	router := newRouter(cfg, catalog, store, appscript.NewClient(cfg, logging), logging)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, catalog *services.CatalogService, store appStore, auth authBackend, logging *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupHealthRoutes(router, catalog)
	setupCatalogRoutes(router, cfg, catalog, logging)
	setupBookmarkRoutes(router, store, store, catalog, logging)
	setupAuthRoutes(router, auth, logging)
	return router
}
