package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"folio/api/internal/app"
	"folio/api/internal/config"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/logging"
	"folio/api/internal/manuscript"
	"folio/api/internal/notify"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/storage"
	"folio/api/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("folio api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db.DB); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return err
	}

	dataStore := store.NewPostgresStore(db)

	var index search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		index = meili
	}
	searchService := search.NewService(index, search.NewPgFTS(db), logger)

	var sessions app.SessionStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		logger.Info("using postgresql for session storage")
	}

	var files app.FileStore
	if cfg.StorageEnabled() {
		minio, err := storage.NewMinio(storage.Config{
			Endpoint:    cfg.S3Endpoint,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			Bucket:      cfg.S3Bucket,
			Region:      cfg.S3Region,
			UseSSL:      cfg.S3UseSSL,
			UploadTTL:   cfg.UploadURLTTL,
			DownloadTTL: cfg.DownloadURLTTL,
		})
		if err != nil {
			return err
		}
		if err := minio.EnsureBucket(ctx); err != nil {
			return err
		}
		files = minio
	} else {
		logger.Warn("object storage disabled, uploads unavailable")
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		AppURL:   cfg.AppURL,
	})
	if !mailer.IsConfigured() {
		logger.Warn("smtp not configured, email disabled")
	}

	archive := manuscript.New(cfg.ArchiveDir)

	events := notify.NewBroadcaster(logger)
	events.Subscribe("outbox", notify.NewOutbox(dataStore, mailer, logger))
	events.Subscribe("search", notify.SearchSubscriber(searchService))
	events.Subscribe("archive", notify.ArchiveSubscriber(archive, dataStore, logger))

	service := app.New(cfg, app.Deps{
		Store:     dataStore,
		Sessions:  sessions,
		Files:     files,
		Search:    searchService,
		Archive:   archive,
		Publisher: events,
		Exporter:  export.NewService(),
		Mailer:    mailer,
	}, logger)
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap failed, will retry on next restart", "error", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("folio api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
