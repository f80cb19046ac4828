package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contentcal/api/internal/app"
	"contentcal/api/internal/assets"
	"contentcal/api/internal/authpw"
	"contentcal/api/internal/config"
	"contentcal/api/internal/email"
	"contentcal/api/internal/export"
	"contentcal/api/internal/genai"
	"contentcal/api/internal/search"
	"contentcal/api/internal/session"
	"contentcal/api/internal/snapshot"
	"contentcal/api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: .env not loaded: %v", err)
	}
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.SnapshotsDir, 0o755); err != nil {
		log.Fatalf("failed to create snapshots dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	archive := snapshot.New(cfg.SnapshotsDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}
	searchService.ReindexAllFromPG(ctx)

	var service *app.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		service = app.NewWithSessionStore(cfg, dataStore, redisStore, archive, searchService)
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
		service = app.New(cfg, dataStore, archive, searchService)
	}

	service.SetAuthService(authpw.NewService(dataStore, cfg.JWTSecret))
	service.SetReportService(export.NewService())

	emailService := email.NewService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		EnableTLS: true,
	})
	service.SetEmailService(emailService)
	if !emailService.IsConfigured() {
		log.Printf("SMTP not configured, verification and notification emails disabled")
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		assetService, err := assets.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object storage init failed: %v", err)
		}
		if err := assetService.EnsureBucket(ctx); err != nil {
			log.Fatalf("object storage bucket check failed: %v", err)
		}
		service.SetAssetService(assetService)
	} else {
		log.Printf("MINIO_ENDPOINT not set, asset uploads disabled")
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		textService, err := genai.NewTextService(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("text generation init failed: %v", err)
		}
		defer textService.Close()
		service.SetTextGenerator(textService)
	} else {
		log.Printf("GEMINI_API_KEY not set, content regeneration disabled")
	}

	if strings.TrimSpace(cfg.DashScopeAPIKey) != "" {
		service.SetImageGenerator(genai.NewImageService(cfg.DashScopeAPIKey))
	} else {
		log.Printf("DASHSCOPE_API_KEY not set, image generation disabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("ContentCal API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
