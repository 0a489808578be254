package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/socialtracker/socialtracker/internal/httpapi"
	"github.com/socialtracker/socialtracker/internal/ingest"
	"github.com/socialtracker/socialtracker/internal/tracker"
)

func main() {
	loadEnvFiles()
	logger := newLogger()

	addr := envOrDefault("TRACKER_ADDR", ":8080")
	dsn := envOrDefault("TRACKER_DB_DSN", "social_tracker.db")

	store, err := tracker.BuildStoreFromDSN(dsn)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()

	cfg := ingest.DefaultMappingConfig()
	if mappingFile := strings.TrimSpace(os.Getenv("TRACKER_MAPPING_FILE")); mappingFile != "" {
		cfg, err = ingest.LoadMappingConfig(mappingFile)
		if err != nil {
			log.Fatalf("failed to load mapping config: %v", err)
		}
		logger.WithField("file", mappingFile).Info("mapping config loaded")
	}

	hub := tracker.NewUploadHub()
	ingestor := ingest.NewIngestor(cfg, store, hub, logger)

	if watchDir := strings.TrimSpace(os.Getenv("TRACKER_WATCH_DIR")); watchDir != "" {
		watcher, err := ingest.NewWatcher(watchDir, ingestor, logger)
		if err != nil {
			log.Fatalf("failed to watch %s: %v", watchDir, err)
		}
		go func() {
			if err := watcher.Run(context.Background()); err != nil && err != context.Canceled {
				logger.WithError(err).Error("watcher stopped")
			}
		}()
		logger.WithField("dir", watchDir).Info("watching inbox folder")
	}

	server := httpapi.NewServer(store, ingestor, hub, httpapi.ServerConfig{
		APIToken:     strings.TrimSpace(os.Getenv("TRACKER_API_TOKEN")),
		MaxBodyBytes: int64Env("TRACKER_MAX_BODY_BYTES", 0),
	}, logger)

	logger.WithFields(logrus.Fields{"addr": addr, "dsn": dsn}).Info("socialtracker listening")
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func loadEnvFiles() {
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Overload(file)
	}
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func int64Env(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", name, raw, fallback)
		return fallback
	}
	return value
}
