package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/artifact"
	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/logging"
	"github.com/Skufu/GlucoRisk/internal/metrics"
	"github.com/Skufu/GlucoRisk/internal/predict"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

const (
	sourceFile     = "file"
	sourcePostgres = "postgres"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port           string
	ArtifactSource string
	DatabaseURL    string
	ArtifactName   string
	ModelPath      string
	SchemaPath     string
	ModelFormat    string
	StaticRoot     string
	Log            logging.Config
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var (
		src artifact.Source
		db  HealthChecker
	)
	switch cfg.ArtifactSource {
	case sourcePostgres:
		pool, err := artifact.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		store := artifact.NewStore(pool, cfg.ArtifactName)
		src, db = store, store
	default:
		src = artifact.FileSource{
			ModelPath:   cfg.ModelPath,
			SchemaPath:  cfg.SchemaPath,
			ModelFormat: cfg.ModelFormat,
		}
	}

	bundle, err := artifact.Load(ctx, src)
	if err != nil {
		logger.Fatal("loading model artifacts failed", zap.String("source", src.String()), zap.Error(err))
	}
	logger.Info("model artifacts loaded",
		zap.String("source", bundle.Source),
		zap.String("format", bundle.ModelFormat),
		zap.Int("columns", bundle.Schema.Len()))

	m := metrics.New()
	m.SetSchemaColumns(bundle.Schema.Len())

	router := setupRouter(routerDeps{
		predictor:  predict.New(bundle, predict.WithLogger(logger), predict.WithMetrics(m)),
		catalog:    features.DefaultCatalog(),
		db:         db,
		metrics:    m,
		logger:     logger,
		staticRoot: cfg.StaticRoot,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("port", cfg.Port))
	waitForShutdown(server, logger)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		ArtifactSource: strings.ToLower(getEnv("ARTIFACT_SOURCE", sourceFile)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ArtifactName:   getEnv("ARTIFACT_NAME", "v1"),
		ModelPath:      getEnv("MODEL_PATH", artifact.DefaultModelPath),
		SchemaPath:     getEnv("SCHEMA_PATH", artifact.DefaultSchemaPath),
		ModelFormat:    getEnv("MODEL_FORMAT", risk.FormatXGBoost),
		StaticRoot:     getEnv("STATIC_ROOT", detectStaticRoot()),
		Log: logging.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	switch cfg.ArtifactSource {
	case sourceFile:
	case sourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when ARTIFACT_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("ARTIFACT_SOURCE must be %q or %q, got %q", sourceFile, sourcePostgres, cfg.ArtifactSource)
	}

	return cfg, nil
}

func waitForShutdown(server *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// detectStaticRoot finds the web/ directory when the binary runs from the
// repository root or from cmd/server.
func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "web"
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		web := filepath.Join(dir, "web")
		if fileExists(filepath.Join(web, "index.html")) {
			return web
		}
	}

	return filepath.Join(startDir, "web")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
