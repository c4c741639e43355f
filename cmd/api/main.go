package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/automaton-forensics/internal/application"
	appai "github.com/bryanwahyu/automaton-forensics/internal/application/ai"
	appanalysis "github.com/bryanwahyu/automaton-forensics/internal/application/analysis"
	"github.com/bryanwahyu/automaton-forensics/internal/config"
	domai "github.com/bryanwahyu/automaton-forensics/internal/domain/ai"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	openaiClient "github.com/bryanwahyu/automaton-forensics/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-forensics/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/automaton-forensics/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/executor/docker"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/executor/process"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/storage"
	"github.com/bryanwahyu/automaton-forensics/internal/logger"
	"github.com/bryanwahyu/automaton-forensics/internal/middleware"
)

type repositories struct {
	reports  forensics.Repository
	failures failures.Repository
	analyst  analyst.Repository
	db       *sql.DB
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		stdlog.Fatalf("config load error: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		stdlog.Fatalf("logger init error: %v", err)
	}

	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	uploads, err := storage.NewDir(cfg.Analysis.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("upload dir init failed")
	}

	registry, err := forensics.DefaultRegistry(cfg.ExtraTools())
	if err != nil {
		log.WithError(err).Fatal("tool registry init failed")
	}

	health := map[string]middleware.HealthChecker{
		"uploads": &middleware.DirHealthChecker{Dir: uploads.Root()},
	}
	if repos.db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: repos.db}
	}

	var runner forensics.Runner = process.NewRunner(cfg.ToolTimeout(), log)
	if img := cfg.Analysis.SandboxImage; img != "" {
		mounts := []string{uploads.Root()}
		if cfg.Analysis.SamplePath != "" {
			mounts = append(mounts, filepath.Dir(cfg.Analysis.SamplePath))
		}
		runner = docker.NewRunner(runner, img, mounts, log)
		log.WithField("image", img).Info("tools run inside container sandbox")
	}

	svc := &appanalysis.Service{
		Dispatcher: &appanalysis.Dispatcher{
			Registry: registry,
			Runner:   runner,
			Log:      log,
		},
		Uploads:    uploads,
		Reports:    uploads,
		Repo:       repos.reports,
		Failures:   repos.failures,
		Clock:      application.SystemClock{},
		SamplePath: cfg.Analysis.SamplePath,
		Log:        log,
	}

	// minio opsional
	if cfg.MinioEnabled() {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			log,
		)
		if err != nil {
			log.WithError(err).Fatal("minio init failed")
		}
		svc.Artifacts = store
		health["minio"] = store
	}

	// tanpa API key, triage pakai heuristik lokal
	var triage domai.Client = prompt.LocalAnalyzer{}
	if cfg.OpenAI.APIKey != "" {
		triage = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	}
	aiSvc := appai.NewService(triage, repos.analyst, repos.reports, application.SystemClock{}, log)
	log.WithField("model", triage.Model()).Info("triage enabled")

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	defer limiter.Stop()

	handler := httpserver.NewRouter(httpserver.Options{
		Analysis:       svc,
		AI:             aiSvc,
		Registry:       registry,
		SamplePath:     cfg.Analysis.SamplePath,
		MaxUploadBytes: cfg.Analysis.MaxUploadMB << 20,
		APIKeys:        cfg.Auth.APIKeys,
		Limiter:        limiter,
		Health:         health,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// analisis bisa lama: satu tool sampai timeout, tool dijalankan berurutan
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// run server
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "tools": len(registry.Names())}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

// openRepositories picks the index backend from database.driver; empty
// means in-memory.
func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return repositories{}, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return repositories{}, fmt.Errorf("mysql migrate: %w", err)
		}
		return repositories{
			reports:  mysqlp.NewReportRepository(db),
			failures: mysqlp.NewFailureRepository(db),
			analyst:  mysqlp.NewAnalystRepository(db),
			db:       db,
		}, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return repositories{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pgp.Migrate(ctx, db); err != nil {
			db.Close()
			return repositories{}, fmt.Errorf("postgres migrate: %w", err)
		}
		return repositories{
			reports:  pgp.NewReportRepository(db),
			failures: pgp.NewFailureRepository(db),
			analyst:  pgp.NewAnalystRepository(db),
			db:       db,
		}, nil
	default:
		return repositories{
			reports:  memory.NewReportRepository(cfg.Database.MemoryMaxReports),
			failures: memory.NewFailureRepository(),
			analyst:  memory.NewAnalystRepository(),
		}, nil
	}
}
