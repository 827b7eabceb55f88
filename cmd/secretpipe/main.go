package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	awsadapter "github.com/ericfisherdev/secretpipe/internal/adapter/driven/aws"
	cipheradapter "github.com/ericfisherdev/secretpipe/internal/adapter/driven/cipher"
	githubadapter "github.com/ericfisherdev/secretpipe/internal/adapter/driven/github"
	metricsadapter "github.com/ericfisherdev/secretpipe/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/secretpipe/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/secretpipe/internal/adapter/driven/workflowyaml"
	httphandler "github.com/ericfisherdev/secretpipe/internal/adapter/driving/http"
	"github.com/ericfisherdev/secretpipe/internal/application"
	"github.com/ericfisherdev/secretpipe/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing secret key).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"github_web_url", cfg.GitHubWebURL,
		"runner_version", cfg.RunnerVersion,
		"stage_timeout", cfg.StageTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	cipher, err := cipheradapter.New(cfg.SecretKey)
	if err != nil {
		return err
	}
	github, err := githubadapter.NewFactory(cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	recorder := metricsadapter.NewRecorder()

	// 6. Create pipeline service.
	pipeline := application.NewPipelineService(application.PipelineDeps{
		Accounts: sqliteadapter.NewAccountRepo(db),
		Runs:     sqliteadapter.NewProvisioningRepo(db),
		Cipher:   cipher,
		Tokens:   github,
		Cloud:    awsadapter.NewVerifier(slog.Default()),
		Actions:  github,
		Renderer: workflowyaml.NewRenderer(),
		Runner:   application.NewRunnerProvisioner(cfg.RunnerVersion, cfg.GitHubWebURL),
		Recorder: recorder,
	}, application.PipelineConfig{
		StageTimeout:   cfg.StageTimeout,
		WorkflowBranch: cfg.WorkflowBranch,
	})

	// 7. Create HTTP handler.
	apiHandler := httphandler.NewHandler(pipeline, recorder.Handler(), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.StageTimeout*4 + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("secretpipe started", "listen_addr", cfg.ListenAddr)

	// 9. Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received")

	// 10. Graceful shutdown with 10s timeout. In-flight requests finish their
	// current stage; persisted secrets are never rolled back.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("secretpipe stopped")
	return nil
}
