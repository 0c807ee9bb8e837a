// Command server runs the mastery verification and spaced-repetition API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/praxislabs/mastery-api/internal/config"
	"github.com/praxislabs/mastery-api/internal/domain/srs"
	"github.com/praxislabs/mastery-api/internal/oracle"
	"github.com/praxislabs/mastery-api/internal/platform/gemini"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/platform/postgres"
	"github.com/praxislabs/mastery-api/internal/progression"
	"github.com/praxislabs/mastery-api/internal/reminder"
	"github.com/praxislabs/mastery-api/internal/service/review"
	"github.com/praxislabs/mastery-api/internal/service/submission"
	"github.com/praxislabs/mastery-api/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := openDatabase(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db, log); err != nil {
		return err
	}

	// Stores
	submissionStore := postgres.NewPostgresSubmissionStore(db, log)
	progressionStore := postgres.NewPostgresProgressionStore(db, log)
	reviewItemStore := postgres.NewPostgresReviewItemStore(db, log)
	flashcardStore := postgres.NewPostgresFlashcardStore(db, log)
	cardStateStore := postgres.NewPostgresCardStateStore(db, log)
	catalogStore := postgres.NewPostgresCatalogStore(db, log)

	// The remote oracle is optional; without an API key the failover runs
	// everything on the local deterministic fallback.
	var remote oracle.Oracle
	if cfg.Oracle.GeminiAPIKey != "" {
		g, err := gemini.NewGeminiOracle(context.Background(), log, cfg.Oracle)
		if err != nil {
			log.Warn("failed to initialize remote oracle, running on local fallback",
				slog.String("error", err.Error()))
		} else {
			remote = g
		}
	} else {
		log.Info("no oracle API key configured, running on local fallback")
	}
	tutor := oracle.NewFailover(remote, time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second, log)

	// Services
	ledger := progression.NewLedger(progressionStore, log)
	submissionService := submission.NewService(
		db, submissionStore, reviewItemStore, flashcardStore, cardStateStore,
		catalogStore, tutor, ledger, log,
	)
	reviewService := review.NewService(
		db, flashcardStore, cardStateStore, reviewItemStore,
		srs.NewDefaultService(), cfg.Review.NewCardsPerSession, log,
	)

	// Daily digest
	digest := reminder.NewDigest(cardStateStore, reminder.NewLogNotifier(log), cfg.Review.DigestTime, log)
	if err := digest.Start(); err != nil {
		return fmt.Errorf("failed to start review digest: %w", err)
	}
	defer digest.Stop()

	router := newRouter(cfg, submissionService, reviewService, progressionStore, db, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server cleanly: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func runMigrations(db *sql.DB, log *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{log: log.With(slog.String("component", "migrations"))})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// gooseLogger adapts goose's logger interface to slog.
type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(fmt.Sprintf(format, v...))
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
