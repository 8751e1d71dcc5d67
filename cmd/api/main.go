package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"docverify/internal/assembler"
	"docverify/internal/classifier"
	"docverify/internal/config"
	"docverify/internal/database"
	"docverify/internal/database/migration"
	"docverify/internal/extractor"
	handlers "docverify/internal/http/handler"
	"docverify/internal/http/middleware"
	"docverify/internal/metrics"
	"docverify/internal/model"
	"docverify/internal/notify"
	"docverify/internal/notify/noop"
	"docverify/internal/notify/ses"
	"docverify/internal/ocr"
	"docverify/internal/ocr/openai"
	"docverify/internal/ocr/pdftext"
	tracing "docverify/internal/otel"
	"docverify/internal/receiver"
	"docverify/internal/repository"
	"docverify/internal/repository/memory"
	"docverify/internal/repository/postgres"
	"docverify/internal/scorer"
	"docverify/internal/service"
	"docverify/internal/storage"
	"docverify/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// multipartOverhead is headroom above the document ceiling for form fields and boundaries.
const multipartOverhead = 1 << 20

// @title			docverify API
// @version		1.0
// @description	Identity document verification: upload, classify, extract, score.
// @BasePath		/
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := newLogger(cfg.Location())
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err.Error())
		os.Exit(1)
	}
}

func newLogger(loc *time.Location) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			}
			return a
		},
	}))
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	if err := cfg.Verification.Validate(); err != nil {
		return fmt.Errorf("invalid verification config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Snapshots are optional; a nil store disables archiving.
	var store storage.Storage
	if cfg.MinIO.Enabled() {
		store, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline, err := metrics.NewPipeline(reg)
	if err != nil {
		return fmt.Errorf("register pipeline metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	sender, err := newSender(ctx, cfg.Notification, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Notification, logger, notify.WithObserver(pipeline.ObserveNotification))
	notifyCtx, cancelNotify := context.WithCancel(context.Background())
	defer cancelNotify()
	dispatcher.Start(notifyCtx)

	vision := openai.New(cfg.OCR)
	engine := ocr.NewRouter().
		Handle(pdftext.New(), model.MediaTypePDF).
		Handle(vision, model.MediaTypePNG, model.MediaTypeJPEG)

	var assistant extractor.Assistant
	if cfg.OCR.AssistExtraction && cfg.OCR.APIKey != "" {
		assistant = vision
	}

	pool := worker.NewPool(cfg.Worker, logger)
	svc := service.NewVerificationService(service.Deps{
		Receiver:   receiver.New(cfg.Upload),
		Engine:     engine,
		Classifier: classifier.New(cfg.Verification),
		Scorer:     scorer.New(cfg.Verification),
		Assistant:  assistant,
		Assembler:  assembler.New(repo, store, dispatcher, logger),
		Repo:       repo,
		Store:      store,
		Pool:       pool,
		Metrics:    pipeline,
		Logger:     logger,
		Timeout:    cfg.Verification.Timeout,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxBytes) + multipartOverhead,
	})

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_starting",
			"addr", addr,
			"database", db != nil,
			"snapshots", store != nil,
			"assisted_extraction", assistant != nil,
		)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server_shutting_down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			app.ShutdownWithContext(sctx),
			pool.Close(sctx),
			dispatcher.Close(sctx),
			shutdownTracing(sctx),
		)
	})
	return g.Wait()
}

// openRepository returns a Postgres repository when DB_HOST is set and an
// in-memory one otherwise. db is nil in the latter case.
func openRepository(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, repository.VerificationRepository, error) {
	if !cfg.Database.Enabled() {
		logger.Warn("database_disabled", "repository", "memory")
		return nil, memory.NewVerificationMemory(), nil
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, postgres.NewVerificationPostgres(db), nil
}

func newSender(ctx context.Context, cfg config.NotificationConfig, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.Provider {
	case "ses":
		s, err := ses.NewSESSender(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init ses sender: %w", err)
		}
		return s, nil
	case "", "noop":
		return noop.NewNoopSender(logger.With("component", "notify")), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
	}
}
