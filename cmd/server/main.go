package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feedback-fusion/backend/internal/ai"
	"github.com/feedback-fusion/backend/internal/config"
	"github.com/feedback-fusion/backend/internal/db"
	"github.com/feedback-fusion/backend/internal/export"
	httpapi "github.com/feedback-fusion/backend/internal/http"
	"github.com/feedback-fusion/backend/internal/memdb"
	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/notify"
	"github.com/feedback-fusion/backend/internal/scheduler"
	"github.com/feedback-fusion/backend/internal/service"
	"github.com/feedback-fusion/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "feedback-fusion").Logger()

	ctx := context.Background()

	// The in-memory backend always exists: it is the fallback when Postgres
	// is down and the sole backend when no DATABASE_URL is configured.
	secondary := memdb.New()
	var primary store.Backend
	if cfg.DatabaseURL != "" {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable at startup, running on in-memory store")
		} else {
			primary = pg
			defer pg.Close()
		}
	} else {
		logger.Info().Msg("no DATABASE_URL configured, running on in-memory store")
	}
	backend := store.NewFallback(primary, secondary, logger)

	var adapter ai.Adapter
	if cfg.AnthropicAPIKey == "" {
		adapter = ai.MockAdapter{}
		logger.Info().Msg("using mock AI adapter")
	} else {
		adapter = ai.AnthropicAdapter{APIKey: cfg.AnthropicAPIKey, Model: cfg.AIModel}
	}

	var exporter export.Exporter
	switch {
	case cfg.ExportURL != "":
		exporter = export.HTTPExporter{URL: cfg.ExportURL}
	case cfg.ExportDir != "":
		exporter = export.CSVExporter{Dir: cfg.ExportDir}
	default:
		exporter = export.CSVExporter{Dir: "exports"}
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel, logger)
	}

	taxonomy, err := models.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load taxonomy")
	}

	automation := &service.Automation{
		Store:     backend,
		AI:        adapter,
		Exporter:  exporter,
		Logger:    logger,
		Clock:     clockwork.NewRealClock(),
		BatchSize: cfg.TaggingBatch,
		ItemDelay: cfg.ItemDelay,
	}

	sched := &scheduler.Scheduler{
		Automation: automation,
		Logger:     logger,
		JobTimeout: cfg.JobTimeout,
	}
	addJob(sched, logger, "ai-tagging", cfg.TaggingCron, func(ctx context.Context, by string) error {
		_, err := automation.RunTagging(ctx, by)
		return err
	})
	addJob(sched, logger, "generate-insights", cfg.InsightsCron, func(ctx context.Context, by string) error {
		_, err := automation.RunInsights(ctx, by)
		return err
	})
	addJob(sched, logger, "export-sheets", cfg.ExportCron, func(ctx context.Context, by string) error {
		_, err := automation.RunExport(ctx, by)
		return err
	})
	sched.Start()
	defer sched.Stop()

	router := httpapi.Router(cfg, backend, automation, notifier, taxonomy, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func addJob(s *scheduler.Scheduler, logger zerolog.Logger, name, spec string, run func(ctx context.Context, by string) error) {
	if err := s.Add(name, spec, run); err != nil {
		logger.Fatal().Err(err).Str("job", name).Str("spec", spec).Msg("invalid cron expression")
	}
}
