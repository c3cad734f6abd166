package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emberjournal/ember/config"
	"github.com/emberjournal/ember/gen"
	"github.com/emberjournal/ember/gen/anthropic"
	"github.com/emberjournal/ember/gen/ollama"
	genopenai "github.com/emberjournal/ember/gen/openai"
	"github.com/emberjournal/ember/insight"
	"github.com/emberjournal/ember/journal"
	emberlogger "github.com/emberjournal/ember/logger"
	"github.com/emberjournal/ember/migrations"
	"github.com/emberjournal/ember/perspective"
	"github.com/emberjournal/ember/runtime"
	"github.com/emberjournal/ember/server"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	var (
		addr           = flag.String("addr", "", "HTTP listen address (overrides config)")
		logFile        = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty         = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		dbPath         = flag.String("db", "ember.db", "Path to SQLite database file")
		migrationsPath = flag.String("migrations", "./migrations", "Path to migration files")
		runBatch       = flag.Bool("batch-now", false, "Run one batch insight pass at startup")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := emberlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	configPath := config.GetServerConfigPath()
	appConfig, err := config.LoadServerConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	// Seed an editable config file with the defaults on first run.
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		if saveErr := config.SaveServerConfig(appConfig, configPath); saveErr != nil {
			logger.Warn().Err(saveErr).Str("path", configPath).Msg("Failed to write default config file")
		} else {
			logger.Info().Str("path", configPath).Msg("Wrote default config file")
		}
	}

	if *addr != "" {
		appConfig.Server.Addr = *addr
	}

	logger.Info().
		Str("addr", appConfig.Server.Addr).
		Str("db", *dbPath).
		Msg("emberd starting")

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // No remedy for db close errors

	if err := migrations.Run(db, *migrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := journal.NewStore(db, logger)
	if err != nil {
		return fmt.Errorf("failed to create journal store: %w", err)
	}

	generator := buildGenerator(appConfig, logger)

	analysis := appConfig.Analysis
	extractor := insight.NewExtractor(store, generator, analysis.LookbackDays, analysis.ExcerptLength, logger)
	arcs := insight.NewArcBuilder(store, analysis.LookbackDays, analysis.MinTaggedMoods, analysis.TrendDelta, analysis.SwingRate, logger)
	synthesizer := insight.NewSynthesizer(extractor, arcs, generator, logger)

	engine := perspective.NewEngine(logger)
	shaper := perspective.NewShaper(engine, logger)

	// Warm per-user perspective state from stored memories so a restart does
	// not reset every relationship to baseline.
	if err := warmPerspective(context.Background(), store, engine, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to warm perspective state from stored memories")
	}

	batchJob, err := runtime.NewBatchJob(store, synthesizer, store, appConfig.Batch.Schedule, appConfig.Batch.RatePerMinute, logger)
	if err != nil {
		return fmt.Errorf("failed to create batch job: %w", err)
	}

	srv := server.New(server.Config{
		Addr:   appConfig.Server.Addr,
		Logger: logger,
	}, store, synthesizer, engine, shaper)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runBatch {
		batchJob.RunOnce(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	if appConfig.Batch.Disabled {
		logger.Info().Msg("Batch insight job is disabled")
	} else {
		g.Go(func() error { return batchJob.Start(gctx) })
	}
	g.Go(func() error { return srv.Serve(gctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("emberd stopped")
	return nil
}

// buildGenerator assembles the provider fallback chain from the configured
// provider order. Providers that fail to construct are skipped with a
// warning; an empty chain is valid and analytics fall back to keyword
// heuristics.
func buildGenerator(cfg *config.ServerConfig, logger zerolog.Logger) gen.Generator {
	chain := gen.NewChain(logger)

	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			client, err := genopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Organization)
			if err != nil {
				logger.Warn().Err(err).Msg("Skipping openai provider")
				continue
			}
			chain.Add("openai", client)
		case "anthropic":
			client, err := anthropic.NewClient(cfg.Anthropic.Model, cfg.Anthropic.APIKey, cfg.Anthropic.MaxTokens, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Skipping anthropic provider")
				continue
			}
			chain.Add("anthropic", client)
		case "ollama":
			client, err := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model)
			if err != nil {
				logger.Warn().Err(err).Msg("Skipping ollama provider")
				continue
			}
			chain.Add("ollama", client)
		default:
			logger.Warn().Str("provider", name).Msg("Unknown generation provider in config")
		}
	}

	if chain.Len() == 0 {
		logger.Warn().Msg("No generation providers available; analytics will use keyword fallbacks only")
		return nil
	}
	return chain
}

// warmPerspective replays each active user's stored memories through the
// perspective engine in chronological order.
func warmPerspective(ctx context.Context, store *journal.Store, engine *perspective.Engine, logger zerolog.Logger) error {
	users, err := store.FetchActiveUsers(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		memories, err := store.FetchMemories(ctx, user.ID)
		if err != nil {
			logger.Warn().Str("user_id", user.ID).Err(err).Msg("Skipping perspective warm-up for user")
			continue
		}
		// FetchMemories returns newest first; replay oldest first.
		for i := len(memories) - 1; i >= 0; i-- {
			engine.UpdatePerspective(user.ID, memories[i])
		}
	}

	logger.Info().Int("users", len(users)).Msg("Perspective state warmed from stored memories")
	return nil
}
