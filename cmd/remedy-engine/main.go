package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remedystack/remedy-engine/internal/api"
	"github.com/remedystack/remedy-engine/internal/cache"
	"github.com/remedystack/remedy-engine/internal/clients"
	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/deploy"
	"github.com/remedystack/remedy-engine/internal/executor"
	"github.com/remedystack/remedy-engine/internal/history"
	"github.com/remedystack/remedy-engine/internal/intake"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/notify"
	"github.com/remedystack/remedy-engine/internal/orchestrator"
	"github.com/remedystack/remedy-engine/internal/review"
	"github.com/remedystack/remedy-engine/internal/store"
	"github.com/remedystack/remedy-engine/internal/utils"
	"github.com/remedystack/remedy-engine/internal/validate"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting remedy-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	db, err := store.Open(context.Background(), cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", slog.String("path", cfg.Store.Path), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	reviewRepo := store.NewReviewRepo(db)
	historyRepo := store.NewHistoryRepo(db)

	bus := notify.NewBus(logger)
	bus.Subscribe(notify.SlogSink(logger))

	var eventConn *nats.Conn
	var teamNotifier review.TeamNotifier
	if cfg.Notify.Enabled && cfg.Notify.URL != "" {
		eventConn, err = nats.Connect(cfg.Notify.URL, nats.Name("remedy-engine-notify"), nats.MaxReconnects(-1))
		if err != nil {
			logger.Warn("event publisher unavailable", slog.Any("error", err))
		} else {
			defer eventConn.Close()
			bus.Subscribe(notify.NATSSink(eventConn, cfg.Notify.SubjectPrefix, logger))
			teamNotifier = review.NewNATSNotifier(eventConn, cfg.Notify.SubjectPrefix+".review_team")
		}
	}

	analysisClient := clients.NewAnalysisClient(
		cfg.Clients.Analysis.BaseURL,
		cfg.Clients.Analysis.Path,
		cfg.Clients.Analysis.Timeout,
		cfg.Clients.Analysis.CacheTTL,
		cacheProvider,
		logger,
	)
	planClient := clients.NewPlanClient(
		cfg.Clients.Planning.BaseURL,
		cfg.Clients.Planning.Path,
		cfg.Clients.Planning.Timeout,
	)

	runner := executor.ExecRunner{}
	actions := executor.NewDefault(logger, runner, cfg.Executor.FormatterCommand, cfg.Executor.WorkDir)
	validator := validate.NewRunner(cfg.Validation.Suites, runner, cfg.Executor.WorkDir, logger)
	controller := deploy.NewController(cfg.Deploy.RollbackCommand, cfg.Deploy.WorkDir, runner, logger)
	gateway := review.NewGateway(reviewRepo, teamNotifier, logger)
	tracker := history.NewTracker(historyRepo, logger)

	deps := orchestrator.Deps{
		Analyzer:  analysisClient,
		Planner:   planClient,
		Actions:   actions,
		Validator: validator,
		Deployer:  controller,
		Reviewer:  gateway,
		Recorder:  tracker,
	}

	var source intake.Source
	if cfg.Intake.URL != "" {
		natsSource, err := intake.Connect(cfg.Intake, logger)
		if err != nil {
			logger.Error("failed to connect intake", slog.Any("error", err))
			os.Exit(1)
		}
		defer natsSource.Close()
		source = natsSource
		deps.IntakeReady = natsSource.Ready
	}

	orch := orchestrator.New(cfg.Orchestrator, deps, bus, logger)
	orch.Start()

	if source != nil {
		if err := source.Subscribe(func(event models.ErrorEvent) {
			if err := orch.Submit(event); err != nil {
				logger.Warn("intake submit rejected",
					slog.String("error_id", event.ID), slog.Any("error", err))
			}
		}); err != nil {
			logger.Error("failed to subscribe intake", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	apiServer := api.NewServer(cfg.Server.Address, orch, reviewRepo, logger)
	go func() {
		if serveErr := apiServer.ListenAndServe(); serveErr != nil {
			logger.Error("api server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if residual := orch.Shutdown(cfg.Server.GracefulTimeout); residual > 0 {
		logger.Warn("abandoned active fix attempts", slog.Int("count", residual))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("remedy-engine stopped")
}
