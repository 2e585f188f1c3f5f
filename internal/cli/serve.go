package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankscout/rankscout/internal/api"
	"github.com/rankscout/rankscout/internal/config"
	"github.com/rankscout/rankscout/internal/metrics"
	"github.com/rankscout/rankscout/internal/orchestrator"
	"github.com/rankscout/rankscout/internal/provider"
	"github.com/rankscout/rankscout/internal/store"
	"github.com/rankscout/rankscout/internal/store/memory"
	"github.com/rankscout/rankscout/internal/store/postgres"
	"github.com/rankscout/rankscout/internal/store/sqlite"
	"github.com/rankscout/rankscout/internal/summarize"
	"github.com/rankscout/rankscout/internal/workflow"
	"github.com/rankscout/rankscout/pkg/ratelimit"
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if serveAddr != "" {
		cfg.App.ListenAddr = serveAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.App.SlogLevel()}))
	slog.SetDefault(logger)

	st, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	client := provider.NewClient(provider.Config{
		BaseURL:  cfg.Provider.BaseURL,
		Login:    cfg.Provider.Login,
		Password: cfg.Provider.Password,
		Timeout:  cfg.Provider.Timeout,
	})
	limiter := ratelimit.NewLimiter(cfg.Limits.PerMinute, cfg.Limits.PerHour)
	tasks := orchestrator.New(client, limiter, logger, orchestrator.Config{
		SweepInterval: cfg.Engine.SweepInterval,
		Retention:     cfg.Engine.Retention,
	})

	backend := summarize.NewHTTPBackend(summarize.HTTPBackendConfig{
		Endpoint: cfg.Summarizer.Endpoint,
		APIKey:   cfg.Summarizer.APIKey,
		Model:    cfg.Summarizer.Model,
		Timeout:  cfg.Summarizer.Timeout,
	})
	summaries := summarize.NewQueue(backend, summarize.NewTemplateStore(), logger, summarize.QueueConfig{
		Retention: cfg.Engine.Retention,
	})

	deps := workflow.Deps{Store: st, Tasks: tasks, Summaries: summaries, Logger: logger}
	runner := workflow.NewRunner(st, []workflow.Controller{
		workflow.NewKeywordDiscovery(deps, workflow.Timing{}),
		workflow.NewSerpAnalysis(deps, workflow.Timing{}),
		workflow.NewCompetitorResearch(deps, workflow.Timing{}),
	}, cfg.Engine.MaxConcurrent, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go tasks.Run(ctx)

	srv := api.NewServer(runner, logger)
	if cfg.App.MetricsPort == 0 {
		srv.EnableMetrics()
	} else {
		ms := metrics.Start(cfg.App.MetricsPort)
		defer ms.Stop(context.Background())
	}

	httpSrv := &http.Server{Addr: cfg.App.ListenAddr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.App.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	runner.Wait()
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
