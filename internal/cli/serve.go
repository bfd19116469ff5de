package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/guard"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/notify"
	"finboard/internal/report"
	"finboard/internal/resource"
	"finboard/internal/session"
	"finboard/internal/view"
	"finboard/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	linkMaxAge      = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.LogLevel)

	policy, err := guard.ParsePolicy(cfg.GuardMismatch)
	if err != nil {
		return err
	}
	if err := worker.ValidateSchedule(cfg.SweepSchedule); err != nil {
		return err
	}

	factory, bcfg, res, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close session backend", log.FieldError, err)
		}
	}()

	api, err := resource.New(cfg.BackendBaseURL, cfg.BackendTimeout, resource.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize backend client: %w", err)
	}
	gen, err := factory.CreateGenerator(ctx, bcfg, api)
	if err != nil {
		return err
	}

	store := session.NewStore(res.Persister, res.Broadcaster, session.WithLogger(logger))
	defer store.Close()

	notes := notify.NewChannel(0)
	views := view.NewRegistry(view.DefaultCapacity, cfg.ViewTTL, logger)
	submit := ratelimit.NewLimiter(ratelimit.Config{
		PerSecond: cfg.SubmitRate,
		Burst:     cfg.SubmitBurst,
		IdleTTL:   10 * time.Minute,
	})

	caches := cache.NewManager()
	caches.Register("views", views)
	caches.Register("submit_limiter", submit)

	opts := []worker.Option{worker.WithLogger(logger)}
	if res.PruneLinks != nil {
		opts = append(opts, worker.WithLinkPruning(res.PruneLinks, linkMaxAge))
	}
	sweeper := worker.NewSweeper(caches, notes, cfg.SweepSchedule, opts...)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Backend:  api,
		Sessions: store,
		Profiles: session.NewProfiles(cfg.SessionSigningKey, cfg.SessionCookieTTL, cfg.CookieSecure),
		Reports:  report.NewTrigger(gen, res.Links, logger),
		Views:    views,
		Notes:    notes,
		Policy:   policy,
		Submit:   submit,
		Logger:   logger,
		Ready:    res.Ping,
	})
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	// No WriteTimeout: /ui/session-events is a long-lived stream.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	// Open event streams end when shutdown starts.
	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv.BaseContext = func(net.Listener) context.Context { return streams }
	srv.RegisterOnShutdown(stopStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting finboard server",
			"port", cfg.Port,
			"session_backend", cfg.SessionBackend,
			"broadcast", cfg.Broadcast,
			"report_generator", cfg.ReportGenerator)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := store.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session broadcast: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
