package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/LavaJover/shvark-aggregator-service/internal/app/background"
	"github.com/LavaJover/shvark-aggregator-service/internal/app/setup"
	"github.com/LavaJover/shvark-aggregator-service/internal/config"
	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "aggregator-service",
		Short:        "Deal routing and settlement across payment aggregators",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default $AGGREGATOR_CONFIG_PATH)")

	loadConfig := func() (*config.AggregatorConfig, error) {
		if configPath == "" {
			configPath = os.Getenv("AGGREGATOR_CONFIG_PATH")
		}
		if configPath == "" {
			return nil, errors.New("config path is not set: use --config or AGGREGATOR_CONFIG_PATH")
		}
		return config.Load(configPath)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run HTTP, gRPC and background jobs",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg)
			},
		},
		newMigrateCmd(loadConfig),
		&cobra.Command{
			Use:   "recalculate",
			Short: "Recalculate aggregator priorities once from SLA stats",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return recalculate(cmd.Context(), cfg)
			},
		},
	)
	return root
}

func newMigrateCmd(loadConfig func() (*config.AggregatorConfig, error)) *cobra.Command {
	var steps int

	cmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back database migrations"}
	up := &cobra.Command{
		Use: "up",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.AggregatorDB.Dsn)
			if err != nil {
				return err
			}
			return migrate.RunMigrations(db, cfg.AggregatorDB.MigrationsPath)
		},
	}
	down := &cobra.Command{
		Use: "down",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.AggregatorDB.Dsn)
			if err != nil {
				return err
			}
			return migrate.RollbackMigrations(db, cfg.AggregatorDB.MigrationsPath, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(up, down)
	return cmd
}

func newLogger(cfg *config.AggregatorConfig) (*slog.Logger, func(), error) {
	l, closer, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(l)
	return l, func() { _ = closer.Close() }, nil
}

func serve(ctx context.Context, cfg *config.AggregatorConfig) error {
	l, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	deps, err := setup.InitializeDependencies(cfg, l)
	if err != nil {
		return err
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		return err
	}

	health := grpcapi.NewHealthServer()
	grpcServer := grpcapi.NewServer(health)

	h := &handlers.Handler{
		Deals:     uc.Selector,
		Callbacks: uc.Callbacks,
		Admin:     uc.AggregatorService,
		SLA:       uc.SLAMonitor,
		Overrides: uc.DealMachine,
		Health:    health,
		Logger:    l,
	}
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: handlers.NewRouter(h, handlers.RouterOptions{
			Logger:   l,
			Limiter:  handlers.NewTokenRateLimiter(cfg.Callbacks.RateLimitRPS, cfg.Callbacks.RateLimitBurst),
			Gatherer: deps.Registry,
		}),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	tasks := background.NewBackgroundTasks(uc.SLAMonitor, uc.DealMachine, uc.AggregatorService, health, deps.Locker, l, background.Intervals{
		SLA:             cfg.SLAMonitor.Interval,
		Expiry:          cfg.Jobs.ExpiryInterval,
		ExpiryBatchSize: cfg.Jobs.ExpiryBatchSize,
		VolumeReset:     cfg.Jobs.VolumeResetInterval,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr())
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		l.Info("grpc server started", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return tasks.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()
		health.Shutdown()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	l.Info("service stopped")
	return nil
}

func recalculate(ctx context.Context, cfg *config.AggregatorConfig) error {
	l, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	deps, err := setup.InitializeDependencies(cfg, l)
	if err != nil {
		return err
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		return err
	}

	updates, err := uc.SLAMonitor.RecalculatePriorities(ctx, "cli")
	if err != nil {
		return err
	}
	for _, u := range updates {
		fmt.Printf("%s\t%d\n", u.AggregatorID, u.Priority)
	}
	return nil
}
