package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/marketplace/internal/config"
	"github.com/kartikbazzad/bunbase/marketplace/internal/seed"
	"github.com/kartikbazzad/bunbase/marketplace/internal/server"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/postgres"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "B2B sourcing marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", os.Getenv("MARKETPLACE_CONFIG"), "Optional YAML/JSON config file")
	pf.String("environment", "", "development or production")
	pf.String("store-driver", "", "Store driver: memory, mongo or postgres")
	pf.String("mongo-uri", "", "MongoDB connection URI")
	pf.String("mongo-database", "", "MongoDB database name")
	pf.Bool("mongo-transactions", false, "Use multi-document transactions (requires a replica set)")
	pf.String("postgres-host", "", "PostgreSQL host")
	pf.Int("postgres-port", 0, "PostgreSQL port")
	pf.String("postgres-user", "", "PostgreSQL user")
	pf.String("postgres-password", "", "PostgreSQL password")
	pf.String("postgres-name", "", "PostgreSQL database name")
	pf.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	pf.String("log-format", "", "Log format: json or text")

	serveCmd.Flags().String("port", "", "Server port")
	serveCmd.Flags().String("cors-origins", "", "Comma separated allowed CORS origins")
	serveCmd.Flags().Bool("seed", false, "Load development fixtures before serving")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes the global logger.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

// openApp opens the configured store and wires the services around it.
func openApp(ctx context.Context, cfg *config.AppConfig) (*server.App, error) {
	s, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	app, err := server.New(s, cfg)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return app, nil
}

// ---- serve ----

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.Get()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Close(closeCtx); err != nil {
				log.Error("Failed to close store", "error", err)
			}
		}()

		if withSeed, _ := cmd.Flags().GetBool("seed"); withSeed {
			sum, err := seed.Run(ctx, app.Store, seed.Default())
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}
			log.Info("Fixtures loaded", "actors", sum.Actors, "requests", sum.Requests, "proposals", sum.Proposals)
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		router := server.NewRouter(app, server.RouterConfig{
			CORSOrigins:       cfg.CORSOrigins(),
			AuthRatePerMinute: cfg.RateLimit.Auth,
			AuthBurst:         cfg.RateLimit.Burst,
			Logger:            log,
		})

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("Marketplace API server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		log.Info("Server stopped")
		return nil
	},
}

// ---- migrate ----

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL schema migrations, or ensure MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		switch cfg.Store.Driver {
		case config.DriverPostgres:
			if err := postgres.Migrate(cfg.Postgres); err != nil {
				return err
			}
		case config.DriverMongo:
			// Opening the store creates the uniqueness indexes.
			s, err := server.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			if err := s.Close(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("store driver %q has no schema to migrate", cfg.Store.Driver)
		}
		logger.Info("Migrations applied", "store", cfg.Store.Driver)
		return nil
	},
}

// ---- seed ----

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load development fixtures (test buyer, agent, seller and sample requests)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.Driver == config.DriverMemory {
			return errors.New("seeding the memory store has no lasting effect; use serve --seed")
		}
		ctx := cmd.Context()

		app, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close(ctx)

		sum, err := seed.Run(ctx, app.Store, seed.Default())
		if err != nil {
			return err
		}
		logger.Info("Fixtures loaded", "actors", sum.Actors, "requests", sum.Requests, "proposals", sum.Proposals)
		return nil
	},
}

// ---- reconcile ----

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Create missing projects for accepted proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		app, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close(ctx)

		n, err := app.Proposals.Reconcile(ctx)
		if err != nil {
			return err
		}
		logger.Info("Reconcile finished", "repaired", n)
		return nil
	},
}
