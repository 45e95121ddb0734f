package main

import (
	"campus_api/internal/auth"
	"campus_api/internal/config"
	"campus_api/internal/handler"
	"campus_api/internal/metrics"
	"campus_api/internal/service"
	"campus_api/internal/storage"
	"campus_api/internal/storage/memory"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "campus_api",
		Short:        "Campus events and posts API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Config file path (YAML); env only when empty")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), configPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("campus_api version %s\n", Version)
		},
	})

	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting campus api", slog.String("env", cfg.Env), slog.String("db_driver", cfg.Driver))

	st, err := openStorage(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)

	srvc := service.NewService(st, tokens, service.Options{
		AllowOrganisationPosts: cfg.AllowOrganisation,
		MaxImageBytes:          cfg.MaxBytes,
	})

	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handler.NewHandler(srvc, tokens, metrics.New(), lgr, handler.Options{
		Gzip:                   cfg.HTTPServer.Gzip,
		AllowOrganisationPosts: cfg.AllowOrganisation,
		// base64 inflates images by a third, plus the surrounding JSON
		MaxBodyBytes: int64(cfg.MaxBytes) * 2,
	})

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      h.InitRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lgr.Info("http server listening", slog.String("address", cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func migrate(ctx context.Context, configPath string) error {
	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)

	if cfg.Driver != storage.DriverPostgres {
		return fmt.Errorf("migrate: db driver %q has no schema", cfg.Driver)
	}

	if err := storage.Migrate(ctx, cfg.DbURL); err != nil {
		return err
	}

	lgr.Info("migrations applied")

	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, lgr *slog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case storage.DriverMemory:
		lgr.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	case storage.DriverPostgres:
		if cfg.Migrate {
			if err := storage.Migrate(ctx, cfg.DbURL); err != nil {
				return nil, err
			}
			lgr.Info("migrations applied")
		}
		st, err := storage.NewPostgresStorage(ctx, cfg.DbURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		// unrecognised environments log like prod
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
		log.Warn("unknown env, using prod logging", slog.String("env", env))
	}
	return log
}
