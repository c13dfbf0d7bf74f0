package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelfeed/internal/cache"
	"github.com/everstacklabs/modelfeed/internal/config"
	"github.com/everstacklabs/modelfeed/internal/read"
	"github.com/everstacklabs/modelfeed/internal/refresh"
	"github.com/everstacklabs/modelfeed/internal/server"
	"github.com/everstacklabs/modelfeed/internal/store"
	"github.com/everstacklabs/modelfeed/internal/upstream"
)

var cfgFile string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "modelfeed",
		Short: "AI model metadata catalog service",
		Long:  "Fetches the upstream model price/capability feed on a schedule, normalizes it into versioned catalog artifacts, and serves them over HTTP.",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		refreshCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP server with the scheduled refresh loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			refresher, reader, closeStore, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Refresh once at startup so a fresh deployment serves live
			// data instead of the bundled snapshot. Failure is not fatal;
			// the read path degrades and the scheduler retries.
			if _, err := refresher.Run(ctx, false); err != nil {
				slog.Warn("startup refresh failed, serving stale or bundled data", "error", err)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
				if _, err := refresher.Run(context.Background(), false); err != nil {
					slog.Error("scheduled refresh failed", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			srv := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: server.New(reader, refresher, cfg.AdminToken).Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("listening", "addr", cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutting down server: %w", err)
				}
			}
			return nil
		},
	}
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			refresher, _, closeStore, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			force, _ := cmd.Flags().GetBool("force")
			result, err := refresher.Run(cmd.Context(), force)
			if err != nil {
				return err
			}

			if result.Outcome == refresh.OutcomePublished {
				fmt.Printf("published %s: %d models (etag %s) in %s\n",
					result.Version, result.RecordCount, result.ETag, result.Duration.Round(time.Millisecond))
			} else {
				fmt.Printf("unchanged (etag %s)\n", result.ETag)
			}
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Publish even when the upstream is unchanged")

	return cmd
}

// buildStack wires the shared components: upstream client, durable store,
// edge cache, refresher, and tiered reader.
func buildStack(cfg *config.Config) (*refresh.Refresher, *read.Tiered, func(), error) {
	kv, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store at %s: %w", cfg.DBPath, err)
	}

	client := upstream.New(
		upstream.WithRateLimit(cfg.FeedRateRPS),
		upstream.WithTimeout(cfg.FetchTimeoutDuration()),
	)

	st := store.New(kv)
	edge := cache.New(cfg.CacheTTLDuration())
	refresher := refresh.New(client, st, edge, cfg.FeedURL)
	reader := read.New(edge, st)

	closeStore := func() {
		if err := kv.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}
	return refresher, reader, closeStore, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
