package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/worktrackhq/worktrack/internal/gauth"
	"github.com/worktrackhq/worktrack/internal/poller"
	"github.com/worktrackhq/worktrack/internal/seed"
	"github.com/worktrackhq/worktrack/internal/server"
	"github.com/worktrackhq/worktrack/internal/sheet"
	"github.com/worktrackhq/worktrack/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server and the reconciliation poller",
	Long: `Start the worktrack server.

This opens (or creates) the SQLite database, seeds it with sample data
when empty, starts the background reconciliation poller, and serves the
dashboard HTTP API:

  GET  /api/stats                     directory counts
  GET  /api/users, /api/projects      directory listings
  GET  /api/activity                  newest-first activity log
  GET  /api/reports/user-performance  per-user manhour totals
  GET  /api/reports/utilization       per-project utilization
  GET  /api/sync/status               spreadsheet id + last sync time
  POST /api/sync/settings             set the spreadsheet to poll
  GET  /api/auth/google/url           start the OAuth consent flow
  GET  /ws                            live activity feed (WebSocket)

The poller stays idle until a spreadsheet id is configured and the OAuth
flow has stored a refresh token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := store.Open(viper.GetString("db_path"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.InitSchema(); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		if err := seed.Run(ctx, db, viper.GetString("seed_fixture"), newLogger("[seed] ")); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		auth, watcher := setupAuth()
		if watcher != nil {
			if err := watcher.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: secret file watcher failed: %v\n", err)
			} else {
				defer watcher.Stop()
			}
		}

		srv := server.NewServer(db, &server.Config{
			Port:   viper.GetInt("listen_port"),
			Auth:   auth,
			Logger: newLogger("[server] "),
		})
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		defer srv.Stop()

		daemon, err := buildDaemon(db, auth, srv)
		if err != nil {
			return err
		}
		daemon.Start(ctx)
		defer daemon.Stop()

		fmt.Printf("worktrack listening on http://localhost%s\n", srv.GetAddr())
		<-ctx.Done()
		return nil
	},
}

// setupAuth builds the credential holder from configuration. Returns nil
// when no Google OAuth client is configured; the server then reports the
// auth endpoints as unavailable and the poller stays idle.
func setupAuth() (*gauth.Holder, *gauth.SecretWatcher) {
	cfg := gauth.Config{
		ClientID:     viper.GetString("google.client_id"),
		ClientSecret: viper.GetString("google.client_secret"),
		RedirectURL:  viper.GetString("google.redirect_url"),
		SecretFile:   viper.GetString("google.secret_file"),
	}
	if cfg.ClientID == "" && cfg.SecretFile == "" {
		return nil, nil
	}

	holder, err := gauth.NewHolder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: google oauth disabled: %v\n", err)
		return nil, nil
	}

	if cfg.SecretFile == "" {
		return holder, nil
	}

	watcher, err := gauth.NewSecretWatcher(holder, newLogger("[gauth] "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secret file watching disabled: %v\n", err)
		return holder, nil
	}
	return holder, watcher
}

// buildDaemon wires the reconciler to the Google fetcher and the live
// feed, and wraps it in the polling daemon.
func buildDaemon(db *store.DB, auth *gauth.Holder, srv *server.Server) (*poller.Daemon, error) {
	fetcher := sheet.NewGoogleFetcher(func(ctx context.Context) (oauth2.TokenSource, error) {
		state, err := db.GetSyncState(ctx)
		if err != nil {
			return nil, err
		}
		if auth == nil {
			return nil, fmt.Errorf("google oauth is not configured")
		}
		return auth.TokenSource(ctx, state.AccessToken, state.RefreshToken), nil
	})

	logger := newLogger("[poller] ")
	rec := poller.NewReconciler(db, fetcher, logger)
	rec.OnActivity = srv.BroadcastActivity

	return poller.NewDaemon(rec, &poller.Config{
		Interval:   viper.GetDuration("poll_interval"),
		MaxBackoff: viper.GetDuration("max_backoff"),
		Logger:     logger,
	})
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP listen port")
	_ = viper.BindPFlag("listen_port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}
