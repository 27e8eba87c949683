package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/worktrackhq/worktrack/internal/poller"
	"github.com/worktrackhq/worktrack/internal/sheet"
	"github.com/worktrackhq/worktrack/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single reconciliation cycle and exit",
	Long: `Run one reconciliation cycle against the configured spreadsheet.

This fetches the current row snapshot, appends an activity entry for
every row that transitioned into "Completed" since the last observed
status, updates the status cache, and stamps the last-sync time.

The cycle is a silent no-op when no spreadsheet id or refresh token is
configured. Configure both through the running server's sync settings
and OAuth endpoints first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := store.Open(viper.GetString("db_path"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.InitSchema(); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		auth, _ := setupAuth()
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

		rec := poller.NewReconciler(db, fetcher, newLogger("[poller] "))
		result, err := rec.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		if result.Skipped {
			fmt.Println("Sync skipped: no spreadsheet or credentials configured")
			return nil
		}
		fmt.Printf("Sync complete: %d rows examined, %d entries logged\n", result.Rows, result.Logged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
