package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/worktrackhq/worktrack/internal/seed"
	"github.com/worktrackhq/worktrack/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and seed sample data",
	Long: `Create the database schema and seed it with sample data.

Seeding only happens when the users table is empty; a populated
database is left untouched. Pass --fixture to seed from a YAML file
instead of the generated sample set.`,
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

		fixture, _ := cmd.Flags().GetString("fixture")
		if fixture == "" {
			fixture = viper.GetString("seed_fixture")
		}

		if err := seed.Run(ctx, db, fixture, newLogger("[seed] ")); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		fmt.Println("Database ready")
		return nil
	},
}

func init() {
	seedCmd.Flags().String("fixture", "", "YAML fixture file to seed from")
	rootCmd.AddCommand(seedCmd)
}
