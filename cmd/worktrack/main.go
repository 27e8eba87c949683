// Command worktrack runs the project-tracking dashboard: an embedded
// SQLite store, an HTTP API with a live WebSocket feed, and a background
// poller that reconciles activity from a Google spreadsheet.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "worktrack",
	Short: "Project-tracking dashboard with spreadsheet reconciliation",
	Long: `worktrack stores users, projects, assignments and activity logs in an
embedded SQLite database, serves aggregated reports over HTTP, and
polls an external Google spreadsheet to append one activity entry per
task transition into the "Completed" status.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default worktrack.yaml)")
	rootCmd.PersistentFlags().String("db", "worktrack.db", "path to the SQLite database")
	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
}

// initConfig reads the config file and environment variables.
// Every key is overridable with a WORKTRACK_* environment variable.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("worktrack")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.worktrack")
	}

	viper.SetEnvPrefix("WORKTRACK")
	viper.AutomaticEnv()

	viper.SetDefault("db_path", "worktrack.db")
	viper.SetDefault("listen_port", 3000)
	viper.SetDefault("poll_interval", "1s")
	viper.SetDefault("max_backoff", "1m")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; flags, env and defaults cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// newLogger builds the operational logger for a component. When log_file
// is configured, output goes through a size-rotated file instead of
// stderr.
func newLogger(prefix string) *log.Logger {
	if logFile := viper.GetString("log_file"); logFile != "" {
		return log.New(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}, prefix, log.LstdFlags)
	}
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
