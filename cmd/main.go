package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caravela.dev/busmetrics/config"
	"caravela.dev/busmetrics/storage"
)

var rootCmd = &cobra.Command{
	Use:          "busmetrics",
	Short:        "Bus telemetry aggregation",
	Long:         "Turns raw bus position streams into daily transit performance analytics",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadRefsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openStorage picks a backend from config: postgres when a DSN is
// set, an on-disk sqlite db when SQLITE_PATH is set, in-memory
// otherwise.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.DatabaseURL != "" {
		return storage.NewPSQLStorage(cfg.DatabaseURL, false)
	}
	if cfg.SQLitePath != "" {
		return storage.NewSQLiteStorage(storage.SQLiteConfig{
			OnDisk:    true,
			Directory: cfg.SQLitePath,
		})
	}
	return storage.NewMemoryStorage(), nil
}
