package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/krisalay/salon-cache/config"
	clog "github.com/krisalay/salon-cache/internal/log"
)

var (
	configDir string
	logLevel  string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "salon-cache",
	Short: "Stale-while-revalidate cache for the salon's public data",
	Long: `Caches services, opening hours, settings, gallery photos and testimonials
per data kind, coalesces concurrent fetches and invalidates them through a
process-wide bus.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		if configDir != "" {
			paths = append(paths, configDir)
		}
		c, err := config.Load(paths...)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c
		return clog.InitLogger(c.Log.Level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing salon-cache.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(warmCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
