package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "perfa",
	Short: "Position and performance analytics engine",
	Long: `perfa - portfolio position and performance analytics

Turns a transaction ledger export into daily positions and NAV,
risk/return metrics, Brinson attribution, and per-horizon report tables.

Usage:
  go run ./cmd/perfa [command]

Examples:
  go run ./cmd/perfa analyze
  go run ./cmd/perfa analyze --persist
  go run ./cmd/perfa serve
  go run ./cmd/perfa schedule`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
