// Package main implements the advisor CLI: analyze problem reports, run
// batches, import history and inspect the topic model.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML configuration file.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Problem analysis and recommendation from historical cases",
	Long: `advisor assigns a problem report to a cluster and a topic learned from
historical problems, summarizes what those groups have in common and suggests
past solutions and lessons learned.

Configuration comes from built-in defaults, an optional YAML file (--config or
ADVISOR_CONFIG) and ADVISOR_ environment variables, in that order. A .env file
in the working directory is loaded first.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the advisor version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("advisor " + version)
	},
}
