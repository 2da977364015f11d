package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "ghostload",
	Short: "Ghost-load discovery and matching engine",
	Long: `Ghost-load discovery and matching engine for freight brokerage.

The engine polls load boards for abandoned postings (ghost loads), analyzes
how each one could be inserted into the routes of active fleet vehicles, and
ranks the resulting match candidates by expected profit, feasibility, and
driver acceptance likelihood. Dispatchers commit the best candidates into
binding assignments through the HTTP API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
