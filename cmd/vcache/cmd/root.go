// Package cmd provides the command-line interface of vcache.
package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vcache",
	Short: "vcache models the caches and the MMU of a processor.",
	Long: `vcache models the instruction cache, the data cache and the ` +
		`SRMMU-style MMU of a processor. It replays access traces, runs ` +
		`randomized acceptance tests and prints configurations.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"Parameter file, .lua or .json. Defaults are used if empty.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It returns the exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		return 1
	}

	return 0
}
