package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vcache/mem/cache"
)

const enableCaches = uint32(cache.ModeEnabled)<<cache.CCRICSShift |
	uint32(cache.ModeEnabled)<<cache.CCRDCSShift

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as JSON.",
	Long: "`config` loads the parameter file, applies the VCACHE_* " +
		"environment variables, validates the result and prints it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := c.JSON()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
