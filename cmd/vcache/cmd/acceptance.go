package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vcache/mem/acceptancetests/memaccessagent"
)

var acceptanceCmd = &cobra.Command{
	Use:   "acceptance",
	Short: "Run a randomized read-after-write test.",
	Long: "`acceptance` issues random reads and writes to the data side and " +
		"checks that every read returns the last written value.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		numAccess, _ := f.GetInt("num-access")
		seed, _ := f.GetInt64("seed")
		maxAddress, _ := f.GetUint32("max-address")
		baseAddress, _ := f.GetUint32("base-address")

		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := buildSystem(c)
		if err != nil {
			return err
		}

		if s.comp.MMU() != nil {
			if err := s.identityMap(cmd.Context()); err != nil {
				return err
			}
		}

		if err := s.comp.WriteCCR(cmd.Context(), enableCaches); err != nil {
			return err
		}

		agent := memaccessagent.MakeBuilder().
			WithTarget(s.comp).
			WithBaseAddress(baseAddress).
			WithMaxAddress(maxAddress).
			WithReadLeft(numAccess / 2).
			WithWriteLeft(numAccess - numAccess/2).
			WithSeed(seed).
			Build("Agent")

		result, err := agent.Run(cmd.Context())

		fmt.Fprintf(cmd.OutOrStdout(),
			"%d reads (%d hits, %d misses), %d writes (%d hits), "+
				"%d TLB misses\n",
			result.Reads, result.ReadHits, result.ReadMisses,
			result.Writes, result.WriteHits, result.TLBMisses)

		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Passed.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(acceptanceCmd)

	f := acceptanceCmd.Flags()
	f.Int("num-access", 10000, "Number of accesses.")
	f.Int64("seed", 0, "Random seed.")
	f.Uint32("max-address", 1<<20, "Size of the accessed range in bytes.")
	f.Uint32("base-address", 0, "First accessed address.")
}
