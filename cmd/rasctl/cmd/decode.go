// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/lf-edge/eve/pkg/ras/ghes"
	"github.com/spf13/cobra"
)

var decodeAddr uint64

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a dump of an error status block",
	Long: `
Decode the memory error record in a raw dump of an error status block,
for example one taken with dd from /dev/mem. The physical address of
the block defaults to the first corrected error block of the platform.

rasctl decode block.bin --addr 0xff620100
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		addr := decodeAddr
		if !cmd.Flags().Changed("addr") {
			cfg, err := loadPlatform()
			if err != nil {
				return err
			}
			addr = cfg.Dmc620.CorrectedErrorBlock.Base
		}
		region, err := ghes.NewRegion(addr, data)
		if err != nil {
			return err
		}
		rec, err := ghes.ReadRecord(region)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), newRecordReport(region, rec))
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Uint64Var(&decodeAddr, "addr", 0, "physical address of the dumped block")
}
