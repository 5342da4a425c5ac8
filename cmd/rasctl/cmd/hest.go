// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/lf-edge/eve/pkg/ras/acpi"
	"github.com/spf13/cobra"
)

var (
	hestOutput string
	sdeiOutput string
)

// hestCmd represents the hest command
var hestCmd = &cobra.Command{
	Use:   "hest",
	Short: "Assemble the HEST and SDEI tables of the platform",
	Long: `
Assemble the Hardware Error Source Table from the DMC-620 error source
descriptors and, optionally, the SDEI table. For example:

rasctl hest -o hest.bin --sdei sdei.bin
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPlatform()
		if err != nil {
			return err
		}
		d, _, err := newSimulatedDevice(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		hest, err := acpi.BuildHEST(cfg.Oem, d)
		if err != nil {
			return err
		}
		if err := os.WriteFile(hestOutput, hest, 0644); err != nil {
			return err
		}
		count, _ := d.Size()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: HEST, %d bytes, %d error sources\n",
			hestOutput, len(hest), count)
		if sdeiOutput == "" {
			return nil
		}
		sdei := acpi.BuildSDEI(cfg.Oem)
		if err := os.WriteFile(sdeiOutput, sdei, 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: SDEI, %d bytes\n", sdeiOutput, len(sdei))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hestCmd)
	hestCmd.Flags().StringVarP(&hestOutput, "output", "o", "hest.bin", "HEST output file")
	hestCmd.Flags().StringVar(&sdeiOutput, "sdei", "", "SDEI output file")
}
