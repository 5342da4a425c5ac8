// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/dmc620"
	"github.com/lf-edge/eve/pkg/ras/ghes"
	"github.com/lf-edge/eve/pkg/ras/mm"
	"github.com/spf13/cobra"
)

var (
	injectInstance int
	injectFault    dmc620.RawFault
	injectVerbose  bool
)

// injectCmd represents the inject command
var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Simulate a corrected DRAM ECC fault and print the resulting record",
	Long: `
Latch a fault into the simulated ERR1 registers of a controller, raise
the fault event through the communicate buffer and print the error
record written to the error status block. For example:

rasctl inject --instance 1 --status 0x84000000 --addr0 0x1 --addr1 0x2 \
	--misc0 0x8c000555 --misc1 0x8000000a
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPlatform()
		if err != nil {
			return err
		}
		d, sim, err := newSimulatedDevice(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		services := mm.NewTable(log)
		if _, err := dmc620.Install(log, services, d); err != nil {
			return err
		}
		// publishing the descriptors prepares the error blocks
		if _, err := fillDescriptors(d); err != nil {
			return err
		}
		if err := sim.InjectCorrectedFault(injectInstance, injectFault); err != nil {
			return err
		}
		if injectVerbose {
			if err := printRegisters(cmd, d, sim, "before"); err != nil {
				return err
			}
		}
		if _, err := services.Communicate(dmc620.EventHandlerGUID,
			dmc620.CommBuffer(injectInstance)); err != nil {
			return err
		}
		if injectVerbose {
			if err := printRegisters(cmd, d, sim, "after"); err != nil {
				return err
			}
		}

		region, err := d.ErrorBlock(injectInstance, dmc620.Corrected)
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

func printRegisters(cmd *cobra.Command, d *dmc620.Device, sim *dmc620.Simulator, when string) error {
	ctrl, err := d.Controller(injectInstance)
	if err != nil {
		return err
	}
	raw, err := sim.Record(injectInstance, dmc620.Corrected)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(),
		"%s: dmc620-%d at 0x%x %s ERRGSR 0x%x ERR1 status 0x%x addr 0x%x:0x%x misc0 0x%x misc1 0x%x counters %v\n",
		when, ctrl.Index, ctrl.Regs.Addr(), ctrl.Regs.MemcState(), ctrl.Regs.ErrGSR(),
		raw.Status, raw.Addr1, raw.Addr0, raw.Misc0, raw.Misc1, raw.Counters)
	return nil
}

func init() {
	rootCmd.AddCommand(injectCmd)
	injectCmd.Flags().IntVarP(&injectInstance, "instance", "i", 0, "controller instance")
	injectCmd.Flags().Uint32Var(&injectFault.Status, "status", 0x84000000, "ERR1STATUS")
	injectCmd.Flags().Uint32Var(&injectFault.Addr0, "addr0", 0, "ERR1ADDR0")
	injectCmd.Flags().Uint32Var(&injectFault.Addr1, "addr1", 0, "ERR1ADDR1")
	injectCmd.Flags().Uint32Var(&injectFault.Misc0, "misc0", 0, "ERR1MISC0")
	injectCmd.Flags().Uint32Var(&injectFault.Misc1, "misc1", 0, "ERR1MISC1")
	injectCmd.Flags().BoolVarP(&injectVerbose, "verbose", "v", false, "dump the registers")
}
