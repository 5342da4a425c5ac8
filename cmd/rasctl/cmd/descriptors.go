// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/acpi"
	"github.com/lf-edge/eve/pkg/ras/dmc620"
	"github.com/lf-edge/eve/pkg/ras/types"
	"github.com/spf13/cobra"
)

// descriptorsCmd represents the descriptors command
var descriptorsCmd = &cobra.Command{
	Use:   "descriptors",
	Short: "Print the GHESv2 error source descriptors of the platform",
	Args:  cobra.NoArgs,
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
		descs, err := fillDescriptors(d)
		if err != nil {
			return err
		}
		reports := make([]descriptorReport, 0, len(descs))
		for _, desc := range descs {
			reports = append(reports, newDescriptorReport(desc))
		}
		return printJSON(cmd.OutOrStdout(), reports)
	},
}

func init() {
	rootCmd.AddCommand(descriptorsCmd)
}

// newSimulatedDevice sets up the platform on simulated memory
func newSimulatedDevice(cfg types.PlatformConfig) (*dmc620.Device, *dmc620.Simulator, error) {
	sim, err := dmc620.NewSimulator(cfg.Dmc620)
	if err != nil {
		return nil, nil, err
	}
	d, err := dmc620.New(log, cfg.Dmc620, sim.Mapper())
	if err != nil {
		return nil, nil, err
	}
	return d, sim, nil
}

// fillDescriptors goes through the two step sizing protocol
func fillDescriptors(d *dmc620.Device) ([]acpi.GHESv2, error) {
	count, length, err := d.DescInfoGet(nil)
	if !errors.Is(err, dmc620.ErrInvalidParameter) {
		return nil, fmt.Errorf("sizing query: %v", err)
	}
	buf := make([]byte, length)
	if _, _, err := d.DescInfoGet(buf); err != nil {
		return nil, err
	}
	descs := make([]acpi.GHESv2, 0, count)
	for i := 0; i < count; i++ {
		desc, err := acpi.ParseGHESv2(buf[i*acpi.GHESv2Size:])
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}
