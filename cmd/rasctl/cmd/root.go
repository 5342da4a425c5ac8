// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/lf-edge/eve/pkg/ras/agentlog"
	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/lf-edge/eve/pkg/ras/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const agentName = "rasctl"

var (
	platformName string
	cfgFile      string
	logLevel     string

	logger *logrus.Logger
	log    *base.LogObject
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   agentName,
	Short: "Inspect and exercise DMC-620 memory error reporting",
	Long: `
rasctl prints the hardware error sources of a platform, assembles the
HEST and SDEI tables, simulates DRAM ECC faults and reads error status
blocks. For example:

rasctl descriptors --platform rdn2
rasctl hest -o hest.bin --sdei sdei.bin
rasctl inject --instance 1 --status 0x84000000 --addr0 0x1 --addr1 0x2
rasctl monitor --interval 1s
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, log = agentlog.InitWithWriter(agentName, cmd.ErrOrStderr())
		return agentlog.SetLevel(logger, logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&platformName, "platform", "p", "",
		"built-in platform profile (default from the device tree, else "+types.DefaultPlatform+")")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"YAML platform description")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", agentlog.DefaultLogLevel,
		"log level (debug, info, warning, error)")
}

// loadPlatform picks the platform from --config, --platform or the
// device tree, in that order.
func loadPlatform() (types.PlatformConfig, error) {
	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return types.PlatformConfig{}, err
		}
		cfg, err := types.ParsePlatformConfig(data)
		if err != nil {
			return types.PlatformConfig{}, fmt.Errorf("%s: %w", cfgFile, err)
		}
		log.Functionf("loadPlatform: %s from %s", cfg.Name, cfgFile)
		return cfg, nil
	}
	if platformName != "" {
		return types.LookupPlatform(platformName)
	}
	if compatible := hardware.GetCompatible(log); compatible != "" {
		if cfg, ok := types.PlatformForCompatible(compatible); ok {
			log.Noticef("loadPlatform: %s matches %s", cfg.Name, compatible)
			return cfg, nil
		}
		log.Warnf("loadPlatform: no profile for %s, using %s",
			compatible, types.DefaultPlatform)
	}
	return types.LookupPlatform(types.DefaultPlatform)
}
