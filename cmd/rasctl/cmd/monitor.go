// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/ghes"
	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/lf-edge/eve/pkg/ras/pidfile"
	"github.com/lf-edge/eve/pkg/ras/pubsub"
	"github.com/lf-edge/eve/pkg/ras/types"
	"github.com/lf-edge/eve/pkg/ras/watch"
	"github.com/spf13/cobra"
)

var (
	monitorInterval time.Duration
	monitorRundir   string
	monitorWait     bool
	monitorListen   string
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the corrected error blocks and print new records",
	Long: `
Map the corrected error status blocks of the platform through /dev/mem,
print every record that shows up and acknowledge it the way the OS
would. A MemoryErrorStatus per controller is published as JSON under
<rundir>/rasctl/MemoryErrorStatus and, with --listen, served over HTTP
at /ras/v1/memory.json. With --config the platform file is reloaded
when it changes.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pidfile.CheckAndCreatePidfile(log, agentName,
			pidfile.WithBaseDir(monitorRundir)); err != nil {
			return err
		}
		defer pidfile.RemovePidfile(log, agentName, pidfile.WithBaseDir(monitorRundir))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfgFile != "" && monitorWait {
			if err := watch.WaitForFile(ctx, log, cfgFile); err != nil {
				return err
			}
		}
		cfg, err := loadPlatform()
		if err != nil {
			return err
		}

		changes := make(chan string, 1)
		if cfgFile != "" {
			go func() {
				if err := watch.WatchFile(ctx, log, cfgFile, changes); err != nil {
					log.Errorf("monitor: %s", err)
				}
			}()
		}
		pub, err := pubsub.NewPublication(log, monitorRundir, agentName,
			types.MemoryErrorStatus{})
		if err != nil {
			return err
		}
		if monitorListen != "" {
			go func() {
				if err := serveStatus(ctx, monitorListen, pub); err != nil {
					log.Errorf("monitor: %s", err)
				}
			}()
		}
		return runMonitor(ctx, cmd, hardware.PhysMapper{}, pub, cfg, changes)
	},
}

type blockMonitor struct {
	win    hardware.Window
	arena  *ghes.Arena
	config types.PlatformConfig
	pub    *pubsub.Publication
	status []types.MemoryErrorStatus
}

func openBlocks(mapper hardware.Mapper, pub *pubsub.Publication,
	cfg types.PlatformConfig) (*blockMonitor, error) {

	dmc := cfg.Dmc620
	block := dmc.CorrectedErrorBlock
	win, err := mapper.Map(block.Base, block.Size*uint64(dmc.NumControllers))
	if err != nil {
		return nil, err
	}
	arena, err := ghes.NewArena(win, block.Size, dmc.NumControllers)
	if err != nil {
		win.Close()
		return nil, err
	}
	m := &blockMonitor{win: win, arena: arena, config: cfg, pub: pub,
		status: make([]types.MemoryErrorStatus, dmc.NumControllers)}
	for i := range m.status {
		m.status[i] = types.MemoryErrorStatus{
			Platform:  cfg.Name,
			Instance:  i,
			BlockAddr: block.Addr(i),
			Severity:  cper.SeverityCorrected.String(),
		}
	}
	return m, nil
}

func (m *blockMonitor) publish(i int, rec ghes.Record) error {
	mem := rec.Memory
	status := &m.status[i]
	status.Count++
	status.Severity = rec.Status.ErrorSeverity.String()
	status.ValidFields = mem.ValidFields
	status.PhysicalAddress = mem.PhysicalAddress
	status.Row = mem.FullRow()
	status.Column = mem.Column
	status.Rank = mem.RankNum
	status.Bank = mem.Bank
	status.LastSeen = time.Now()
	return m.pub.Publish(status.Key(), *status)
}

// unpublishAll drops the status of every controller
func (m *blockMonitor) unpublishAll() {
	for key := range m.pub.GetAll() {
		if err := m.pub.Unpublish(key); err != nil {
			log.Errorf("monitor: %s", err)
		}
	}
}

// poll prints and acknowledges pending records, returning how many
// were found.
func (m *blockMonitor) poll(cmd *cobra.Command) (int, error) {
	found := 0
	for i := 0; i < m.arena.Len(); i++ {
		region, err := m.arena.Region(i)
		if err != nil {
			return found, err
		}
		rec, err := ghes.ReadRecord(region)
		if errors.Is(err, ghes.ErrNoRecord) {
			continue
		}
		if err != nil {
			log.Errorf("monitor: block %d: %s", i, err)
			continue
		}
		found++
		if err := printJSON(cmd.OutOrStdout(), newRecordReport(region, rec)); err != nil {
			return found, err
		}
		// ReadAckPreserve and ReadAckWrite are both published as 0
		ghes.Acknowledge(region, 0, 0)
		if err := m.publish(i, rec); err != nil {
			log.Errorf("monitor: block %d: %s", i, err)
		}
	}
	return found, nil
}

func runMonitor(ctx context.Context, cmd *cobra.Command, mapper hardware.Mapper,
	pub *pubsub.Publication, cfg types.PlatformConfig, changes <-chan string) error {

	m, err := openBlocks(mapper, pub, cfg)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	defer func() { m.win.Close() }()
	log.Noticef("monitor: %s, %d corrected error blocks at 0x%x",
		cfg.Name, cfg.Dmc620.NumControllers, cfg.Dmc620.CorrectedErrorBlock.Base)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-changes:
			if change[0] != 'M' {
				log.Warnf("monitor: %s, keeping current platform", change)
				continue
			}
			newCfg, err := loadPlatform()
			if err != nil {
				log.Errorf("monitor: reload: %s", err)
				continue
			}
			// unmap first, the new blocks may overlap the old ones
			m.win.Close()
			newM, err := openBlocks(mapper, pub, newCfg)
			if err != nil {
				log.Errorf("monitor: reload: %s", err)
				return fmt.Errorf("monitor: reload: %w", err)
			}
			m.unpublishAll()
			m = newM
			log.Noticef("monitor: reloaded %s", newCfg.Name)
		case <-ticker.C:
			if _, err := m.poll(cmd); err != nil {
				return err
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "poll interval")
	monitorCmd.Flags().StringVar(&monitorRundir, "rundir", "/run", "directory of the pidfile")
	monitorCmd.Flags().BoolVar(&monitorWait, "wait", false, "wait for the --config file to appear")
	monitorCmd.Flags().StringVar(&monitorListen, "listen", "", "address of the status server, e.g. 127.0.0.1:8087")
}
