// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lf-edge/eve/pkg/ras/acpi"
	"github.com/lf-edge/eve/pkg/ras/agentlog"
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/ghes"
	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/lf-edge/eve/pkg/ras/pubsub"
	"github.com/lf-edge/eve/pkg/ras/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRasctl(t *testing.T, args ...string) (string, error) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDescriptorsCommand(t *testing.T) {
	out, err := runRasctl(t, "descriptors", "--platform", "rdn2")
	require.NoError(t, err)
	var reports []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 8)
	assert.Equal(t, "0x1000", reports[0]["source_id"])
	assert.Equal(t, "0x1007", reports[7]["source_id"])
	assert.EqualValues(t, 811, reports[7]["sdei_event"])
	assert.Equal(t, "0xff620708", reports[7]["error_status_address"])
	assert.Equal(t, "0xff620700", reports[7]["read_ack_register"])
}

func TestHestCommand(t *testing.T) {
	dir := t.TempDir()
	hestFile := filepath.Join(dir, "hest.bin")
	sdeiFile := filepath.Join(dir, "sdei.bin")
	_, err := runRasctl(t, "hest", "--platform", "rdn1edge", "-o", hestFile, "--sdei", sdeiFile)
	require.NoError(t, err)

	hest, err := os.ReadFile(hestFile)
	require.NoError(t, err)
	assert.True(t, acpi.VerifyChecksum(hest))
	sources, err := acpi.HESTErrorSources(hest)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	sdei, err := os.ReadFile(sdeiFile)
	require.NoError(t, err)
	assert.Equal(t, "SDEI", string(sdei[:4]))
	assert.True(t, acpi.VerifyChecksum(sdei))
}

func TestInjectCommand(t *testing.T) {
	out, err := runRasctl(t, "inject", "--platform", "rdn1edge", "--instance", "1",
		"--status", "0x84000000", "--addr0", "0x1", "--addr1", "0x2",
		"--misc0", "0x8c000555", "--misc1", "0x8000000a")
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "0xff620100", report["block"])
	assert.Equal(t, "corrected", report["severity"])
	assert.Equal(t, "a5bc1114-6f64-4ede-b863-3e83ed7c83b1", report["section"])
	assert.Equal(t, "0x200000001", report["physical_address"])
	assert.Equal(t, "0x30001", report["row"])
	assert.Equal(t, "0x155", report["column"])
	assert.EqualValues(t, 10, report["bank"])

	_, err = runRasctl(t, "inject", "--platform", "rdn1edge", "--instance", "5")
	assert.Error(t, err)
	// reset for other tests sharing the flag variables
	injectInstance = 0
}

func TestDecodeCommand(t *testing.T) {
	mem := make([]byte, 0x100)
	region, err := ghes.NewRegion(0xFF620000, mem)
	require.NoError(t, err)
	ghes.WriteMemoryErrorRecord(region, cper.SeverityCorrected, &cper.PlatformMemoryError{
		ValidFields: cper.MemValidBank,
		Bank:        3,
	})
	dump := filepath.Join(t.TempDir(), "block.bin")
	require.NoError(t, os.WriteFile(dump, mem, 0644))

	out, err := runRasctl(t, "decode", dump, "--platform", "rdn1edge")
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 3, report["bank"])
	_, hasAddress := report["physical_address"]
	assert.False(t, hasAddress)

	// the pointer does not match a block at another address
	_, err = runRasctl(t, "decode", dump, "--addr", "0xff620100")
	assert.ErrorContains(t, err, "outside block")
	decodeAddr = 0
}

func TestMonitorPoll(t *testing.T) {
	logger, logObj := agentlog.InitWithWriter(agentName, io.Discard)
	logger.SetOutput(io.Discard)
	log = logObj

	p, err := types.LookupPlatform("rdn1edge")
	require.NoError(t, err)
	mapper := hardware.NewSimMapper()
	pub, err := pubsub.NewPublication(log, t.TempDir(), agentName, types.MemoryErrorStatus{})
	require.NoError(t, err)
	m, err := openBlocks(mapper, pub, p)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	found, err := m.poll(cmd)
	require.NoError(t, err)
	assert.Zero(t, found)

	region, err := m.arena.Region(1)
	require.NoError(t, err)
	ghes.WriteMemoryErrorRecord(region, cper.SeverityCorrected, &cper.PlatformMemoryError{
		ValidFields:     cper.MemValidPhysicalAddress,
		PhysicalAddress: 0x1234,
	})
	found, err = m.poll(cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, found)
	assert.Contains(t, out.String(), `"physical_address": "0x1234"`)

	data, err := os.ReadFile(filepath.Join(pub.DirName(), "dmc620-1.json"))
	require.NoError(t, err)
	var status types.MemoryErrorStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "rdn1edge", status.Platform)
	assert.EqualValues(t, 1, status.Count)
	assert.EqualValues(t, 0xFF620100, status.BlockAddr)
	assert.EqualValues(t, 0x1234, status.PhysicalAddress)
	assert.Equal(t, "corrected", status.Severity)

	// acknowledged records are not printed again
	found, err = m.poll(cmd)
	require.NoError(t, err)
	assert.Zero(t, found)
}

func TestRunMonitor(t *testing.T) {
	logger, logObj := agentlog.InitWithWriter(agentName, io.Discard)
	logger.SetOutput(io.Discard)
	log = logObj
	platformName = "rdn1edge"
	cfgFile = ""
	monitorInterval = 10 * time.Millisecond

	p, err := types.LookupPlatform(platformName)
	require.NoError(t, err)
	mapper := hardware.NewSimMapper()
	win, err := mapper.Map(p.Dmc620.CorrectedErrorBlock.Base, 2*p.Dmc620.CorrectedErrorBlock.Size)
	require.NoError(t, err)
	arena, err := ghes.NewArena(win, p.Dmc620.CorrectedErrorBlock.Size, 2)
	require.NoError(t, err)
	region, err := arena.Region(0)
	require.NoError(t, err)
	ghes.WriteMemoryErrorRecord(region, cper.SeverityCorrected, &cper.PlatformMemoryError{
		ValidFields: cper.MemValidBank,
		Bank:        7,
	})

	pub, err := pubsub.NewPublication(log, t.TempDir(), agentName, types.MemoryErrorStatus{})
	require.NoError(t, err)
	out := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	changes := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runMonitor(ctx, cmd, mapper, pub, p, changes) }()

	statusFile := filepath.Join(pub.DirName(), "dmc620-0.json")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(statusFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	// deletes are ignored, modifications reload and drop the old status
	changes <- "D platform.yaml"
	changes <- "M platform.yaml"
	assert.Eventually(t, func() bool {
		_, err := os.Stat(statusFile)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Contains(t, out.String(), `"bank": 7`)
	_, err = ghes.ReadRecord(region)
	assert.ErrorIs(t, err, ghes.ErrNoRecord)
}

func TestStatusHandler(t *testing.T) {
	logger, logObj := agentlog.InitWithWriter(agentName, io.Discard)
	logger.SetOutput(io.Discard)
	log = logObj

	pub, err := pubsub.NewPublication(log, t.TempDir(), agentName, types.MemoryErrorStatus{})
	require.NoError(t, err)
	for _, i := range []int{1, 0} {
		status := types.MemoryErrorStatus{Platform: "rdn1edge", Instance: i, Count: uint64(i + 1)}
		require.NoError(t, pub.Publish(status.Key(), status))
	}
	handler := makeStatusHandler(pub)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ras/v1/memory.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var list []types.MemoryErrorStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].Instance)
	assert.Equal(t, 1, list[1].Instance)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ras/v1/memory/dmc620-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status types.MemoryErrorStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 2, status.Count)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ras/v1/memory/dmc620-7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
