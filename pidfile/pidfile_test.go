// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package pidfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *base.LogObject {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return base.NewSourceLogObject(logger, "pidfile-test", 0)
}

func TestCheckAndCreatePidfile(t *testing.T) {
	log := testLog()
	dir := t.TempDir()

	exists, _ := CheckProcessExists(log, "rasctl", WithBaseDir(dir))
	assert.False(t, exists)

	require.NoError(t, CheckAndCreatePidfile(log, "rasctl", WithBaseDir(dir)))
	b, err := os.ReadFile(filepath.Join(dir, "rasctl.pid"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", os.Getpid()), string(b))

	// our own pid is alive
	exists, description := CheckProcessExists(log, "rasctl", WithBaseDir(dir))
	assert.True(t, exists, description)
	assert.Error(t, CheckAndCreatePidfile(log, "rasctl", WithBaseDir(dir)))

	RemovePidfile(log, "rasctl", WithBaseDir(dir))
	_, err = os.Stat(filepath.Join(dir, "rasctl.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestStalePidfile(t *testing.T) {
	log := testLog()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rasctl.pid"), []byte("garbage"), 0644))
	exists, description := CheckProcessExists(log, "rasctl", WithBaseDir(dir))
	assert.False(t, exists)
	assert.Contains(t, description, "atoi")
	assert.NoError(t, CheckAndCreatePidfile(log, "rasctl", WithBaseDir(dir)))
}
