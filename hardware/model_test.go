// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package hardware

import (
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
	return base.NewSourceLogObject(logger, "hardware-test", 0)
}

func TestMassageCompatible(t *testing.T) {
	testMatrix := map[string]struct {
		in  string
		out string
	}{
		"rdn1edge":  {in: "arm,rd-n1-edge\x00arm,neoverse-n1\x00", out: "arm,rd-n1-edge.arm,neoverse-n1"},
		"single":    {in: "arm,rd-n2", out: "arm,rd-n2"},
		"empty":     {in: "", out: ""},
		"only nuls": {in: "\x00\x00", out: ""},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		assert.Equal(t, test.out, massageCompatible([]byte(test.in)))
	}
}

func TestGetCompatible(t *testing.T) {
	saved := compatibleFile
	defer func() { compatibleFile = saved }()

	dir := t.TempDir()
	compatibleFile = filepath.Join(dir, "compatible")
	assert.Equal(t, "", GetCompatible(testLog()))

	require.NoError(t, os.WriteFile(compatibleFile, []byte("arm,rd-n2\x00arm,neoverse\x00"), 0644))
	assert.Equal(t, "arm,rd-n2.arm,neoverse", GetCompatible(testLog()))
}
