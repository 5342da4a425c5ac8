// Copyright (c) 2017,2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Determine which platform we run on.
// We have no dmidecode on the Arm reference designs; the device tree
// compatible string is all we can report. Any nul characters are
// replaced with '.' since /proc/device-tree/compatible contains nuls.

package hardware

import (
	"bytes"
	"os"

	"github.com/lf-edge/eve/pkg/ras/base"
)

var compatibleFile = "/proc/device-tree/compatible"

// GetCompatible returns the device tree compatible entries joined by '.'
// or an empty string when there is no device tree.
func GetCompatible(log *base.LogObject) string {
	if _, err := os.Stat(compatibleFile); err != nil {
		log.Functionf("GetCompatible: %s", err)
		return ""
	}
	contents, err := os.ReadFile(compatibleFile)
	if err != nil {
		log.Errorf("GetCompatible: %s", err)
		return ""
	}
	return massageCompatible(contents)
}

func massageCompatible(contents []byte) string {
	contents = bytes.TrimRight(contents, "\x00")
	contents = bytes.Replace(contents, []byte("\x00"), []byte("."), -1)
	return string(bytes.TrimSpace(contents))
}
