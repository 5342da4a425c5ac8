// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"time"
)

// MemoryErrorStatus is published per memory controller for the error
// records seen in its error status block
type MemoryErrorStatus struct {
	Platform string
	Instance int
	// BlockAddr is the physical address of the error status block
	BlockAddr uint64
	Severity  string
	// Count of records seen since the publisher started
	Count uint64
	// Last record
	ValidFields     uint64
	PhysicalAddress uint64
	Row             uint32
	Column          uint16
	Rank            uint16
	Bank            uint16
	LastSeen        time.Time
}

// Key returns the key for pubsub
func (status MemoryErrorStatus) Key() string {
	return fmt.Sprintf("dmc620-%d", status.Instance)
}
