// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/ghes"
)

// MemorySection converts the fault to a CPER memory error section.
// Fields without a validity bit stay zero.
func (f *DecodedFault) MemorySection() cper.PlatformMemoryError {
	var m cper.PlatformMemoryError
	if f.Valid&ValidPhysicalAddress != 0 {
		m.ValidFields |= cper.MemValidPhysicalAddress
		m.PhysicalAddress = f.PhysicalAddress
	}
	if f.Valid&ValidPhysicalAddressMask != 0 {
		m.ValidFields |= cper.MemValidPhysicalAddressMask
		m.PhysicalAddressMask = f.PhysicalAddressMask
	}
	if f.Valid&ValidColumn != 0 {
		m.ValidFields |= cper.MemValidColumn
		m.Column = f.Column
	}
	if f.Valid&ValidRow != 0 {
		m.ValidFields |= cper.MemValidRow
		m.Row = f.Row
	}
	if f.Valid&ValidExtendedRow != 0 {
		m.ValidFields |= cper.MemValidExtendedRow
		m.Extended = f.ExtendedRow & 0x3
	}
	if f.Valid&ValidRank != 0 {
		m.ValidFields |= cper.MemValidRankNumber
		m.RankNum = f.Rank
	}
	if f.Valid&ValidBank != 0 {
		m.ValidFields |= cper.MemValidBank
		m.Bank = f.Bank
	}
	return m
}

// BuildErrorRecord writes the error status block for fault into region
func BuildErrorRecord(fault *DecodedFault, severity FaultSeverity, region ghes.Region) {
	section := fault.MemorySection()
	ghes.WriteMemoryErrorRecord(region, severity.CperSeverity(), &section)
}
