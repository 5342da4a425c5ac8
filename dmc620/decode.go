// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"strings"
)

// FaultValid flags the DecodedFault fields which carry data
type FaultValid uint32

// Validity bits
const (
	ValidPhysicalAddress FaultValid = 1 << iota
	ValidPhysicalAddressMask
	ValidColumn
	ValidRow
	ValidExtendedRow
	ValidRank
	ValidBank
)

var validNames = []string{
	"address", "address-mask", "column", "row", "extended-row", "rank", "bank",
}

func (v FaultValid) String() string {
	var names []string
	for i, name := range validNames {
		if v&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// PhysicalAddressMask covers the 48 address bits the controller reports
const PhysicalAddressMask = 0xFFFFFFFFFFFF

// DecodedFault holds the fields extracted from one error record slot.
// A field is meaningful only when its bit is set in Valid.
type DecodedFault struct {
	Valid               FaultValid
	PhysicalAddress     uint64
	PhysicalAddressMask uint64
	Column              uint16
	Row                 uint16
	// ExtendedRow holds row bits 16 and 17
	ExtendedRow uint8
	Rank        uint16
	Bank        uint16
}

// DecodeFault reads the record slot, extracts the fields the status
// marks valid and re-arms the slot for the next fault. The status is
// cleared before and after the miscellaneous counters are reset.
func DecodeFault(rec RecordRegs) DecodedFault {
	var f DecodedFault

	status := rec.Status()
	addr0 := rec.Addr0()
	addr1 := rec.Addr1()
	misc0 := rec.Misc(0)
	misc1 := rec.Misc(1)

	rec.ClearStatus()

	if status&statusAV != 0 {
		f.Valid |= ValidPhysicalAddress | ValidPhysicalAddressMask
		f.PhysicalAddress = uint64(addr1)<<32 | uint64(addr0)
		f.PhysicalAddressMask = PhysicalAddressMask
	}
	if status&statusMV != 0 && misc0&misc0Valid != 0 {
		f.Valid |= ValidColumn | ValidRow | ValidExtendedRow | ValidRank
		f.Column = uint16(misc0 & misc0ColumnMask)
		rowField := (misc0 & misc0RowMask) >> misc0RowShift
		f.Row = uint16(rowField)
		f.ExtendedRow = uint8(rowField >> 16)
		f.Rank = uint16((misc0 & misc0RankMask) >> misc0RankShift)
	}
	if status&statusMV != 0 && misc1&misc1Valid != 0 {
		f.Valid |= ValidBank
		f.Bank = uint16(misc1 & misc1BankMask)
	}
	// MISC2..5 only hold error counters
	if status&statusMV != 0 {
		for i := 2; i < 6; i++ {
			rec.SetMisc(i, 0)
		}
	}

	rec.ClearStatus()
	return f
}
