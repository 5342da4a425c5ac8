// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"fmt"
	"unsafe"

	"github.com/lf-edge/eve/pkg/ras/hardware"
)

// errRecordRegs is one full error record slot
type errRecordRegs struct {
	Fr     uint32
	_      uint32
	Ctlr   uint32
	_      uint32
	Status uint32
	_      uint32
	Addr0  uint32
	Addr1  uint32
	Misc   [6]uint32
	_      [8]byte
}

// controllerRegs mirrors the start of the DMC-620 register map up to
// and including ERRGSR. It is never instantiated; only the offsets are
// used.
type controllerRegs struct {
	MemcStatus uint32
	MemcConfig uint32
	MemcCmd    uint32
	_          [0x1bd]uint32
	Err0Fr     uint32
	_          uint32
	Err0Ctlr0  uint32
	Err0Ctlr1  uint32
	Err0Status uint32
	_          [0x2c]byte
	Err1       errRecordRegs
	Err2       errRecordRegs
	_          [0x58]uint32
	Errgsr     uint32
}

// Register offsets
const (
	memcStatusOffset = uint64(unsafe.Offsetof(controllerRegs{}.MemcStatus))
	err1Offset       = uint64(unsafe.Offsetof(controllerRegs{}.Err1))
	err2Offset       = uint64(unsafe.Offsetof(controllerRegs{}.Err2))
	errgsrOffset     = uint64(unsafe.Offsetof(controllerRegs{}.Errgsr))

	recordSize         = uint64(unsafe.Sizeof(errRecordRegs{}))
	recordStatusOffset = uint64(unsafe.Offsetof(errRecordRegs{}.Status))
	recordAddr0Offset  = uint64(unsafe.Offsetof(errRecordRegs{}.Addr0))
	recordAddr1Offset  = uint64(unsafe.Offsetof(errRecordRegs{}.Addr1))
	recordMiscOffset   = uint64(unsafe.Offsetof(errRecordRegs{}.Misc))

	// RegisterWindowSize is the length of register space mapped per
	// controller
	RegisterWindowSize = uint64(unsafe.Sizeof(controllerRegs{}))
)

// Register fields
const (
	memcStatusMask  = 0x7
	memcStatusReady = 0x3

	statusAV = 1 << 31
	statusMV = 1 << 26

	misc0ColumnMask = 0x3FF
	misc0RowMask    = 0x0FFFFC00
	misc0RowShift   = 10
	misc0RankMask   = 0x7 << 28
	misc0RankShift  = 28
	misc0Valid      = 1 << 31

	misc1Valid    = 1 << 31
	misc1BankMask = 0xF

	errgsrDramEccCorrected   = 1 << 1
	errgsrDramEccUncorrected = 1 << 2
)

// MemcState is the controller state from MEMC_STATUS
type MemcState uint32

// Ready reports whether the controller is serving requests
func (s MemcState) Ready() bool {
	return s == memcStatusReady
}

func (s MemcState) String() string {
	if s.Ready() {
		return "ready"
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// Registers is the register window of one controller
type Registers struct {
	win hardware.Window
}

// NewRegisters wraps a mapped register window
func NewRegisters(win hardware.Window) (Registers, error) {
	if win.Len() < RegisterWindowSize {
		return Registers{}, fmt.Errorf("register window 0x%x: length 0x%x below 0x%x",
			win.Addr(), win.Len(), RegisterWindowSize)
	}
	return Registers{win: win}, nil
}

// Addr is the base address of the window
func (r Registers) Addr() uint64 { return r.win.Addr() }

// MemcState reads MEMC_STATUS
func (r Registers) MemcState() MemcState {
	return MemcState(r.win.Read32(memcStatusOffset) & memcStatusMask)
}

// ErrGSR reads the error global status register
func (r Registers) ErrGSR() uint32 {
	return r.win.Read32(errgsrOffset)
}

// Record returns the error record slot for severity
func (r Registers) Record(severity FaultSeverity) RecordRegs {
	return RecordRegs{win: r.win, base: severity.recordOffset()}
}

// RecordRegs is one error record slot
type RecordRegs struct {
	win  hardware.Window
	base uint64
}

// Status reads ERR<n>STATUS
func (r RecordRegs) Status() uint32 { return r.win.Read32(r.base + recordStatusOffset) }

// ClearStatus writes back what ERR<n>STATUS holds, clearing the latched
// bits.
func (r RecordRegs) ClearStatus() {
	r.win.Write32(r.base+recordStatusOffset, r.Status())
}

// Addr0 reads ERR<n>ADDR0
func (r RecordRegs) Addr0() uint32 { return r.win.Read32(r.base + recordAddr0Offset) }

// Addr1 reads ERR<n>ADDR1
func (r RecordRegs) Addr1() uint32 { return r.win.Read32(r.base + recordAddr1Offset) }

// Misc reads ERR<n>MISC<i>
func (r RecordRegs) Misc(i int) uint32 {
	return r.win.Read32(r.base + recordMiscOffset + uint64(i)*4)
}

// SetMisc writes ERR<n>MISC<i>
func (r RecordRegs) SetMisc(i int, val uint32) {
	r.win.Write32(r.base+recordMiscOffset+uint64(i)*4, val)
}
