// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"encoding/binary"
	"fmt"
	"math"
)

type handlerState uint8

const (
	stateIdle handlerState = iota
	stateHandling
)

// Handle processes a fault event raised by controller instance.
// Only corrected DRAM ECC faults are handled; anything else reported in
// ERRGSR is logged and dropped without touching registers or blocks.
func (d *Device) Handle(instance int) error {
	if instance < 0 || instance >= len(d.controllers) {
		return fmt.Errorf("Handle(%d): %w", instance, ErrInstanceRange)
	}
	if d.state != stateIdle {
		return fmt.Errorf("Handle(%d): %w", instance, ErrBusy)
	}
	d.state = stateHandling
	defer func() { d.state = stateIdle }()

	ctrl := d.controllers[instance]
	gsr := ctrl.Regs.ErrGSR()
	ctrl.log.Functionf("Handle: fault event, ERRGSR 0x%x", gsr)

	severity := Corrected
	if gsr&severity.errgsrBit() == 0 {
		ctrl.log.Errorf("Handle: unsupported DMC-620 error reported, ERRGSR 0x%x, ignoring", gsr)
		return nil
	}
	region, err := d.ErrorBlock(instance, severity)
	if err != nil {
		return fmt.Errorf("Handle(%d): %w", instance, err)
	}

	fault := DecodeFault(ctrl.Regs.Record(severity))
	BuildErrorRecord(&fault, severity, region)

	ctrl.log.Noticef("Handle: %s DRAM ECC fault, valid %s, address 0x%x, row 0x%x, column 0x%x, rank %d, bank %d; record at 0x%x",
		severity, fault.Valid, fault.PhysicalAddress,
		uint32(fault.Row)|uint32(fault.ExtendedRow)<<16, fault.Column,
		fault.Rank, fault.Bank, region.Addr())
	return nil
}

// HandleCommBuffer is the communicate buffer entry point. The buffer
// holds the controller index as a little-endian 64 bit word; nothing is
// sent back so the returned size is always 0.
func (d *Device) HandleCommBuffer(buf []byte) (int, error) {
	if len(buf) < 8 {
		return 0, fmt.Errorf("HandleCommBuffer: %d byte buffer: %w", len(buf), ErrInvalidParameter)
	}
	index := binary.LittleEndian.Uint64(buf)
	if index > math.MaxInt32 {
		return 0, fmt.Errorf("HandleCommBuffer(%d): %w", index, ErrInstanceRange)
	}
	return 0, d.Handle(int(index))
}

// CommBuffer encodes a fault event for controller index
func CommBuffer(index int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(index))
	return buf
}
