// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ghes manages Generic Hardware Error Source status blocks in
// reserved memory. A block holds, in order, the read acknowledge word,
// the pointer to the Generic Error Status and the status with its single
// memory error record.
package ghes

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/hardware"
)

// Block layout
const (
	AckOffset           = 0
	StatusPointerOffset = 8
	HeaderOffset        = 16
	// RecordLength is the length of the Generic Error Status with one
	// memory error data entry
	RecordLength = cper.GenericErrorStatusSize + cper.GenericErrorDataEntrySize +
		cper.PlatformMemoryErrorSize
	// MinRegionSize is the smallest region that can hold a record
	MinRegionSize = HeaderOffset + RecordLength

	dataEntryOffset = HeaderOffset + cper.GenericErrorStatusSize
	sectionOffset   = dataEntryOffset + cper.GenericErrorDataEntrySize
)

var (
	// ErrNoRecord is returned when a block holds no pending record
	ErrNoRecord = errors.New("no error record")
	// ErrRegionRange is returned for a region index outside the arena
	ErrRegionRange = errors.New("region index out of range")
)

var le = binary.LittleEndian

// Region is the fixed memory of one error status block
type Region struct {
	addr uint64
	mem  []byte
}

// NewRegion wraps mem, which lives at physical address addr
func NewRegion(addr uint64, mem []byte) (Region, error) {
	if len(mem) < MinRegionSize {
		return Region{}, fmt.Errorf("region 0x%x: size %d below %d",
			addr, len(mem), MinRegionSize)
	}
	return Region{addr: addr, mem: mem}, nil
}

// Addr is the physical address of the region
func (r Region) Addr() uint64 { return r.addr }

// StatusAddr is the physical address of the Generic Error Status
func (r Region) StatusAddr() uint64 { return r.addr + HeaderOffset }

// Bytes returns the memory of the region
func (r Region) Bytes() []byte { return r.mem }

// Zero clears the whole region
func (r Region) Zero() {
	for i := range r.mem {
		r.mem[i] = 0
	}
}

// AckWord returns the read acknowledge word
func (r Region) AckWord() uint64 { return le.Uint64(r.mem[AckOffset:]) }

// StatusPointer returns the status pointer word
func (r Region) StatusPointer() uint64 { return le.Uint64(r.mem[StatusPointerOffset:]) }

// Arena is a run of equally sized regions, one per error source
type Arena struct {
	win        hardware.Window
	regionSize uint64
	count      int
}

// NewArena splits win into count regions of regionSize bytes
func NewArena(win hardware.Window, regionSize uint64, count int) (*Arena, error) {
	if regionSize < MinRegionSize {
		return nil, fmt.Errorf("NewArena: region size %d below %d",
			regionSize, MinRegionSize)
	}
	if count <= 0 || uint64(count)*regionSize > win.Len() {
		return nil, fmt.Errorf("NewArena: %d regions of 0x%x do not fit window of 0x%x",
			count, regionSize, win.Len())
	}
	return &Arena{win: win, regionSize: regionSize, count: count}, nil
}

// Len is the number of regions
func (a *Arena) Len() int { return a.count }

// Region returns region index
func (a *Arena) Region(index int) (Region, error) {
	if index < 0 || index >= a.count {
		return Region{}, fmt.Errorf("region %d of %d: %w", index, a.count, ErrRegionRange)
	}
	start := uint64(index) * a.regionSize
	return Region{
		addr: a.win.Addr() + start,
		mem:  a.win.Bytes()[start : start+a.regionSize],
	}, nil
}
