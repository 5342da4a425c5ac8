// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Access to physical memory: controller register windows and the
// reserved memory holding the error status blocks.

package hardware

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Window is a mapped range of physical address space.
// Offsets passed to Read32 and Write32 are relative to Addr and must be
// 4 byte aligned.
type Window interface {
	Read32(off uint64) uint32
	Write32(off uint64, val uint32)
	// Bytes returns the whole window for bulk access
	Bytes() []byte
	Addr() uint64
	Len() uint64
	Close() error
}

// Mapper hands out windows
type Mapper interface {
	Map(addr, length uint64) (Window, error)
}

var devMem = "/dev/mem"

// PhysMapper maps windows of /dev/mem
type PhysMapper struct{}

// PhysWindow is a window onto /dev/mem. Register accesses are single
// 32-bit loads and stores.
type PhysWindow struct {
	addr    uint64
	mapping []byte
	mem     []byte
}

// Map implements Mapper
func (PhysMapper) Map(addr, length uint64) (Window, error) {
	if length == 0 {
		return nil, fmt.Errorf("map 0x%x: zero length", addr)
	}
	f, err := os.OpenFile(devMem, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("map 0x%x: %w", addr, err)
	}
	defer f.Close()

	pageSize := uint64(unix.Getpagesize())
	start := addr &^ (pageSize - 1)
	skip := addr - start
	size := (skip + length + pageSize - 1) &^ (pageSize - 1)
	mapping, err := unix.Mmap(int(f.Fd()), int64(start), int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s 0x%x+0x%x: %w", devMem, start, size, err)
	}
	return &PhysWindow{
		addr:    addr,
		mapping: mapping,
		mem:     mapping[skip : skip+length],
	}, nil
}

func (w *PhysWindow) word(off uint64) *uint32 {
	if off%4 != 0 || off+4 > uint64(len(w.mem)) {
		panic(fmt.Sprintf("register offset 0x%x outside window 0x%x+0x%x",
			off, w.addr, len(w.mem)))
	}
	return (*uint32)(unsafe.Pointer(&w.mem[off]))
}

// Read32 implements Window
func (w *PhysWindow) Read32(off uint64) uint32 {
	return atomic.LoadUint32(w.word(off))
}

// Write32 implements Window
func (w *PhysWindow) Write32(off uint64, val uint32) {
	atomic.StoreUint32(w.word(off), val)
}

// Bytes implements Window
func (w *PhysWindow) Bytes() []byte { return w.mem }

// Addr implements Window
func (w *PhysWindow) Addr() uint64 { return w.addr }

// Len implements Window
func (w *PhysWindow) Len() uint64 { return uint64(len(w.mem)) }

// Close unmaps the window
func (w *PhysWindow) Close() error {
	if w.mapping == nil {
		return nil
	}
	err := unix.Munmap(w.mapping)
	w.mapping = nil
	w.mem = nil
	return err
}

// MemWindow is a little-endian window backed by ordinary memory.
// Registers marked with MarkWriteOneToClear behave like hardware status
// registers: writing a one clears that bit, writing a zero leaves it.
type MemWindow struct {
	addr uint64
	mem  []byte
	w1c  map[uint64]bool
}

// NewMemWindow returns a zeroed window of length bytes at addr
func NewMemWindow(addr, length uint64) *MemWindow {
	return &MemWindow{
		addr: addr,
		mem:  make([]byte, length),
		w1c:  make(map[uint64]bool),
	}
}

// MarkWriteOneToClear makes the register at off write-one-to-clear
func (w *MemWindow) MarkWriteOneToClear(off uint64) {
	w.w1c[off] = true
}

// Set32 stores val regardless of write-one-to-clear, as the hardware
// does when it latches a fault.
func (w *MemWindow) Set32(off uint64, val uint32) {
	binary.LittleEndian.PutUint32(w.mem[off:off+4], val)
}

// Read32 implements Window
func (w *MemWindow) Read32(off uint64) uint32 {
	return binary.LittleEndian.Uint32(w.mem[off : off+4])
}

// Write32 implements Window
func (w *MemWindow) Write32(off uint64, val uint32) {
	if w.w1c[off] {
		val = w.Read32(off) &^ val
	}
	w.Set32(off, val)
}

// Bytes implements Window
func (w *MemWindow) Bytes() []byte { return w.mem }

// Addr implements Window
func (w *MemWindow) Addr() uint64 { return w.addr }

// Len implements Window
func (w *MemWindow) Len() uint64 { return uint64(len(w.mem)) }

// Close implements Window
func (w *MemWindow) Close() error { return nil }

// SimMapper hands out MemWindows and returns the same window when an
// address is mapped again, so a simulator and the code under test share
// state.
type SimMapper struct {
	windows map[uint64]*MemWindow
}

// NewSimMapper returns an empty simulated address space
func NewSimMapper() *SimMapper {
	return &SimMapper{windows: make(map[uint64]*MemWindow)}
}

// Map implements Mapper
func (m *SimMapper) Map(addr, length uint64) (Window, error) {
	if length == 0 {
		return nil, fmt.Errorf("map 0x%x: zero length", addr)
	}
	if w, ok := m.windows[addr]; ok {
		if w.Len() < length {
			return nil, fmt.Errorf("map 0x%x: already mapped with length 0x%x",
				addr, w.Len())
		}
		return w, nil
	}
	for _, w := range m.windows {
		if addr < w.Addr()+w.Len() && w.Addr() < addr+length {
			return nil, fmt.Errorf("map 0x%x+0x%x: overlaps 0x%x+0x%x",
				addr, length, w.Addr(), w.Len())
		}
	}
	w := NewMemWindow(addr, length)
	m.windows[addr] = w
	return w, nil
}

// Lookup returns the window mapped at addr
func (m *SimMapper) Lookup(addr uint64) (*MemWindow, bool) {
	w, ok := m.windows[addr]
	return w, ok
}
