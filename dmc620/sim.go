// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/lf-edge/eve/pkg/ras/types"
)

// RawFault is what the controller latches into an error record slot
type RawFault struct {
	Status uint32 `json:"status"`
	Addr0  uint32 `json:"addr0"`
	Addr1  uint32 `json:"addr1"`
	Misc0  uint32 `json:"misc0"`
	Misc1  uint32 `json:"misc1"`
	// Counters go to MISC2..5
	Counters [4]uint32 `json:"counters"`
}

// Simulator provides simulated register windows and error block memory
// for a platform. Status registers are write-one-to-clear like the
// hardware.
type Simulator struct {
	cfg    types.Dmc620Config
	mapper *hardware.SimMapper
}

// NewSimulator maps the register windows of all controllers and reports
// them ready.
func NewSimulator(cfg types.Dmc620Config) (*Simulator, error) {
	s := &Simulator{cfg: cfg, mapper: hardware.NewSimMapper()}
	for i := 0; i < cfg.NumControllers; i++ {
		if _, err := s.mapper.Map(cfg.RegisterAddr(i), RegisterWindowSize); err != nil {
			return nil, fmt.Errorf("NewSimulator: %w", err)
		}
		win := s.window(i)
		win.MarkWriteOneToClear(err1Offset + recordStatusOffset)
		win.MarkWriteOneToClear(err2Offset + recordStatusOffset)
		win.Set32(memcStatusOffset, memcStatusReady)
	}
	return s, nil
}

// Mapper is the address space to hand to New
func (s *Simulator) Mapper() hardware.Mapper { return s.mapper }

func (s *Simulator) window(instance int) *hardware.MemWindow {
	win, _ := s.mapper.Lookup(s.cfg.RegisterAddr(instance))
	return win
}

// Registers returns the simulated register window of instance
func (s *Simulator) Registers(instance int) (*hardware.MemWindow, error) {
	if instance < 0 || instance >= s.cfg.NumControllers {
		return nil, fmt.Errorf("instance %d: %w", instance, ErrInstanceRange)
	}
	return s.window(instance), nil
}

// InjectFault latches f into the record slot of severity and flags the
// slot in ERRGSR.
func (s *Simulator) InjectFault(instance int, severity FaultSeverity, f RawFault) error {
	win, err := s.Registers(instance)
	if err != nil {
		return fmt.Errorf("InjectFault: %w", err)
	}
	rec := severity.recordOffset()
	win.Set32(rec+recordStatusOffset, f.Status)
	win.Set32(rec+recordAddr0Offset, f.Addr0)
	win.Set32(rec+recordAddr1Offset, f.Addr1)
	win.Set32(rec+recordMiscOffset, f.Misc0)
	win.Set32(rec+recordMiscOffset+4, f.Misc1)
	for i, c := range f.Counters {
		win.Set32(rec+recordMiscOffset+uint64(8+4*i), c)
	}
	win.Set32(errgsrOffset, win.Read32(errgsrOffset)|severity.errgsrBit())
	return nil
}

// InjectCorrectedFault latches f into ERR1
func (s *Simulator) InjectCorrectedFault(instance int, f RawFault) error {
	return s.InjectFault(instance, Corrected, f)
}

// SetErrGSR overwrites ERRGSR of instance
func (s *Simulator) SetErrGSR(instance int, val uint32) error {
	win, err := s.Registers(instance)
	if err != nil {
		return fmt.Errorf("SetErrGSR: %w", err)
	}
	win.Set32(errgsrOffset, val)
	return nil
}

// Record reads back the record slot of severity
func (s *Simulator) Record(instance int, severity FaultSeverity) (RawFault, error) {
	win, err := s.Registers(instance)
	if err != nil {
		return RawFault{}, fmt.Errorf("Record: %w", err)
	}
	rec := severity.recordOffset()
	f := RawFault{
		Status: win.Read32(rec + recordStatusOffset),
		Addr0:  win.Read32(rec + recordAddr0Offset),
		Addr1:  win.Read32(rec + recordAddr1Offset),
		Misc0:  win.Read32(rec + recordMiscOffset),
		Misc1:  win.Read32(rec + recordMiscOffset + 4),
	}
	for i := range f.Counters {
		f.Counters[i] = win.Read32(rec + recordMiscOffset + uint64(8+4*i))
	}
	return f, nil
}
