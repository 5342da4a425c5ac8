// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package dmc620 reports DRAM ECC faults of Arm DMC-620 memory
// controllers. A fault event for a controller is decoded from its error
// record registers into a CPER memory error record in the error status
// block of that controller, which a GHESv2 error source descriptor
// points the OS at.
package dmc620

import (
	"errors"
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/lf-edge/eve/pkg/ras/ghes"
	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/lf-edge/eve/pkg/ras/types"
	uuid "github.com/satori/go.uuid"
)

// Errors returned for invalid calls
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrInstanceRange    = errors.New("controller instance out of range")
	ErrBusy             = errors.New("fault handling in progress")
)

// Controller is one memory controller instance
type Controller struct {
	Index int
	Regs  Registers
	log   *base.LogObject
}

// Device holds all controllers of a platform and their error blocks
type Device struct {
	log         *base.LogObject
	cfg         types.Dmc620Config
	controllers []*Controller
	blocks      map[FaultSeverity]*ghes.Arena
	windows     []hardware.Window
	state       handlerState
}

// New maps the register windows and error blocks described by cfg
func New(log *base.LogObject, cfg types.Dmc620Config, mapper hardware.Mapper) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dmc620.New: %w", err)
	}
	d := &Device{
		log:    log,
		cfg:    cfg,
		blocks: make(map[FaultSeverity]*ghes.Arena),
	}
	for i := 0; i < cfg.NumControllers; i++ {
		addr := cfg.RegisterAddr(i)
		win, err := mapper.Map(addr, RegisterWindowSize)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("dmc620.New: controller %d: %w", i, err)
		}
		d.windows = append(d.windows, win)
		regs, err := NewRegisters(win)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("dmc620.New: controller %d: %w", i, err)
		}
		name := fmt.Sprintf("dmc620-%d", i)
		ctrl := &Controller{
			Index: i,
			Regs:  regs,
			log: base.EnsureLogObject(log, base.ControllerLogType, name,
				uuid.Nil, fmt.Sprintf("%s@%x", name, addr)),
		}
		ctrl.log.Functionf("mapped registers at 0x%x, %s", addr, regs.MemcState())
		d.controllers = append(d.controllers, ctrl)
	}

	block := cfg.CorrectedErrorBlock
	win, err := mapper.Map(block.Base, block.Size*uint64(cfg.NumControllers))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("dmc620.New: corrected error blocks: %w", err)
	}
	d.windows = append(d.windows, win)
	arena, err := ghes.NewArena(win, block.Size, cfg.NumControllers)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("dmc620.New: %w", err)
	}
	d.blocks[Corrected] = arena
	log.Noticef("dmc620: %d controllers, corrected error blocks at 0x%x",
		cfg.NumControllers, block.Base)
	return d, nil
}

// Close unmaps everything New mapped
func (d *Device) Close() error {
	var firstErr error
	for _, win := range d.windows {
		if err := win.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.windows = nil
	return firstErr
}

// Config returns the configuration the device was created with
func (d *Device) Config() types.Dmc620Config { return d.cfg }

// NumControllers is the number of controller instances
func (d *Device) NumControllers() int { return len(d.controllers) }

// Controller returns controller index
func (d *Device) Controller(index int) (*Controller, error) {
	if index < 0 || index >= len(d.controllers) {
		return nil, fmt.Errorf("controller %d of %d: %w", index,
			len(d.controllers), ErrInstanceRange)
	}
	return d.controllers[index], nil
}

// ErrorBlock returns the error status block of (index, severity)
func (d *Device) ErrorBlock(index int, severity FaultSeverity) (ghes.Region, error) {
	arena, ok := d.blocks[severity]
	if !ok {
		return ghes.Region{}, fmt.Errorf("%s faults have no error block: %w",
			severity, ErrInvalidParameter)
	}
	region, err := arena.Region(index)
	if err != nil {
		return ghes.Region{}, fmt.Errorf("controller %d: %w", index, ErrInstanceRange)
	}
	return region, nil
}
