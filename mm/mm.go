// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mm models the management mode services a firmware error
// handler runs under: GUID keyed event handlers reached through a
// communicate buffer, and a protocol directory.
package mm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/lf-edge/eve/pkg/ras/cper"
)

// Handler is called with the communicate buffer and returns the number
// of bytes it placed in it for the caller.
type Handler func(commBuffer []byte) (int, error)

// DispatchHandle identifies a registered handler
type DispatchHandle uint64

// Services are the management mode services used by drivers
type Services interface {
	RegisterHandler(guid cper.GUID, handler Handler) (DispatchHandle, error)
	UnregisterHandler(handle DispatchHandle) error
	InstallProtocol(guid cper.GUID, iface interface{}) error
	LocateProtocol(guid cper.GUID) (interface{}, error)
}

// Errors returned by Table
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyStarted = errors.New("already installed")
	ErrInvalidHandle  = errors.New("invalid handle")
)

type registration struct {
	guid    cper.GUID
	handler Handler
}

// Table is an in-process implementation of Services
type Table struct {
	log       *base.LogObject
	mu        sync.Mutex
	next      DispatchHandle
	handlers  map[DispatchHandle]registration
	protocols map[cper.GUID]interface{}
}

// NewTable returns empty services
func NewTable(log *base.LogObject) *Table {
	return &Table{
		log:       log,
		handlers:  make(map[DispatchHandle]registration),
		protocols: make(map[cper.GUID]interface{}),
	}
}

// RegisterHandler implements Services
func (t *Table) RegisterHandler(guid cper.GUID, handler Handler) (DispatchHandle, error) {
	if handler == nil {
		return 0, fmt.Errorf("RegisterHandler(%s): nil handler", guid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.handlers[t.next] = registration{guid: guid, handler: handler}
	t.log.Functionf("RegisterHandler(%s) handle %d", guid, t.next)
	return t.next, nil
}

// UnregisterHandler implements Services
func (t *Table) UnregisterHandler(handle DispatchHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handlers[handle]; !ok {
		return fmt.Errorf("UnregisterHandler(%d): %w", handle, ErrInvalidHandle)
	}
	delete(t.handlers, handle)
	t.log.Functionf("UnregisterHandler(%d)", handle)
	return nil
}

// InstallProtocol implements Services
func (t *Table) InstallProtocol(guid cper.GUID, iface interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.protocols[guid]; ok {
		return fmt.Errorf("InstallProtocol(%s): %w", guid, ErrAlreadyStarted)
	}
	t.protocols[guid] = iface
	t.log.Noticef("InstallProtocol(%s)", guid)
	return nil
}

// LocateProtocol implements Services
func (t *Table) LocateProtocol(guid cper.GUID) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	iface, ok := t.protocols[guid]
	if !ok {
		return nil, fmt.Errorf("LocateProtocol(%s): %w", guid, ErrNotFound)
	}
	return iface, nil
}

// Communicate calls every handler registered for guid with buf, in
// registration order, and returns the size reported by the last one.
func (t *Table) Communicate(guid cper.GUID, buf []byte) (int, error) {
	t.mu.Lock()
	var handles []DispatchHandle
	for h, reg := range t.handlers {
		if reg.guid == guid {
			handles = append(handles, h)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	handlers := make([]Handler, len(handles))
	for i, h := range handles {
		handlers[i] = t.handlers[h].handler
	}
	t.mu.Unlock()

	if len(handlers) == 0 {
		return 0, fmt.Errorf("Communicate(%s): %w", guid, ErrNotFound)
	}
	size := 0
	for _, handler := range handlers {
		var err error
		size, err = handler(buf)
		if err != nil {
			return size, fmt.Errorf("Communicate(%s): %w", guid, err)
		}
	}
	return size, nil
}
