// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cper holds the binary layouts of UEFI Common Platform Error
// Records as they appear inside an ACPI Generic Error Status Block.
// All structures are packed and little-endian. Put methods write into a
// caller provided buffer and never allocate.
package cper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sizes of the packed structures
const (
	GenericErrorStatusSize    = 20
	GenericErrorDataEntrySize = 72
	PlatformMemoryErrorSize   = 80
)

// GenericErrorDataEntryRevision is the revision this package writes
const GenericErrorDataEntryRevision = 0x0300

// ErrShortBuffer is returned when parsing from a truncated buffer
var ErrShortBuffer = errors.New("buffer too short")

var le = binary.LittleEndian

// Severity of an error record
type Severity uint32

// Severity values
const (
	SeverityRecoverable Severity = 0
	SeverityFatal       Severity = 1
	SeverityCorrected   Severity = 2
	SeverityNone        Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityFatal:
		return "fatal"
	case SeverityCorrected:
		return "corrected"
	case SeverityNone:
		return "informational"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

// Block status bits of the Generic Error Status
const (
	BlockStatusUncorrectable         uint32 = 1 << 0
	BlockStatusCorrectable           uint32 = 1 << 1
	BlockStatusMultipleUncorrectable uint32 = 1 << 2
	BlockStatusMultipleCorrectable   uint32 = 1 << 3

	blockStatusEntryShift = 4
	blockStatusEntryMask  = 0x3FF
)

// GenericErrorStatus heads an error status block
type GenericErrorStatus struct {
	BlockStatus   uint32
	RawDataOffset uint32
	RawDataLength uint32
	DataLength    uint32
	ErrorSeverity Severity
}

// SetEntryCount stores n in bits 13:4 of BlockStatus
func (s *GenericErrorStatus) SetEntryCount(n uint32) {
	s.BlockStatus &^= blockStatusEntryMask << blockStatusEntryShift
	s.BlockStatus |= (n & blockStatusEntryMask) << blockStatusEntryShift
}

// EntryCount returns bits 13:4 of BlockStatus
func (s GenericErrorStatus) EntryCount() uint32 {
	return (s.BlockStatus >> blockStatusEntryShift) & blockStatusEntryMask
}

// Put writes s to b[:GenericErrorStatusSize]
func (s *GenericErrorStatus) Put(b []byte) {
	_ = b[GenericErrorStatusSize-1]
	le.PutUint32(b[0:], s.BlockStatus)
	le.PutUint32(b[4:], s.RawDataOffset)
	le.PutUint32(b[8:], s.RawDataLength)
	le.PutUint32(b[12:], s.DataLength)
	le.PutUint32(b[16:], uint32(s.ErrorSeverity))
}

// ParseGenericErrorStatus decodes the start of b
func ParseGenericErrorStatus(b []byte) (GenericErrorStatus, error) {
	if len(b) < GenericErrorStatusSize {
		return GenericErrorStatus{}, fmt.Errorf("generic error status: %w", ErrShortBuffer)
	}
	return GenericErrorStatus{
		BlockStatus:   le.Uint32(b[0:]),
		RawDataOffset: le.Uint32(b[4:]),
		RawDataLength: le.Uint32(b[8:]),
		DataLength:    le.Uint32(b[12:]),
		ErrorSeverity: Severity(le.Uint32(b[16:])),
	}, nil
}

// GenericErrorDataEntry precedes each section of a record
type GenericErrorDataEntry struct {
	SectionType     GUID
	ErrorSeverity   Severity
	Revision        uint16
	ValidationBits  uint8
	Flags           uint8
	ErrorDataLength uint32
	FruID           GUID
	FruText         [20]byte
	Timestamp       [8]byte
}

// Put writes e to b[:GenericErrorDataEntrySize]
func (e *GenericErrorDataEntry) Put(b []byte) {
	_ = b[GenericErrorDataEntrySize-1]
	copy(b[0:16], e.SectionType[:])
	le.PutUint32(b[16:], uint32(e.ErrorSeverity))
	le.PutUint16(b[20:], e.Revision)
	b[22] = e.ValidationBits
	b[23] = e.Flags
	le.PutUint32(b[24:], e.ErrorDataLength)
	copy(b[28:44], e.FruID[:])
	copy(b[44:64], e.FruText[:])
	copy(b[64:72], e.Timestamp[:])
}

// ParseGenericErrorDataEntry decodes the start of b
func ParseGenericErrorDataEntry(b []byte) (GenericErrorDataEntry, error) {
	var e GenericErrorDataEntry
	if len(b) < GenericErrorDataEntrySize {
		return e, fmt.Errorf("generic error data entry: %w", ErrShortBuffer)
	}
	copy(e.SectionType[:], b[0:16])
	e.ErrorSeverity = Severity(le.Uint32(b[16:]))
	e.Revision = le.Uint16(b[20:])
	e.ValidationBits = b[22]
	e.Flags = b[23]
	e.ErrorDataLength = le.Uint32(b[24:])
	copy(e.FruID[:], b[28:44])
	copy(e.FruText[:], b[44:64])
	copy(e.Timestamp[:], b[64:72])
	return e, nil
}

// Validation bits of the Platform Memory Error section
const (
	MemValidErrorStatus         uint64 = 1 << 0
	MemValidPhysicalAddress     uint64 = 1 << 1
	MemValidPhysicalAddressMask uint64 = 1 << 2
	MemValidNode                uint64 = 1 << 3
	MemValidCard                uint64 = 1 << 4
	MemValidModule              uint64 = 1 << 5
	MemValidBank                uint64 = 1 << 6
	MemValidDevice              uint64 = 1 << 7
	MemValidRow                 uint64 = 1 << 8
	MemValidColumn              uint64 = 1 << 9
	MemValidBitPosition         uint64 = 1 << 10
	MemValidRequestorID         uint64 = 1 << 11
	MemValidResponderID         uint64 = 1 << 12
	MemValidTargetID            uint64 = 1 << 13
	MemValidErrorType           uint64 = 1 << 14
	MemValidRankNumber          uint64 = 1 << 15
	MemValidCardHandle          uint64 = 1 << 16
	MemValidModuleHandle        uint64 = 1 << 17
	MemValidExtendedRow         uint64 = 1 << 18
)

// PlatformMemoryError is the memory error section body
type PlatformMemoryError struct {
	ValidFields         uint64
	ErrorStatus         uint64
	PhysicalAddress     uint64
	PhysicalAddressMask uint64
	Node                uint16
	Card                uint16
	ModuleRank          uint16
	Bank                uint16
	Device              uint16
	Row                 uint16
	Column              uint16
	BitPosition         uint16
	RequestorID         uint64
	ResponderID         uint64
	TargetID            uint64
	ErrorType           uint8
	// Extended holds row bits 16 and 17 in its bits 0 and 1
	Extended     uint8
	RankNum      uint16
	CardHandle   uint16
	ModuleHandle uint16
}

// Put writes m to b[:PlatformMemoryErrorSize]
func (m *PlatformMemoryError) Put(b []byte) {
	_ = b[PlatformMemoryErrorSize-1]
	le.PutUint64(b[0:], m.ValidFields)
	le.PutUint64(b[8:], m.ErrorStatus)
	le.PutUint64(b[16:], m.PhysicalAddress)
	le.PutUint64(b[24:], m.PhysicalAddressMask)
	le.PutUint16(b[32:], m.Node)
	le.PutUint16(b[34:], m.Card)
	le.PutUint16(b[36:], m.ModuleRank)
	le.PutUint16(b[38:], m.Bank)
	le.PutUint16(b[40:], m.Device)
	le.PutUint16(b[42:], m.Row)
	le.PutUint16(b[44:], m.Column)
	le.PutUint16(b[46:], m.BitPosition)
	le.PutUint64(b[48:], m.RequestorID)
	le.PutUint64(b[56:], m.ResponderID)
	le.PutUint64(b[64:], m.TargetID)
	b[72] = m.ErrorType
	b[73] = m.Extended
	le.PutUint16(b[74:], m.RankNum)
	le.PutUint16(b[76:], m.CardHandle)
	le.PutUint16(b[78:], m.ModuleHandle)
}

// ParsePlatformMemoryError decodes the start of b
func ParsePlatformMemoryError(b []byte) (PlatformMemoryError, error) {
	if len(b) < PlatformMemoryErrorSize {
		return PlatformMemoryError{}, fmt.Errorf("platform memory error: %w", ErrShortBuffer)
	}
	return PlatformMemoryError{
		ValidFields:         le.Uint64(b[0:]),
		ErrorStatus:         le.Uint64(b[8:]),
		PhysicalAddress:     le.Uint64(b[16:]),
		PhysicalAddressMask: le.Uint64(b[24:]),
		Node:                le.Uint16(b[32:]),
		Card:                le.Uint16(b[34:]),
		ModuleRank:          le.Uint16(b[36:]),
		Bank:                le.Uint16(b[38:]),
		Device:              le.Uint16(b[40:]),
		Row:                 le.Uint16(b[42:]),
		Column:              le.Uint16(b[44:]),
		BitPosition:         le.Uint16(b[46:]),
		RequestorID:         le.Uint64(b[48:]),
		ResponderID:         le.Uint64(b[56:]),
		TargetID:            le.Uint64(b[64:]),
		ErrorType:           b[72],
		Extended:            b[73],
		RankNum:             le.Uint16(b[74:]),
		CardHandle:          le.Uint16(b[76:]),
		ModuleHandle:        le.Uint16(b[78:]),
	}, nil
}

// FullRow combines Row with the extended row bits
func (m PlatformMemoryError) FullRow() uint32 {
	return uint32(m.Row) | uint32(m.Extended&0x3)<<16
}
