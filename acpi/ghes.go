// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package acpi lays out the hardware error source descriptors and the
// tables carrying them (HEST, SDEI), as defined by ACPI 6.3 chapter 18.
package acpi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sizes of the packed structures
const (
	GenericAddressSize            = 12
	HardwareErrorNotificationSize = 28
	GHESv2Size                    = 92
)

// Error source structure types
const (
	ErrorSourceGHES   uint16 = 9
	ErrorSourceGHESv2 uint16 = 10
)

// Notification types
const (
	NotificationPolled uint8 = 0
	NotificationSCI    uint8 = 3
	NotificationGPIO   uint8 = 7
	NotificationSEA    uint8 = 8
	NotificationSEI    uint8 = 9
	NotificationGSIV   uint8 = 10
	NotificationSDEI   uint8 = 11
)

// Address spaces and access sizes of a Generic Address Structure
const (
	AddressSpaceSystemMemory uint8 = 0
	AccessSizeQword          uint8 = 4
)

// ErrShortBuffer is returned when a buffer cannot hold a structure
var ErrShortBuffer = errors.New("buffer too short")

var le = binary.LittleEndian

// GenericAddress is the ACPI Generic Address Structure
type GenericAddress struct {
	AddressSpaceID    uint8
	RegisterBitWidth  uint8
	RegisterBitOffset uint8
	AccessSize        uint8
	Address           uint64
}

// SystemMemoryQword is a 64 bit wide location in system memory
func SystemMemoryQword(addr uint64) GenericAddress {
	return GenericAddress{
		AddressSpaceID:   AddressSpaceSystemMemory,
		RegisterBitWidth: 64,
		AccessSize:       AccessSizeQword,
		Address:          addr,
	}
}

// Put writes a to b[:GenericAddressSize]
func (a *GenericAddress) Put(b []byte) {
	_ = b[GenericAddressSize-1]
	b[0] = a.AddressSpaceID
	b[1] = a.RegisterBitWidth
	b[2] = a.RegisterBitOffset
	b[3] = a.AccessSize
	le.PutUint64(b[4:], a.Address)
}

func parseGenericAddress(b []byte) GenericAddress {
	return GenericAddress{
		AddressSpaceID:    b[0],
		RegisterBitWidth:  b[1],
		RegisterBitOffset: b[2],
		AccessSize:        b[3],
		Address:           le.Uint64(b[4:]),
	}
}

// HardwareErrorNotification tells the OS how it is told about errors
type HardwareErrorNotification struct {
	Type                           uint8
	Length                         uint8
	ConfigurationWriteEnable       uint16
	PollInterval                   uint32
	Vector                         uint32
	SwitchToPollingThresholdValue  uint32
	SwitchToPollingThresholdWindow uint32
	ErrorThresholdValue            uint32
	ErrorThresholdWindow           uint32
}

// SDEINotification is an SDEI event notification for event
func SDEINotification(event uint32) HardwareErrorNotification {
	return HardwareErrorNotification{
		Type:   NotificationSDEI,
		Length: HardwareErrorNotificationSize,
		Vector: event,
	}
}

// Put writes n to b[:HardwareErrorNotificationSize]
func (n *HardwareErrorNotification) Put(b []byte) {
	_ = b[HardwareErrorNotificationSize-1]
	b[0] = n.Type
	b[1] = n.Length
	le.PutUint16(b[2:], n.ConfigurationWriteEnable)
	le.PutUint32(b[4:], n.PollInterval)
	le.PutUint32(b[8:], n.Vector)
	le.PutUint32(b[12:], n.SwitchToPollingThresholdValue)
	le.PutUint32(b[16:], n.SwitchToPollingThresholdWindow)
	le.PutUint32(b[20:], n.ErrorThresholdValue)
	le.PutUint32(b[24:], n.ErrorThresholdWindow)
}

func parseHardwareErrorNotification(b []byte) HardwareErrorNotification {
	return HardwareErrorNotification{
		Type:                           b[0],
		Length:                         b[1],
		ConfigurationWriteEnable:       le.Uint16(b[2:]),
		PollInterval:                   le.Uint32(b[4:]),
		Vector:                         le.Uint32(b[8:]),
		SwitchToPollingThresholdValue:  le.Uint32(b[12:]),
		SwitchToPollingThresholdWindow: le.Uint32(b[16:]),
		ErrorThresholdValue:            le.Uint32(b[20:]),
		ErrorThresholdWindow:           le.Uint32(b[24:]),
	}
}

// GHESv2 is a Generic Hardware Error Source version 2 descriptor
type GHESv2 struct {
	Type                         uint16
	SourceID                     uint16
	RelatedSourceID              uint16
	Flags                        uint8
	Enabled                      uint8
	NumberOfRecordsToPreAllocate uint32
	MaxSectionsPerRecord         uint32
	MaxRawDataLength             uint32
	ErrorStatusAddress           GenericAddress
	Notification                 HardwareErrorNotification
	ErrorStatusBlockLength       uint32
	ReadAckRegister              GenericAddress
	ReadAckPreserve              uint64
	ReadAckWrite                 uint64
}

// Put writes d to b[:GHESv2Size]
func (d *GHESv2) Put(b []byte) {
	_ = b[GHESv2Size-1]
	le.PutUint16(b[0:], d.Type)
	le.PutUint16(b[2:], d.SourceID)
	le.PutUint16(b[4:], d.RelatedSourceID)
	b[6] = d.Flags
	b[7] = d.Enabled
	le.PutUint32(b[8:], d.NumberOfRecordsToPreAllocate)
	le.PutUint32(b[12:], d.MaxSectionsPerRecord)
	le.PutUint32(b[16:], d.MaxRawDataLength)
	d.ErrorStatusAddress.Put(b[20:32])
	d.Notification.Put(b[32:60])
	le.PutUint32(b[60:], d.ErrorStatusBlockLength)
	d.ReadAckRegister.Put(b[64:76])
	le.PutUint64(b[76:], d.ReadAckPreserve)
	le.PutUint64(b[84:], d.ReadAckWrite)
}

// ParseGHESv2 decodes the start of b
func ParseGHESv2(b []byte) (GHESv2, error) {
	if len(b) < GHESv2Size {
		return GHESv2{}, fmt.Errorf("GHESv2: %w", ErrShortBuffer)
	}
	d := GHESv2{
		Type:                         le.Uint16(b[0:]),
		SourceID:                     le.Uint16(b[2:]),
		RelatedSourceID:              le.Uint16(b[4:]),
		Flags:                        b[6],
		Enabled:                      b[7],
		NumberOfRecordsToPreAllocate: le.Uint32(b[8:]),
		MaxSectionsPerRecord:         le.Uint32(b[12:]),
		MaxRawDataLength:             le.Uint32(b[16:]),
		ErrorStatusAddress:           parseGenericAddress(b[20:32]),
		Notification:                 parseHardwareErrorNotification(b[32:60]),
		ErrorStatusBlockLength:       le.Uint32(b[60:]),
		ReadAckRegister:              parseGenericAddress(b[64:76]),
		ReadAckPreserve:              le.Uint64(b[76:]),
		ReadAckWrite:                 le.Uint64(b[84:]),
	}
	if d.Type != ErrorSourceGHESv2 {
		return d, fmt.Errorf("GHESv2: unexpected type %d", d.Type)
	}
	return d, nil
}
