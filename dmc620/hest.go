// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/acpi"
	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/ghes"
	uuid "github.com/satori/go.uuid"
)

// Descriptor returns the GHESv2 descriptor of (index, severity)
func (d *Device) Descriptor(index int, severity FaultSeverity) (acpi.GHESv2, error) {
	region, err := d.ErrorBlock(index, severity)
	if err != nil {
		return acpi.GHESv2{}, err
	}
	return acpi.GHESv2{
		Type:                         acpi.ErrorSourceGHESv2,
		SourceID:                     d.cfg.SourceIDBase + uint16(index),
		RelatedSourceID:              0xFFFF,
		Enabled:                      1,
		NumberOfRecordsToPreAllocate: 1,
		MaxSectionsPerRecord:         1,
		MaxRawDataLength:             cper.PlatformMemoryErrorSize,
		ErrorStatusAddress:           acpi.SystemMemoryQword(region.Addr() + ghes.StatusPointerOffset),
		Notification:                 acpi.SDEINotification(d.cfg.SdeiEventBase + uint32(index)),
		ErrorStatusBlockLength:       ghes.RecordLength,
		ReadAckRegister:              acpi.SystemMemoryQword(region.Addr() + ghes.AckOffset),
	}, nil
}

// Size reports the number of descriptors Fill writes and their length
func (d *Device) Size() (count int, length int) {
	count = len(d.controllers) * len(SupportedSeverities)
	return count, count * acpi.GHESv2Size
}

// Fill zeroes the error block of every published error source and
// writes the descriptors to buf in ascending controller order.
func (d *Device) Fill(buf []byte) (int, int, error) {
	count, length := d.Size()
	if len(buf) < length {
		return count, length, fmt.Errorf("Fill: have %d bytes, need %d: %w",
			len(buf), length, ErrBufferTooSmall)
	}
	off := 0
	for i := range d.controllers {
		for _, severity := range SupportedSeverities {
			region, err := d.ErrorBlock(i, severity)
			if err != nil {
				return count, length, fmt.Errorf("Fill: %w", err)
			}
			region.Zero()
			desc, err := d.Descriptor(i, severity)
			if err != nil {
				return count, length, fmt.Errorf("Fill: %w", err)
			}
			desc.Put(buf[off : off+acpi.GHESv2Size])
			off += acpi.GHESv2Size

			name := fmt.Sprintf("dmc620-%d-%s", i, severity)
			base.EnsureLogObject(d.log, base.ErrorSourceLogType, name, uuid.Nil,
				fmt.Sprintf("source-%d", desc.SourceID)).
				Functionf("published source 0x%x, SDEI event %d, block 0x%x",
					desc.SourceID, desc.Notification.Vector, region.Addr())
		}
	}
	return count, length, nil
}

// DescInfoGet is the single entry point form of Size and Fill: a nil
// buf only sizes and returns ErrInvalidParameter along with the count
// and length.
func (d *Device) DescInfoGet(buf []byte) (count int, length int, err error) {
	if buf == nil {
		count, length = d.Size()
		return count, length, ErrInvalidParameter
	}
	return d.Fill(buf)
}
