// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package ghes

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/cper"
)

// WriteMemoryErrorRecord publishes one memory error section in r.
// The status pointer is set to the header and the acknowledge word is
// left alone. Nothing is allocated.
func WriteMemoryErrorRecord(r Region, severity cper.Severity, section *cper.PlatformMemoryError) {
	le.PutUint64(r.mem[StatusPointerOffset:], r.StatusAddr())

	status := cper.GenericErrorStatus{
		RawDataOffset: cper.GenericErrorStatusSize + cper.GenericErrorDataEntrySize,
		DataLength:    cper.GenericErrorDataEntrySize + cper.PlatformMemoryErrorSize,
		ErrorSeverity: severity,
	}
	if severity == cper.SeverityCorrected {
		status.BlockStatus = cper.BlockStatusCorrectable
	} else {
		status.BlockStatus = cper.BlockStatusUncorrectable
	}
	status.SetEntryCount(1)
	status.Put(r.mem[HeaderOffset:])

	entry := cper.GenericErrorDataEntry{
		SectionType:     cper.PlatformMemorySectionGUID,
		ErrorSeverity:   severity,
		Revision:        cper.GenericErrorDataEntryRevision,
		ErrorDataLength: cper.PlatformMemoryErrorSize,
	}
	entry.Put(r.mem[dataEntryOffset:])
	section.Put(r.mem[sectionOffset:])
}

// Record is a memory error record read back from a block
type Record struct {
	Status cper.GenericErrorStatus
	Entry  cper.GenericErrorDataEntry
	Memory cper.PlatformMemoryError
}

// ReadRecord parses the pending record in r. ErrNoRecord is returned
// when the status pointer or the block status are clear.
func ReadRecord(r Region) (Record, error) {
	var rec Record
	ptr := r.StatusPointer()
	if ptr == 0 {
		return rec, ErrNoRecord
	}
	if ptr != r.StatusAddr() {
		return rec, fmt.Errorf("region 0x%x: status pointer 0x%x outside block",
			r.addr, ptr)
	}
	var err error
	rec.Status, err = cper.ParseGenericErrorStatus(r.mem[HeaderOffset:])
	if err != nil {
		return rec, err
	}
	if rec.Status.BlockStatus == 0 {
		return rec, ErrNoRecord
	}
	if rec.Status.EntryCount() != 1 ||
		rec.Status.DataLength != cper.GenericErrorDataEntrySize+cper.PlatformMemoryErrorSize {
		return rec, fmt.Errorf("region 0x%x: %d entries with data length %d not supported",
			r.addr, rec.Status.EntryCount(), rec.Status.DataLength)
	}
	rec.Entry, err = cper.ParseGenericErrorDataEntry(r.mem[dataEntryOffset:])
	if err != nil {
		return rec, err
	}
	if rec.Entry.SectionType != cper.PlatformMemorySectionGUID {
		return rec, fmt.Errorf("region 0x%x: unexpected section type %s",
			r.addr, rec.Entry.SectionType)
	}
	rec.Memory, err = cper.ParsePlatformMemoryError(r.mem[sectionOffset:])
	return rec, err
}

// Acknowledge is the consumer side of a read: the block status is
// cleared and the acknowledge word set to (word & preserve) | write.
func Acknowledge(r Region, preserve, write uint64) {
	le.PutUint32(r.mem[HeaderOffset:], 0)
	ack := le.Uint64(r.mem[AckOffset:])
	le.PutUint64(r.mem[AckOffset:], (ack&preserve)|write)
}
