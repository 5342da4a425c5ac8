// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package ghes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/hardware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = 0xFF620000

func testArena(t *testing.T, count int) *Arena {
	win := hardware.NewMemWindow(testBase, uint64(count)*0x100)
	arena, err := NewArena(win, 0x100, count)
	require.NoError(t, err)
	return arena
}

func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 172, RecordLength)
	assert.Equal(t, 188, MinRegionSize)
}

func TestArenaRegions(t *testing.T) {
	arena := testArena(t, 2)
	assert.Equal(t, 2, arena.Len())

	r1, err := arena.Region(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(testBase+0x100), r1.Addr())
	assert.Equal(t, uint64(testBase+0x110), r1.StatusAddr())
	assert.Len(t, r1.Bytes(), 0x100)

	_, err = arena.Region(2)
	assert.True(t, errors.Is(err, ErrRegionRange))
	_, err = arena.Region(-1)
	assert.True(t, errors.Is(err, ErrRegionRange))

	_, err = NewArena(hardware.NewMemWindow(testBase, 0x100), 0x100, 2)
	assert.Error(t, err)
	_, err = NewArena(hardware.NewMemWindow(testBase, 0x400), 0x80, 2)
	assert.Error(t, err)
	_, err = NewRegion(testBase, make([]byte, 100))
	assert.Error(t, err)
}

func TestWriteAndReadRecord(t *testing.T) {
	arena := testArena(t, 2)
	r, err := arena.Region(1)
	require.NoError(t, err)

	_, err = ReadRecord(r)
	assert.Equal(t, ErrNoRecord, err)

	section := cper.PlatformMemoryError{
		ValidFields:         cper.MemValidPhysicalAddress | cper.MemValidPhysicalAddressMask,
		PhysicalAddress:     0x200000001,
		PhysicalAddressMask: 0xFFFFFFFFFFFF,
	}
	WriteMemoryErrorRecord(r, cper.SeverityCorrected, &section)

	assert.Equal(t, r.Addr()+16, r.StatusPointer())
	assert.Zero(t, r.AckWord())

	rec, err := ReadRecord(r)
	require.NoError(t, err)
	assert.Equal(t, cper.BlockStatusCorrectable|1<<4, rec.Status.BlockStatus)
	assert.EqualValues(t, 92, rec.Status.RawDataOffset)
	assert.EqualValues(t, 0, rec.Status.RawDataLength)
	assert.EqualValues(t, 152, rec.Status.DataLength)
	assert.Equal(t, cper.SeverityCorrected, rec.Status.ErrorSeverity)
	assert.Equal(t, cper.SeverityCorrected, rec.Entry.ErrorSeverity)
	assert.EqualValues(t, 0x0300, rec.Entry.Revision)
	assert.EqualValues(t, 80, rec.Entry.ErrorDataLength)
	assert.Equal(t, cper.PlatformMemorySectionGUID, rec.Entry.SectionType)
	if diff := cmp.Diff(section, rec.Memory); diff != "" {
		t.Errorf("memory section mismatch (-want +got):\n%s", diff)
	}

	// the neighbouring region is untouched
	r0, err := arena.Region(0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 0x100), r0.Bytes())

	Acknowledge(r, 0, 1)
	assert.EqualValues(t, 1, r.AckWord())
	_, err = ReadRecord(r)
	assert.Equal(t, ErrNoRecord, err)
}

func TestUncorrectableBlockStatus(t *testing.T) {
	r, err := testArena(t, 1).Region(0)
	require.NoError(t, err)
	WriteMemoryErrorRecord(r, cper.SeverityFatal, &cper.PlatformMemoryError{})
	rec, err := ReadRecord(r)
	require.NoError(t, err)
	assert.Equal(t, cper.BlockStatusUncorrectable, rec.Status.BlockStatus&0x3)
	assert.Equal(t, cper.SeverityFatal, rec.Entry.ErrorSeverity)
}

func TestReadRecordErrors(t *testing.T) {
	r, err := testArena(t, 1).Region(0)
	require.NoError(t, err)
	WriteMemoryErrorRecord(r, cper.SeverityCorrected, &cper.PlatformMemoryError{})

	le.PutUint64(r.Bytes()[StatusPointerOffset:], 0x1234)
	_, err = ReadRecord(r)
	assert.ErrorContains(t, err, "outside block")

	le.PutUint64(r.Bytes()[StatusPointerOffset:], r.StatusAddr())
	r.Bytes()[dataEntryOffset] ^= 0xFF
	_, err = ReadRecord(r)
	assert.ErrorContains(t, err, "section type")
}

func TestWriteDoesNotAllocate(t *testing.T) {
	r, err := testArena(t, 1).Region(0)
	require.NoError(t, err)
	section := cper.PlatformMemoryError{Row: 1}
	allocs := testing.AllocsPerRun(100, func() {
		WriteMemoryErrorRecord(r, cper.SeverityCorrected, &section)
	})
	assert.Zero(t, allocs)
}
