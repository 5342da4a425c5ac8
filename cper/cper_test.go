// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cper

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onsi/gomega"
)

func TestStructSizes(t *testing.T) {
	g := gomega.NewWithT(t)
	g.Expect(binary.Size(GenericErrorStatus{})).To(gomega.Equal(GenericErrorStatusSize))
	g.Expect(binary.Size(GenericErrorDataEntry{})).To(gomega.Equal(GenericErrorDataEntrySize))
	g.Expect(binary.Size(PlatformMemoryError{})).To(gomega.Equal(PlatformMemoryErrorSize))
}

func TestGUIDLayout(t *testing.T) {
	g := gomega.NewWithT(t)
	g.Expect(PlatformMemorySectionGUID[:]).To(gomega.Equal([]byte{
		0x14, 0x11, 0xbc, 0xa5, 0x64, 0x6f, 0xde, 0x4e,
		0xb8, 0x63, 0x3e, 0x83, 0xed, 0x7c, 0x83, 0xb1,
	}))
	g.Expect(PlatformMemorySectionGUID.String()).To(
		gomega.Equal("a5bc1114-6f64-4ede-b863-3e83ed7c83b1"))
	g.Expect(FromUUID(PlatformMemorySectionGUID.UUID())).To(gomega.Equal(PlatformMemorySectionGUID))
}

// putMatchesBinaryWrite checks the hand written encoder against the
// reflection based one for the same value.
func putMatchesBinaryWrite(g *gomega.WithT, v interface{}, put func([]byte)) []byte {
	var want bytes.Buffer
	g.Expect(binary.Write(&want, binary.LittleEndian, v)).To(gomega.Succeed())
	got := make([]byte, want.Len())
	put(got)
	g.Expect(got).To(gomega.Equal(want.Bytes()))
	return got
}

func TestGenericErrorStatus(t *testing.T) {
	g := gomega.NewWithT(t)
	s := GenericErrorStatus{
		BlockStatus:   BlockStatusCorrectable,
		RawDataOffset: 92,
		DataLength:    GenericErrorDataEntrySize + PlatformMemoryErrorSize,
		ErrorSeverity: SeverityCorrected,
	}
	s.SetEntryCount(1)
	g.Expect(s.BlockStatus).To(gomega.BeEquivalentTo(0x12))
	g.Expect(s.EntryCount()).To(gomega.BeEquivalentTo(1))
	s.SetEntryCount(0x3FF)
	g.Expect(s.EntryCount()).To(gomega.BeEquivalentTo(0x3FF))
	g.Expect(s.BlockStatus & 0xF).To(gomega.Equal(BlockStatusCorrectable))
	s.SetEntryCount(1)

	b := putMatchesBinaryWrite(g, s, s.Put)
	parsed, err := ParseGenericErrorStatus(b)
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(parsed).To(gomega.Equal(s))

	_, err = ParseGenericErrorStatus(b[:19])
	g.Expect(errors.Is(err, ErrShortBuffer)).To(gomega.BeTrue())
}

func TestGenericErrorDataEntry(t *testing.T) {
	g := gomega.NewWithT(t)
	e := GenericErrorDataEntry{
		SectionType:     PlatformMemorySectionGUID,
		ErrorSeverity:   SeverityFatal,
		Revision:        GenericErrorDataEntryRevision,
		ValidationBits:  0x1,
		Flags:           0x2,
		ErrorDataLength: PlatformMemoryErrorSize,
	}
	copy(e.FruText[:], "DIMM0")
	e.Timestamp[7] = 0x20

	b := putMatchesBinaryWrite(g, e, e.Put)
	g.Expect(b[20:22]).To(gomega.Equal([]byte{0x00, 0x03}))
	parsed, err := ParseGenericErrorDataEntry(b)
	g.Expect(err).ToNot(gomega.HaveOccurred())
	if diff := cmp.Diff(e, parsed); diff != "" {
		t.Errorf("data entry mismatch (-want +got):\n%s", diff)
	}
	_, err = ParseGenericErrorDataEntry(b[:GenericErrorDataEntrySize-1])
	g.Expect(err).To(gomega.MatchError(ErrShortBuffer))
}

func TestPlatformMemoryError(t *testing.T) {
	g := gomega.NewWithT(t)
	m := PlatformMemoryError{
		ValidFields: MemValidPhysicalAddress | MemValidPhysicalAddressMask |
			MemValidBank | MemValidRow | MemValidColumn | MemValidRankNumber |
			MemValidExtendedRow,
		PhysicalAddress:     0x200000001,
		PhysicalAddressMask: 0xFFFFFFFFFFFF,
		Bank:                0xA,
		Row:                 0x0001,
		Column:              0x155,
		Extended:            0x3,
		RankNum:             0x5,
	}
	b := putMatchesBinaryWrite(g, m, m.Put)
	g.Expect(b[73]).To(gomega.BeEquivalentTo(0x3))
	parsed, err := ParsePlatformMemoryError(b)
	g.Expect(err).ToNot(gomega.HaveOccurred())
	if diff := cmp.Diff(m, parsed); diff != "" {
		t.Errorf("memory section mismatch (-want +got):\n%s", diff)
	}
	g.Expect(parsed.FullRow()).To(gomega.BeEquivalentTo(0x30001))
}

func TestSeverityString(t *testing.T) {
	g := gomega.NewWithT(t)
	g.Expect(SeverityCorrected.String()).To(gomega.Equal("corrected"))
	g.Expect(SeverityFatal.String()).To(gomega.Equal("fatal"))
	g.Expect(Severity(9).String()).To(gomega.Equal("unknown(9)"))
}
