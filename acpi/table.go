// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package acpi

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/types"
)

// TableHeaderSize is the size of the common ACPI table header
const TableHeaderSize = 36

// Table revisions written by BuildHEST and BuildSDEI
const (
	HESTRevision = 1
	SDEIRevision = 1
)

// TableHeader is the common ACPI description header
type TableHeader struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OemID           [6]byte
	OemTableID      [8]byte
	OemRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// NewTableHeader fills the OEM part of a header from the platform
func NewTableHeader(signature string, revision uint8, oem types.AcpiOemConfig) TableHeader {
	h := TableHeader{
		Revision:        revision,
		OemRevision:     oem.OemRevision,
		CreatorRevision: oem.CreatorRevision,
	}
	copy(h.Signature[:], signature)
	copy(h.OemID[:], oem.OemID)
	copy(h.OemTableID[:], oem.OemTableID)
	copy(h.CreatorID[:], oem.CreatorID)
	return h
}

// Put writes h to b[:TableHeaderSize]
func (h *TableHeader) Put(b []byte) {
	_ = b[TableHeaderSize-1]
	copy(b[0:4], h.Signature[:])
	le.PutUint32(b[4:], h.Length)
	b[8] = h.Revision
	b[9] = h.Checksum
	copy(b[10:16], h.OemID[:])
	copy(b[16:24], h.OemTableID[:])
	le.PutUint32(b[24:], h.OemRevision)
	copy(b[28:32], h.CreatorID[:])
	le.PutUint32(b[32:], h.CreatorRevision)
}

// ParseTableHeader decodes the start of b
func ParseTableHeader(b []byte) (TableHeader, error) {
	var h TableHeader
	if len(b) < TableHeaderSize {
		return h, fmt.Errorf("table header: %w", ErrShortBuffer)
	}
	copy(h.Signature[:], b[0:4])
	h.Length = le.Uint32(b[4:])
	h.Revision = b[8]
	h.Checksum = b[9]
	copy(h.OemID[:], b[10:16])
	copy(h.OemTableID[:], b[16:24])
	h.OemRevision = le.Uint32(b[24:])
	copy(h.CreatorID[:], b[28:32])
	h.CreatorRevision = le.Uint32(b[32:])
	return h, nil
}

// Checksum returns the byte which makes the sum of b, with b[9]
// taken as zero, equal to zero modulo 256.
func Checksum(b []byte) uint8 {
	var sum uint8
	for i, c := range b {
		if i == 9 {
			continue
		}
		sum += c
	}
	return -sum
}

// VerifyChecksum reports whether the bytes of the table sum to zero
func VerifyChecksum(table []byte) bool {
	var sum uint8
	for _, c := range table {
		sum += c
	}
	return sum == 0
}

// ErrorSourceProvider publishes hardware error source descriptors.
// Size reports how many descriptors Fill will write and their total
// length in bytes.
type ErrorSourceProvider interface {
	Size() (count int, length int)
	Fill(buf []byte) (count int, length int, err error)
}

// BuildHEST assembles a Hardware Error Source Table from the descriptors
// of all providers.
func BuildHEST(oem types.AcpiOemConfig, providers ...ErrorSourceProvider) ([]byte, error) {
	total := TableHeaderSize + 4
	for _, p := range providers {
		_, length := p.Size()
		total += length
	}
	table := make([]byte, total)
	off := TableHeaderSize + 4
	var sources uint32
	for i, p := range providers {
		count, length, err := p.Fill(table[off:])
		if err != nil {
			return nil, fmt.Errorf("BuildHEST: provider %d: %w", i, err)
		}
		sources += uint32(count)
		off += length
	}
	if off != total {
		return nil, fmt.Errorf("BuildHEST: providers wrote %d bytes, sized %d",
			off, total)
	}
	le.PutUint32(table[TableHeaderSize:], sources)
	finishTable(table, NewTableHeader("HEST", HESTRevision, oem))
	return table, nil
}

// BuildSDEI returns the SDEI table which advertises the SDEI interface
func BuildSDEI(oem types.AcpiOemConfig) []byte {
	table := make([]byte, TableHeaderSize)
	finishTable(table, NewTableHeader("SDEI", SDEIRevision, oem))
	return table
}

func finishTable(table []byte, h TableHeader) {
	h.Length = uint32(len(table))
	h.Put(table)
	table[9] = Checksum(table)
}

// HESTErrorSources splits the body of a HEST into GHESv2 descriptors.
// Other error source types are not understood.
func HESTErrorSources(table []byte) ([]GHESv2, error) {
	h, err := ParseTableHeader(table)
	if err != nil {
		return nil, err
	}
	if string(h.Signature[:]) != "HEST" {
		return nil, fmt.Errorf("HEST: unexpected signature %q", h.Signature[:])
	}
	if int(h.Length) != len(table) || len(table) < TableHeaderSize+4 {
		return nil, fmt.Errorf("HEST: length %d, have %d bytes", h.Length, len(table))
	}
	count := int(le.Uint32(table[TableHeaderSize:]))
	body := table[TableHeaderSize+4:]
	descs := make([]GHESv2, 0, count)
	for i := 0; i < count; i++ {
		d, err := ParseGHESv2(body)
		if err != nil {
			return nil, fmt.Errorf("HEST: source %d: %w", i, err)
		}
		descs = append(descs, d)
		body = body[GHESv2Size:]
	}
	return descs, nil
}
