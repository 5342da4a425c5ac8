// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lf-edge/eve/pkg/ras/acpi"
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/ghes"
)

type hex64 uint64

func (h hex64) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", uint64(h)))
}

// recordReport is the printed form of an error record. Fields without a
// validity bit are left out.
type recordReport struct {
	Block           hex64  `json:"block"`
	Severity        string `json:"severity"`
	Section         string `json:"section"`
	ValidFields     hex64  `json:"valid_fields"`
	PhysicalAddress *hex64 `json:"physical_address,omitempty"`
	AddressMask     *hex64 `json:"physical_address_mask,omitempty"`
	Row             *hex64 `json:"row,omitempty"`
	Column          *hex64 `json:"column,omitempty"`
	Rank            *int   `json:"rank,omitempty"`
	Bank            *int   `json:"bank,omitempty"`
}

func newRecordReport(region ghes.Region, rec ghes.Record) recordReport {
	m := rec.Memory
	r := recordReport{
		Block:       hex64(region.Addr()),
		Severity:    rec.Status.ErrorSeverity.String(),
		Section:     rec.Entry.SectionType.String(),
		ValidFields: hex64(m.ValidFields),
	}
	valid := func(bit uint64) bool { return m.ValidFields&bit != 0 }
	if valid(cper.MemValidPhysicalAddress) {
		v := hex64(m.PhysicalAddress)
		r.PhysicalAddress = &v
	}
	if valid(cper.MemValidPhysicalAddressMask) {
		v := hex64(m.PhysicalAddressMask)
		r.AddressMask = &v
	}
	if valid(cper.MemValidRow) || valid(cper.MemValidExtendedRow) {
		v := hex64(m.FullRow())
		r.Row = &v
	}
	if valid(cper.MemValidColumn) {
		v := hex64(m.Column)
		r.Column = &v
	}
	if valid(cper.MemValidRankNumber) {
		v := int(m.RankNum)
		r.Rank = &v
	}
	if valid(cper.MemValidBank) {
		v := int(m.Bank)
		r.Bank = &v
	}
	return r
}

type descriptorReport struct {
	SourceID           hex64 `json:"source_id"`
	SdeiEvent          int   `json:"sdei_event"`
	ErrorStatusAddress hex64 `json:"error_status_address"`
	ReadAckRegister    hex64 `json:"read_ack_register"`
	BlockLength        int   `json:"error_status_block_length"`
	MaxRawDataLength   int   `json:"max_raw_data_length"`
}

func newDescriptorReport(d acpi.GHESv2) descriptorReport {
	return descriptorReport{
		SourceID:           hex64(d.SourceID),
		SdeiEvent:          int(d.Notification.Vector),
		ErrorStatusAddress: hex64(d.ErrorStatusAddress.Address),
		ReadAckRegister:    hex64(d.ReadAckRegister.Address),
		BlockLength:        int(d.ErrorStatusBlockLength),
		MaxRawDataLength:   int(d.MaxRawDataLength),
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
