// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/cper"
)

// FaultSeverity selects the error record slot and the reported severity
type FaultSeverity uint8

// Fault severities
const (
	Corrected FaultSeverity = iota
	Uncorrected
)

// SupportedSeverities are the severities which get a published error
// source and are dispatched.
var SupportedSeverities = []FaultSeverity{Corrected}

func (s FaultSeverity) String() string {
	switch s {
	case Corrected:
		return "corrected"
	case Uncorrected:
		return "uncorrected"
	default:
		return fmt.Sprintf("FaultSeverity(%d)", uint8(s))
	}
}

// CperSeverity is the severity written to the error record
func (s FaultSeverity) CperSeverity() cper.Severity {
	if s == Corrected {
		return cper.SeverityCorrected
	}
	return cper.SeverityFatal
}

func (s FaultSeverity) recordOffset() uint64 {
	if s == Corrected {
		return err1Offset
	}
	return err2Offset
}

func (s FaultSeverity) errgsrBit() uint32 {
	if s == Corrected {
		return errgsrDramEccCorrected
	}
	return errgsrDramEccUncorrected
}
