// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cper

import (
	uuid "github.com/satori/go.uuid"
)

// GUID is an EFI_GUID as laid out in memory: the first three fields are
// little-endian, the last eight bytes are stored as written.
type GUID [16]byte

// FromUUID converts the textual (RFC 4122 byte order) form to EFI layout
func FromUUID(u uuid.UUID) GUID {
	var g GUID
	g[0], g[1], g[2], g[3] = u[3], u[2], u[1], u[0]
	g[4], g[5] = u[5], u[4]
	g[6], g[7] = u[7], u[6]
	copy(g[8:], u[8:])
	return g
}

// MustParseGUID parses a GUID string and panics on error.
// Intended for package level variables.
func MustParseGUID(s string) GUID {
	return FromUUID(uuid.Must(uuid.FromString(s)))
}

// UUID converts back to RFC 4122 byte order
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	copy(u[8:], g[8:])
	return u
}

func (g GUID) String() string {
	return g.UUID().String()
}

// PlatformMemorySectionGUID identifies a Platform Memory Error section
var PlatformMemorySectionGUID = MustParseGUID("a5bc1114-6f64-4ede-b863-3e83ed7c83b1")
