// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// MinErrorBlockSize is the smallest error block that can hold the
// acknowledge word, the status pointer and one memory error record:
// 8 + 8 + 20 (status) + 72 (data entry) + 80 (memory section).
const MinErrorBlockSize = 188

// ErrorBlockConfig places one error status block per controller in
// reserved memory: controller i uses Base + i*Size.
type ErrorBlockConfig struct {
	Base uint64 `yaml:"base"`
	Size uint64 `yaml:"size"`
}

// Addr returns the block address for controller index
func (c ErrorBlockConfig) Addr(index int) uint64 {
	return c.Base + uint64(index)*c.Size
}

// Dmc620Config holds the boot time constants of the DMC-620 error
// sources on a platform.
type Dmc620Config struct {
	NumControllers      int              `yaml:"num-controllers"`
	RegisterBase        uint64           `yaml:"register-base"`
	RegisterStride      uint64           `yaml:"register-stride"`
	CorrectedErrorBlock ErrorBlockConfig `yaml:"corrected-error-block"`
	SdeiEventBase       uint32           `yaml:"sdei-event-base"`
	SourceIDBase        uint16           `yaml:"source-id-base"`
}

// RegisterAddr returns the register window address of controller index
func (c Dmc620Config) RegisterAddr(index int) uint64 {
	return c.RegisterBase + uint64(index)*c.RegisterStride
}

// Validate checks the values which would otherwise make the error
// sources overlap or the blocks too small for a record.
func (c Dmc620Config) Validate() error {
	if c.NumControllers <= 0 {
		return fmt.Errorf("num-controllers %d: must be positive", c.NumControllers)
	}
	if c.RegisterStride == 0 && c.NumControllers > 1 {
		return errors.New("register-stride must not be zero")
	}
	if c.CorrectedErrorBlock.Base == 0 {
		return errors.New("corrected-error-block base must be set")
	}
	if c.CorrectedErrorBlock.Size < MinErrorBlockSize {
		return fmt.Errorf("corrected-error-block size 0x%x: below minimum 0x%x",
			c.CorrectedErrorBlock.Size, MinErrorBlockSize)
	}
	if c.CorrectedErrorBlock.Size%8 != 0 {
		return fmt.Errorf("corrected-error-block size 0x%x: not 8 byte aligned",
			c.CorrectedErrorBlock.Size)
	}
	if c.CorrectedErrorBlock.Base%8 != 0 {
		return fmt.Errorf("corrected-error-block base 0x%x: not 8 byte aligned",
			c.CorrectedErrorBlock.Base)
	}
	regEnd := c.RegisterAddr(c.NumControllers)
	blockEnd := c.CorrectedErrorBlock.Addr(c.NumControllers)
	if c.CorrectedErrorBlock.Base < regEnd && c.RegisterBase < blockEnd {
		return fmt.Errorf("corrected-error-block [0x%x-0x%x) overlaps registers [0x%x-0x%x)",
			c.CorrectedErrorBlock.Base, blockEnd, c.RegisterBase, regEnd)
	}
	if int(c.SourceIDBase)+c.NumControllers > 0xFFFF {
		return fmt.Errorf("source-id-base 0x%x: %d controllers overflow the source id space",
			c.SourceIDBase, c.NumControllers)
	}
	return nil
}

// AcpiOemConfig is copied into the header of the generated tables
type AcpiOemConfig struct {
	OemID           string `yaml:"oem-id"`
	OemTableID      string `yaml:"oem-table-id"`
	OemRevision     uint32 `yaml:"oem-revision"`
	CreatorID       string `yaml:"creator-id"`
	CreatorRevision uint32 `yaml:"creator-revision"`
}

// PlatformConfig describes one platform
type PlatformConfig struct {
	Name       string        `yaml:"name"`
	Compatible []string      `yaml:"compatible"`
	Dmc620     Dmc620Config  `yaml:"dmc620"`
	Oem        AcpiOemConfig `yaml:"oem"`
}

// DefaultPlatform is used when neither a name nor a device tree match
const DefaultPlatform = "rdn1edge"

var defaultOem = AcpiOemConfig{
	OemID:           "ARMLTD",
	OemTableID:      "REFINFRA",
	OemRevision:     0x20201027,
	CreatorID:       "ARM ",
	CreatorRevision: 1,
}

var platforms = map[string]PlatformConfig{
	"rdn1edge": {
		Name:       "rdn1edge",
		Compatible: []string{"arm,rd-n1-edge", "arm,rdn1edge"},
		Dmc620: Dmc620Config{
			NumControllers: 2,
			RegisterBase:   0x4E000000,
			RegisterStride: 0x100000,
			CorrectedErrorBlock: ErrorBlockConfig{
				Base: 0xFF620000,
				Size: 0x100,
			},
			SdeiEventBase: 804,
			SourceIDBase:  0x1000,
		},
		Oem: defaultOem,
	},
	"rdn2": {
		Name:       "rdn2",
		Compatible: []string{"arm,rd-n2", "arm,rdn2"},
		Dmc620: Dmc620Config{
			NumControllers: 8,
			RegisterBase:   0x10000000,
			RegisterStride: 0x200000,
			CorrectedErrorBlock: ErrorBlockConfig{
				Base: 0xFF620000,
				Size: 0x100,
			},
			SdeiEventBase: 804,
			SourceIDBase:  0x1000,
		},
		Oem: defaultOem,
	},
}

// Platforms returns the names of the built-in platforms, sorted
func Platforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPlatform returns a copy of a built-in platform
func LookupPlatform(name string) (PlatformConfig, error) {
	p, ok := platforms[name]
	if !ok {
		return PlatformConfig{}, fmt.Errorf("unknown platform %q (known: %s)",
			name, strings.Join(Platforms(), ", "))
	}
	p.Compatible = append([]string(nil), p.Compatible...)
	return p, nil
}

// PlatformForCompatible finds the built-in platform for a device tree
// compatible string. The string may hold several entries separated by
// '.' as returned by hardware.GetCompatible.
func PlatformForCompatible(compatible string) (PlatformConfig, bool) {
	for _, entry := range strings.Split(compatible, ".") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		for _, name := range Platforms() {
			for _, c := range platforms[name].Compatible {
				if c == entry {
					p, err := LookupPlatform(name)
					return p, err == nil
				}
			}
		}
	}
	return PlatformConfig{}, false
}

// ParsePlatformConfig reads a YAML platform description. When the
// description names a built-in platform in its "base" key, unset values
// are taken from it.
func ParsePlatformConfig(data []byte) (PlatformConfig, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return PlatformConfig{}, fmt.Errorf("ParsePlatformConfig: %w", err)
	}
	cfg := PlatformConfig{Oem: defaultOem}
	if head.Base != "" {
		p, err := LookupPlatform(head.Base)
		if err != nil {
			return PlatformConfig{}, fmt.Errorf("ParsePlatformConfig: %w", err)
		}
		cfg = p
	}
	var file struct {
		Base           string `yaml:"base"`
		PlatformConfig `yaml:",inline"`
	}
	file.PlatformConfig = cfg
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return PlatformConfig{}, fmt.Errorf("ParsePlatformConfig: %w", err)
	}
	if err := file.Dmc620.Validate(); err != nil {
		return PlatformConfig{}, fmt.Errorf("ParsePlatformConfig: dmc620: %w", err)
	}
	return file.PlatformConfig, nil
}
