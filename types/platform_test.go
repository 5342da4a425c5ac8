// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"testing"

	"github.com/onsi/gomega"
)

func TestBuiltinPlatforms(t *testing.T) {
	g := gomega.NewWithT(t)
	g.Expect(Platforms()).To(gomega.Equal([]string{"rdn1edge", "rdn2"}))

	p, err := LookupPlatform(DefaultPlatform)
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(p.Dmc620.NumControllers).To(gomega.Equal(2))
	g.Expect(p.Dmc620.RegisterAddr(1)).To(gomega.BeEquivalentTo(0x4E100000))
	g.Expect(p.Dmc620.CorrectedErrorBlock.Addr(1)).To(gomega.BeEquivalentTo(0xFF620100))
	g.Expect(p.Dmc620.Validate()).To(gomega.Succeed())
	g.Expect(p.Oem.OemTableID).To(gomega.Equal("REFINFRA"))

	p, err = LookupPlatform("rdn2")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(p.Dmc620.NumControllers).To(gomega.Equal(8))
	g.Expect(p.Dmc620.Validate()).To(gomega.Succeed())

	_, err = LookupPlatform("juno")
	g.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("rdn1edge, rdn2")))
}

func TestLookupPlatformReturnsCopy(t *testing.T) {
	g := gomega.NewWithT(t)
	p, _ := LookupPlatform("rdn1edge")
	p.Compatible[0] = "changed"
	q, _ := LookupPlatform("rdn1edge")
	g.Expect(q.Compatible[0]).To(gomega.Equal("arm,rd-n1-edge"))
}

func TestPlatformForCompatible(t *testing.T) {
	g := gomega.NewWithT(t)
	p, ok := PlatformForCompatible("arm,rd-n2.arm,neoverse")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(p.Name).To(gomega.Equal("rdn2"))

	_, ok = PlatformForCompatible("raspberrypi,4-model-b.brcm,bcm2711")
	g.Expect(ok).To(gomega.BeFalse())
	_, ok = PlatformForCompatible("")
	g.Expect(ok).To(gomega.BeFalse())
}

func TestParsePlatformConfig(t *testing.T) {
	g := gomega.NewWithT(t)

	cfg, err := ParsePlatformConfig([]byte(`
base: rdn1edge
name: lab-board
dmc620:
  num-controllers: 4
  sdei-event-base: 900
`))
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(cfg.Name).To(gomega.Equal("lab-board"))
	g.Expect(cfg.Dmc620.NumControllers).To(gomega.Equal(4))
	g.Expect(cfg.Dmc620.SdeiEventBase).To(gomega.BeEquivalentTo(900))
	// inherited from the base profile
	g.Expect(cfg.Dmc620.RegisterBase).To(gomega.BeEquivalentTo(0x4E000000))
	g.Expect(cfg.Dmc620.CorrectedErrorBlock.Size).To(gomega.BeEquivalentTo(0x100))
	g.Expect(cfg.Oem.OemID).To(gomega.Equal("ARMLTD"))

	cfg, err = ParsePlatformConfig([]byte(`
name: custom
dmc620:
  num-controllers: 1
  register-base: 0x50000000
  corrected-error-block:
    base: 0x80000000
    size: 0x200
oem:
  oem-id: ACME
`))
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(cfg.Dmc620.CorrectedErrorBlock.Base).To(gomega.BeEquivalentTo(0x80000000))
	g.Expect(cfg.Oem.OemID).To(gomega.Equal("ACME"))
	g.Expect(cfg.Oem.OemTableID).To(gomega.Equal("REFINFRA"))
}

func TestParsePlatformConfigErrors(t *testing.T) {
	testMatrix := map[string]struct {
		yaml string
		msg  string
	}{
		"unknown base": {
			yaml: "base: juno\n",
			msg:  "unknown platform",
		},
		"unknown key": {
			yaml: "base: rdn1edge\ndmc620:\n  controllers: 3\n",
			msg:  "controllers",
		},
		"no controllers": {
			yaml: "base: rdn1edge\ndmc620:\n  num-controllers: 0\n",
			msg:  "num-controllers",
		},
		"zero stride": {
			yaml: "base: rdn1edge\ndmc620:\n  register-stride: 0\n",
			msg:  "register-stride",
		},
		"small block": {
			yaml: "base: rdn1edge\ndmc620:\n  corrected-error-block:\n    base: 0xFF620000\n    size: 0x80\n",
			msg:  "below minimum",
		},
		"overlap": {
			yaml: "base: rdn1edge\ndmc620:\n  corrected-error-block:\n    base: 0x4E000100\n    size: 0x100\n",
			msg:  "overlaps",
		},
		"bad yaml": {
			yaml: "dmc620: [",
			msg:  "ParsePlatformConfig",
		},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		g := gomega.NewWithT(t)
		_, err := ParsePlatformConfig([]byte(test.yaml))
		g.Expect(err).To(gomega.MatchError(gomega.ContainSubstring(test.msg)))
	}
}
