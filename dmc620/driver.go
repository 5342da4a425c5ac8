// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package dmc620

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/lf-edge/eve/pkg/ras/cper"
	"github.com/lf-edge/eve/pkg/ras/mm"
)

var (
	// EventHandlerGUID is the communicate GUID of DMC-620 fault events
	EventHandlerGUID = cper.MustParseGUID("5ef0afd5-e01a-4c30-8619-454626918098")
	// ErrorSourceDescProtocolGUID identifies providers of HEST error
	// source descriptors
	ErrorSourceDescProtocolGUID = cper.MustParseGUID("560bf236-a4a8-4d69-bcf6-c29724109d91")
)

// ErrorSourceDescProtocol is what Install publishes under
// ErrorSourceDescProtocolGUID
type ErrorSourceDescProtocol interface {
	DescInfoGet(buf []byte) (count int, length int, err error)
}

// Install registers the fault event handler of d and publishes its error
// source descriptors. The handler is unregistered again when publishing
// fails.
func Install(log *base.LogObject, services mm.Services, d *Device) (mm.DispatchHandle, error) {
	handle, err := services.RegisterHandler(EventHandlerGUID, d.HandleCommBuffer)
	if err != nil {
		log.Errorf("Install: registration failed for DMC error event handler: %s", err)
		return 0, fmt.Errorf("Install: %w", err)
	}
	var proto ErrorSourceDescProtocol = d
	if err := services.InstallProtocol(ErrorSourceDescProtocolGUID, proto); err != nil {
		log.Errorf("Install: failed installing HEST error source protocol: %s", err)
		if uerr := services.UnregisterHandler(handle); uerr != nil {
			log.Errorf("Install: unregister handler %d: %s", handle, uerr)
		}
		return 0, fmt.Errorf("Install: %w", err)
	}
	count, _ := d.Size()
	log.Noticef("Install: DMC-620 event handler %d, %d error sources", handle, count)
	return handle, nil
}
