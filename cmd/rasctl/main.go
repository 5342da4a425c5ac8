// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/lf-edge/eve/pkg/ras/cmd/rasctl/cmd"

func main() {
	cmd.Execute()
}
