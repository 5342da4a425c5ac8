// Copyright (c) 2018 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Handle the log level for agents.

package agentlog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultLogLevel is used when nothing else was asked for
const DefaultLogLevel = "info"

// SetLevel parses level and applies it to logger.
// An empty level selects DefaultLogLevel.
func SetLevel(logger *logrus.Logger, level string) error {
	if level == "" {
		level = DefaultLogLevel
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("SetLevel(%s): %w", level, err)
	}
	logger.SetLevel(l)
	return nil
}
