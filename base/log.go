// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"github.com/sirupsen/logrus"
)

// We map our notions of levels to the logrus levels.
// Notice is for state changes worth keeping, Function is the per-call
// tracing used on the fault path.
var (
	myNoticeLevel   = logrus.InfoLevel
	myFunctionLevel = logrus.DebugLevel
)

func (object *LogObject) entry() *logrus.Entry {
	if !object.Initialized {
		logrus.Fatal("LogObject used without initialization")
	}
	return object.logger.WithFields(object.Fields)
}

// Function :
func (object *LogObject) Function(args ...interface{}) {
	object.entry().Log(myFunctionLevel, args...)
}

// Functionf :
func (object *LogObject) Functionf(format string, args ...interface{}) {
	object.entry().Logf(myFunctionLevel, format, args...)
}

// Notice :
func (object *LogObject) Notice(args ...interface{}) {
	object.entry().Log(myNoticeLevel, args...)
}

// Noticef :
func (object *LogObject) Noticef(format string, args ...interface{}) {
	object.entry().Logf(myNoticeLevel, format, args...)
}

// Debugf :
func (object *LogObject) Debugf(format string, args ...interface{}) {
	object.entry().Debugf(format, args...)
}

// Warn :
func (object *LogObject) Warn(args ...interface{}) {
	object.entry().Warn(args...)
}

// Warnf :
func (object *LogObject) Warnf(format string, args ...interface{}) {
	object.entry().Warnf(format, args...)
}

// Error :
func (object *LogObject) Error(args ...interface{}) {
	object.entry().Error(args...)
}

// Errorf :
func (object *LogObject) Errorf(format string, args ...interface{}) {
	object.entry().Errorf(format, args...)
}

// Fatal :
func (object *LogObject) Fatal(args ...interface{}) {
	object.entry().Fatal(args...)
}

// Fatalf :
func (object *LogObject) Fatalf(format string, args ...interface{}) {
	object.entry().Fatalf(format, args...)
}
