// Copyright (c) 2018,2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentlog

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lf-edge/eve/pkg/ras/base"
	"github.com/sirupsen/logrus"
)

// SourceHook is used to add source and pid if not already set
type SourceHook struct {
	agentName string
	agentPid  int
}

// Fire adds source and pid if not already set
func (hook *SourceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["source"]; !ok {
		entry.Data["source"] = hook.agentName
	}
	if _, ok := entry.Data["pid"]; !ok {
		entry.Data["pid"] = hook.agentPid
	}
	return nil
}

// Levels installs the SourceHook for all levels
func (hook *SourceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// SkipCallerHook is used to skip to the "base" package entry in the stack
type SkipCallerHook struct {
}

// Fire does the skipping
func (hook *SkipCallerHook) Fire(entry *logrus.Entry) error {
	const maximumCallerDepth = 25
	if entry.Caller == nil {
		return nil
	}
	pcs := make([]uintptr, maximumCallerDepth)
	depth := runtime.Callers(0, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	next := false
	for f, again := frames.Next(); again; f, again = frames.Next() {
		if f == *entry.Caller {
			if strings.HasSuffix(getPackageName(f.Function), "/base") {
				next = true
				continue
			}
			break
		}
		if next {
			entry.Caller = &f
			break
		}
	}
	return nil
}

// Levels installs the SkipCallerHook for all levels
func (hook *SkipCallerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// getPackageName reduces a fully qualified function name to the package name
// From logrus
func getPackageName(f string) string {
	for {
		lastPeriod := strings.LastIndex(f, ".")
		lastSlash := strings.LastIndex(f, "/")
		if lastPeriod > lastSlash {
			f = f[:lastPeriod]
		} else {
			break
		}
	}
	return f
}

// Init provides both a logger and a logObject writing to stderr
func Init(agentName string) (*logrus.Logger, *base.LogObject) {
	return InitWithWriter(agentName, os.Stderr)
}

// InitWithWriter is Init with an explicit output
func InitWithWriter(agentName string, out io.Writer) (*logrus.Logger, *base.LogObject) {
	agentPid := os.Getpid()
	logger := logrus.New()
	// Report nano timestamps
	formatter := logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetFormatter(&formatter)
	logger.SetReportCaller(true)
	logger.SetOutput(out)
	log := base.NewSourceLogObject(logger, agentName, agentPid)

	sourceHook := new(SourceHook)
	sourceHook.agentName = agentName
	sourceHook.agentPid = agentPid
	logger.AddHook(sourceHook)
	logger.AddHook(new(SkipCallerHook))
	return logger, log
}
