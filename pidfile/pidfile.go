// Copyright (c) 2018 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Manage pidfile in /run/

package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/lf-edge/eve/pkg/ras/base"
)

const (
	defaultRundir = "/run"
)

type options struct {
	baseDir string
}

// Option changes where the pidfile lives
type Option func(*options)

// WithBaseDir puts the pidfile in dir instead of /run
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

func pidfileName(agentName string, opts []Option) string {
	o := options{baseDir: defaultRundir}
	for _, opt := range opts {
		opt(&o)
	}
	return filepath.Join(o.baseDir, agentName+".pid")
}

func writeMyPid(filename string) error {
	pid := os.Getpid()
	pidStr := fmt.Sprintf("%d", pid)
	b := []byte(pidStr)
	return os.WriteFile(filename, b, 0644)
}

// CheckProcessExists returns true if agent process is running
// returns string with description of check result
func CheckProcessExists(log *base.LogObject, agentName string, opts ...Option) (bool, string) {
	filename := pidfileName(agentName, opts)
	b, err := os.ReadFile(filename)
	if err != nil {
		return false, err.Error()
	}
	log.Functionf("CheckProcessExists: found %s", filename)
	oldPid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return false, fmt.Sprintf("atoi of %s failed %s", filename, err)
	}
	// Does the old pid exist?
	p, err := os.FindProcess(oldPid)
	if err == nil {
		err = p.Signal(syscall.Signal(0))
		if err == nil {
			return true, fmt.Sprintf("old pid %d exists for agent %s", oldPid, agentName)
		}
	}
	return false, fmt.Sprintf("no running process found for agent %s", agentName)
}

// CheckAndCreatePidfile check if old process is not running and create new pid file
func CheckAndCreatePidfile(log *base.LogObject, agentName string, opts ...Option) error {
	if exists, description := CheckProcessExists(log, agentName, opts...); exists {
		return fmt.Errorf("checkAndCreatePidfile: %s", description)
	}
	filename := pidfileName(agentName, opts)
	if err := writeMyPid(filename); err != nil {
		return fmt.Errorf("checkAndCreatePidfile: %w", err)
	}
	return nil
}

// RemovePidfile removes the pidfile written by CheckAndCreatePidfile
func RemovePidfile(log *base.LogObject, agentName string, opts ...Option) {
	filename := pidfileName(agentName, opts)
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		log.Errorf("RemovePidfile: %s", err)
	}
}
