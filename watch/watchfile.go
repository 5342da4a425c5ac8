// Copyright (c) 2017,2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Watch a single file, such as a platform description, for changes.

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/lf-edge/eve/pkg/ras/base"
)

// WatchFile reports changes of filename on fileChanges until ctx is done.
// "M <name>" is sent when the file is created or written, "D <name>"
// when it is removed or renamed away. The directory is watched so that
// editors replacing the file are seen.
func WatchFile(ctx context.Context, log *base.LogObject, filename string,
	fileChanges chan<- string) error {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("WatchFile: NewWatcher: %w", err)
	}
	defer w.Close()

	filename = filepath.Clean(filename)
	if err := w.Add(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("WatchFile(%s): %w", filename, err)
	}
	baseName := filepath.Base(filename)
	for {
		select {
		case <-ctx.Done():
			log.Functionf("WatchFile(%s): stopping", filename)
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filename {
				continue
			}
			log.Functionf("WatchFile event: %s", event)
			var change string
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) != 0 {
				change = "M " + baseName
			} else if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				change = "D " + baseName
			} else {
				log.Errorf("WatchFile unknown %s", event)
				continue
			}
			select {
			case fileChanges <- change:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Errorf("WatchFile error: %s", err)
		}
	}
}

// WaitForFile blocks until filename exists or ctx is done
func WaitForFile(ctx context.Context, log *base.LogObject, filename string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("WaitForFile: NewWatcher: %w", err)
	}
	defer w.Close()

	filename = filepath.Clean(filename)
	if err := w.Add(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("WaitForFile(%s): %w", filename, err)
	}
	if _, err := os.Stat(filename); err == nil {
		log.Functionf("WaitForFile found file: %s", filename)
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.Events:
			if filepath.Clean(event.Name) == filename && event.Op&fsnotify.Create != 0 {
				log.Functionf("WaitForFile created: %s", filename)
				return nil
			}
		case err := <-w.Errors:
			log.Errorf("WaitForFile error: %s", err)
		}
	}
}
