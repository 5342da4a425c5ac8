// Copyright (c) 2017,2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pubsub publishes status items as JSON files in a per topic
// directory, which subscribers can watch for changes.

package pubsub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/lf-edge/eve/pkg/ras/base"
)

// Usage:
//  p1, err := pubsub.NewPublication(log, "/run", "foo", fooStruct{})
//  ...
//  p1.Publish(key, item)
//  p1.Unpublish(key) to delete
//
//  foo := p1.Get(key)
//  fooAll := p1.GetAll()

// Publication is the set of published items of one topic
type Publication struct {
	log       *base.LogObject
	agentName string
	topic     string
	dirName   string

	sync.Mutex
	km map[string]interface{}
}

// TypeToName is the topic name of a type
func TypeToName(something interface{}) string {
	t := reflect.TypeOf(something)
	out := strings.Split(t.String(), ".")
	return out[len(out)-1]
}

// PubDirName is where the items of topic published by agentName live
func PubDirName(baseDir, agentName, topic string) string {
	return filepath.Join(baseDir, agentName, topic)
}

// NewPublication creates the topic directory. Items left over from an
// earlier run are removed.
func NewPublication(log *base.LogObject, baseDir, agentName string,
	topicType interface{}) (*Publication, error) {

	topic := TypeToName(topicType)
	dirName := PubDirName(baseDir, agentName, topic)
	log.Functionf("NewPublication(%s, %s) in %s", agentName, topic, dirName)
	if err := os.RemoveAll(dirName); err != nil {
		return nil, fmt.Errorf("NewPublication(%s, %s): %w", agentName, topic, err)
	}
	if err := os.MkdirAll(dirName, 0700); err != nil {
		return nil, fmt.Errorf("NewPublication(%s, %s): %w", agentName, topic, err)
	}
	return &Publication{
		log:       log,
		agentName: agentName,
		topic:     topic,
		dirName:   dirName,
		km:        make(map[string]interface{}),
	}, nil
}

// DirName is the topic directory
func (pub *Publication) DirName() string { return pub.dirName }

func (pub *Publication) fileName(key string) string {
	return filepath.Join(pub.dirName, key+".json")
}

// Publish writes item under key unless it is unchanged
func (pub *Publication) Publish(key string, item interface{}) error {
	topic := TypeToName(item)
	if topic != pub.topic {
		return fmt.Errorf("Publish(%s, %s): item is topic %s",
			pub.agentName, pub.topic, topic)
	}
	pub.Lock()
	defer pub.Unlock()
	if m, ok := pub.km[key]; ok {
		if cmp.Equal(m, item) {
			pub.log.Functionf("Publish(%s, %s, %s) unchanged",
				pub.agentName, topic, key)
			return nil
		}
		pub.log.Functionf("Publish(%s, %s, %s) replacing due to diff %s",
			pub.agentName, topic, key, cmp.Diff(m, item))
	} else {
		pub.log.Functionf("Publish(%s, %s, %s) adding %+v",
			pub.agentName, topic, key, item)
	}
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("Publish(%s, %s, %s): %w", pub.agentName, topic, key, err)
	}
	if err := WriteRename(pub.fileName(key), b); err != nil {
		return err
	}
	pub.km[key] = item
	return nil
}

// WriteRename replaces fileName with b atomically
func WriteRename(fileName string, b []byte) error {
	dirName := filepath.Dir(fileName)
	// Do atomic rename to avoid partially written files
	tmpfile, err := os.CreateTemp(dirName, "pubsub")
	if err != nil {
		return fmt.Errorf("WriteRename(%s): %w", fileName, err)
	}
	defer tmpfile.Close()
	defer os.Remove(tmpfile.Name())
	if _, err := tmpfile.Write(b); err != nil {
		return fmt.Errorf("WriteRename(%s): %w", fileName, err)
	}
	if err := tmpfile.Close(); err != nil {
		return fmt.Errorf("WriteRename(%s): %w", fileName, err)
	}
	if err := os.Rename(tmpfile.Name(), fileName); err != nil {
		return fmt.Errorf("WriteRename(%s): %w", fileName, err)
	}
	return nil
}

// Unpublish removes key
func (pub *Publication) Unpublish(key string) error {
	pub.Lock()
	defer pub.Unlock()
	if _, ok := pub.km[key]; !ok {
		return fmt.Errorf("Unpublish(%s, %s): key %s does not exist",
			pub.agentName, pub.topic, key)
	}
	delete(pub.km, key)
	pub.log.Functionf("Unpublish(%s, %s, %s)", pub.agentName, pub.topic, key)
	if err := os.Remove(pub.fileName(key)); err != nil {
		return fmt.Errorf("Unpublish(%s, %s): %w", pub.agentName, pub.topic, err)
	}
	return nil
}

// Get returns the item published under key
func (pub *Publication) Get(key string) (interface{}, error) {
	pub.Lock()
	defer pub.Unlock()
	m, ok := pub.km[key]
	if !ok {
		return nil, fmt.Errorf("unknown key %s for %s/%s", key,
			pub.agentName, pub.topic)
	}
	return m, nil
}

// GetAll enumerates all the key, value for the collection
func (pub *Publication) GetAll() map[string]interface{} {
	pub.Lock()
	defer pub.Unlock()
	result := make(map[string]interface{}, len(pub.km))
	for k, e := range pub.km {
		result[k] = e
	}
	return result
}
