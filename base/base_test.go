// Copyright (c) 2019-2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"bytes"
	"encoding/json"
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: true})
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	entry := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestSourceLogObject(t *testing.T) {
	buf := new(bytes.Buffer)
	log := NewSourceLogObject(newTestLogger(buf), "test-source", 1234)
	assert.Same(t, log, NewSourceLogObject(nil, "test-source", 0))

	log.Noticef("controller %d ready", 1)
	entry := lastEntry(t, buf)
	assert.Equal(t, "controller 1 ready", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test-source", entry["source"])
	assert.EqualValues(t, 1234, entry["pid"])

	log.Functionf("decode")
	assert.Equal(t, "debug", lastEntry(t, buf)["level"])
}

func TestLogObjectFields(t *testing.T) {
	buf := new(bytes.Buffer)
	logBase := NewSourceLogObject(newTestLogger(buf), "test-fields", 1)

	section := uuid.Must(uuid.FromString("a5bc1114-6f64-4ede-b863-3e83ed7c83b1"))
	obj := NewLogObject(logBase, ErrorSourceLogType, "dmc620-0", section, "source-4096")
	assert.Same(t, obj, EnsureLogObject(logBase, ErrorSourceLogType, "dmc620-0", section, "source-4096"))

	obj.CloneAndAddField("event", 804).Noticef("published")
	entry := lastEntry(t, buf)
	assert.Equal(t, string(ErrorSourceLogType), entry["obj_type"])
	assert.Equal(t, "dmc620-0", entry["obj_name"])
	assert.Equal(t, "source-4096", entry["obj_key"])
	assert.Equal(t, section.String(), entry["obj_uuid"])
	assert.EqualValues(t, 804, entry["event"])
	assert.Equal(t, "test-fields", entry["source"])

	// the clone must not leak fields into the original
	_, leaked := obj.Fields["event"]
	assert.False(t, leaked)

	DeleteLogObject(logBase, "source-4096")
	other := EnsureLogObject(logBase, ErrorSourceLogType, "dmc620-0", uuid.Nil, "source-4096")
	assert.NotSame(t, obj, other)
	_, hasUUID := other.Fields["obj_uuid"]
	assert.False(t, hasUUID)
}
