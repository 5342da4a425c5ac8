// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// LogEventType : Predefined object types
type LogEventType string

const (
	// UnknownType : Invalid event type
	UnknownType LogEventType = ""
	// LogObjectEventType : Used for logging object state when a change happens
	LogObjectEventType LogEventType = "log"
)

// LogObjectType :
type LogObjectType string

const (
	// UnknownLogType : Invalid log type
	UnknownLogType LogObjectType = ""
	// ControllerLogType : one memory controller instance
	ControllerLogType LogObjectType = "dmc620_controller"
	// ErrorSourceLogType : a published hardware error source
	ErrorSourceLogType LogObjectType = "error_source"
	// ErrorBlockLogType : an error status block in reserved memory
	ErrorBlockLogType LogObjectType = "error_block"
)

// LogObject : Holds all key value pairs to be logged later.
type LogObject struct {
	Initialized bool
	Fields      map[string]interface{}
	logger      *logrus.Logger
}

// logObjectMap tracks objects for NewLogObject
var logObjectMap sync.Map

// logSourceObjectMap tracks objects for NewSourceLogObject
var logSourceObjectMap sync.Map

// Separate key space per agent so that two agents in one process
// do not share objects.
func (object *LogObject) mapKey(key string) string {
	return fmt.Sprintf("%s:%p", key, object)
}

// NewLogObject :
// objType -> [MANDATORY] controller, error source, error block
// objName -> human readable name, e.g. dmc620-1
// objUUID -> UUID of the object if there is one, zero UUID otherwise
// key     -> [MANDATORY] key used to find this object again
func NewLogObject(logBase *LogObject, objType LogObjectType, objName string, objUUID uuid.UUID, key string) *LogObject {
	if logBase == nil {
		logrus.Fatalf("No logBase for %s/%s/%s/%s", string(objType),
			objName, objUUID.String(), key)
	}
	if objType == UnknownLogType || len(key) == 0 {
		logrus.Fatal("NewLogObject: objType and key parameters mandatory")
	}
	if value, ok := logObjectMap.Load(logBase.mapKey(key)); ok {
		object, ok := value.(*LogObject)
		if ok {
			return object
		}
		logrus.Fatalf("NewLogObject: Object found in key map is not of type *LogObject, found: %T", value)
	}

	fields := make(map[string]interface{})
	fields["log_event_type"] = LogObjectEventType
	fields["obj_type"] = objType
	if len(objName) != 0 {
		fields["obj_name"] = objName
	}
	fields["obj_key"] = key
	if !uuid.Equal(objUUID, uuid.Nil) {
		fields["obj_uuid"] = objUUID.String()
	}
	object := &LogObject{
		Initialized: true,
		Fields:      fields,
		logger:      logBase.logger,
	}
	object.Merge(logBase)
	logObjectMap.Store(logBase.mapKey(key), object)
	return object
}

// EnsureLogObject : Look for log object with given key or create new if we do not already have one.
func EnsureLogObject(logBase *LogObject, objType LogObjectType, objName string, objUUID uuid.UUID, key string) *LogObject {
	if logBase == nil {
		logrus.Fatalf("No logBase for %s", key)
	}
	if value, ok := logObjectMap.Load(logBase.mapKey(key)); ok {
		if object, ok := value.(*LogObject); ok {
			return object
		}
	}
	return NewLogObject(logBase, objType, objName, objUUID, key)
}

// DeleteLogObject : Delete log object from internal map
func DeleteLogObject(logBase *LogObject, key string) {
	if logBase == nil {
		logrus.Fatalf("No logBase for %s", key)
	}
	mapKey := logBase.mapKey(key)
	if _, ok := logObjectMap.Load(mapKey); !ok {
		logBase.Errorf("DeleteLogObject: LogObject with mapKey %s not found in internal map", mapKey)
		return
	}
	logObjectMap.Delete(mapKey)
}

// NewSourceLogObject : create an object with agentName and agentPid
// Since there might be multiple calls to this for the same agent
// we check for an existing one for the agentName
func NewSourceLogObject(logger *logrus.Logger, agentName string, agentPid int) *LogObject {
	if value, ok := logSourceObjectMap.Load(agentName); ok {
		object, ok := value.(*LogObject)
		if ok {
			return object
		}
		logrus.Fatalf("NewSourceLogObject: Object found is not of type *LogObject, found: %T",
			value)
	}
	object := &LogObject{
		Initialized: true,
		Fields: map[string]interface{}{
			"source": agentName,
			"pid":    agentPid,
		},
		logger: logger,
	}
	logSourceObjectMap.Store(agentName, object)
	return object
}

// AddField : Add a key value pair to be logged
func (object *LogObject) AddField(key string, value interface{}) *LogObject {
	object.Fields[key] = value
	return object
}

// AddFields : Values of exiting keys in the object will be overwritten with new values passed
func (object *LogObject) AddFields(fields map[string]interface{}) *LogObject {
	for key, value := range fields {
		object.Fields[key] = value
	}
	return object
}

// Merge :
// Values of existing fields in destination object will be overwritten with values
// from source object.
func (object *LogObject) Merge(source *LogObject) *LogObject {
	for key, value := range source.Fields {
		object.Fields[key] = value
	}
	return object
}

// Clone : Create a clone from an existing Log object
func (object *LogObject) Clone() *LogObject {
	newLogObject := &LogObject{
		Initialized: true,
		Fields:      make(map[string]interface{}, len(object.Fields)),
		logger:      object.logger,
	}
	for key, value := range object.Fields {
		newLogObject.Fields[key] = value
	}
	return newLogObject
}

// CloneAndAddField : Add key value pair to a cloned log object
func (object *LogObject) CloneAndAddField(key string, value interface{}) *LogObject {
	return object.Clone().AddField(key, value)
}

// CloneAndAddFields : Add additional fields to a cloned log object
func (object *LogObject) CloneAndAddFields(fields map[string]interface{}) *LogObject {
	return object.Clone().AddFields(fields)
}
