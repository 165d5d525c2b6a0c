package logger

import (
	"fmt"
	"maps"
	"time"
)

// Fields carries structured context attached to a record.
type Fields map[string]any

// Record is a single log event. It is built by NewRecord and handed to every
// sink by value; sinks that keep it past Write must not mutate Fields.
type Record struct {
	Level   Level
	Message string
	Time    time.Time
	Fields  Fields
}

// NewRecord validates the level, stamps the time when it is zero and copies
// the fields so later changes by the caller are not observed by sinks.
func NewRecord(level Level, message string, fields Fields) (Record, error) {
	if !level.Valid() {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}

	rec := Record{
		Level:   level,
		Message: message,
		Time:    time.Now(),
	}
	if len(fields) > 0 {
		rec.Fields = maps.Clone(fields)
	}

	return rec, nil
}

// WithTime returns a copy of the record stamped with t.
func (r Record) WithTime(t time.Time) Record {
	if !t.IsZero() {
		r.Time = t
	}
	return r
}

// fieldsFromArgs turns teacher-style key/value pairs into Fields.
// A dangling key without a value is kept with a nil value.
func fieldsFromArgs(args []interface{}) Fields {
	if len(args) == 0 {
		return nil
	}

	fields := make(Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			fields[key] = args[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}
