package log

import "time"

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Component tags a logger/entry with the subsystem that produced it.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// Str creates a string-valued Field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an int-valued Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64-valued Field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Bool creates a bool-valued Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration creates a Field from a time.Duration, rendered in milliseconds.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.Milliseconds()}
}

// Err attaches an error under the conventional "error" key. A nil error
// is rendered as nil, not omitted, so callers can log "error: nil" paths
// without a branch.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a Field from an arbitrary value, for cases none of the
// typed constructors fit.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }
