package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONFormatter renders an Entry as a single JSON object per line. It is
// the default formatter: slog's own JSON handler would work too, but
// going through our Formatter interface keeps Entry as the one place
// that defines what a log line looks like, regardless of which handler
// produced it.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	fields := make(Fields, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		fields[k] = v
	}
	fields["level"] = entry.Level.String()
	fields["msg"] = entry.Message
	fields["ts"] = entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	if entry.Caller != "" {
		fields["caller"] = entry.Caller
	}
	if entry.Error != nil {
		fields["error"] = entry.Error.Error()
	}
	return json.Marshal(fields)
}

// TextFormatter renders an Entry as a single human-readable line.
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	line := fmt.Sprintf("%s [%s] %s", entry.Timestamp.Format("15:04:05.000"), entry.Level, entry.Message)
	for k, v := range entry.Fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	if entry.Error != nil {
		line += " error=" + entry.Error.Error()
	}
	return []byte(line + "\n"), nil
}

// ConsoleOutput writes formatted entries to an io.Writer, stderr by
// default.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.w
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards every entry; useful in tests that want a real
// Logger without polluting test output.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error                { return nil }
