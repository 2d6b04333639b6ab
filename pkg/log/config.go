package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config is the declarative form of a Logger, for loading level/format
// from process configuration rather than wiring LoggerOptions by hand.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// ParseLevel parses a level name case-insensitively. An empty string is
// InfoLevel, matching the zero Config's behavior.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg: console output, JSON formatting
// for Format "json" or "", text formatting for "text"; any other Format
// or an unknown Level is an error.
func ApplyConfig(cfg *Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		formatter = &JSONFormatter{}
	case "text":
		formatter = &TextFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(WithLevel(lvl), WithFormatter(formatter), WithOutput(NewConsoleOutput())), nil
}

// stdLogWriter adapts a Logger to io.Writer so the standard library's
// log package can be pointed at it.
type stdLogWriter struct {
	logger Logger
}

func (w *stdLogWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RedirectStdLog points the standard library's log package at logger, so
// output from packages that log through it (Pebble, in particular)
// lands in the same structured stream as everything else.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(&stdLogWriter{logger: logger})
}
