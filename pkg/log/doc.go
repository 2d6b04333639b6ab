// Package log provides the repository's structured logging facade, used
// by internal/consumer, internal/repo and cmd/chronicle alike.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. A Logger formats and writes
// its entries through its own formatter/outputs pipeline; slog_bridge.go
// adapts that same pipeline to a standard library slog.Handler. A
// RedirectStdLog call routes Pebble's own internal logging (it logs
// through the standard library's log package) into a Logger at Info
// level, in the same structured stream.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("consumer"), log.Int("workers", 4))
//	l.Info("consumer started")
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// format only), the same shape cmd/chronicle reads CHRONICLE_LOG_LEVEL and
// CHRONICLE_LOG_FORMAT into.
package log
