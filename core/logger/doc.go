// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and is the single reporting surface of the CLI:
// there is no process-wide color toggle, the console encoder decides coloring
// at construction time.
//
// # Context Awareness
//
// The WithEvent helper attaches the congress identifier to the log entry,
// ensuring that all logs related to one mirror session can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log.Info("Mirror started")
//
//	l := logger.WithEvent(log, "39c3")
//	l.Error("Cycle failed", zap.Error(err))
package logger
