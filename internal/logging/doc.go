// Package logging provides concrete implementations of the msgload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes plain progress lines to stderr through zap
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
