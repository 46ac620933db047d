// Package filesystem provides filesystem abstraction interfaces and implementations.
//
// The loader reads its input files through FileSystemProvider, which keeps
// CSV parsing testable against in-memory fixtures while production code
// uses the OS filesystem.
//
// Implementations:
//   - OSFileSystem: Production implementation using the OS filesystem
//   - MemoryFileSystem: In-memory implementation for testing
package filesystem
