// Package filesystem provides the file access abstraction used to read
// source files.
//
// Key interfaces:
//   - FileSystemProvider: opens files for streaming reads and reports metadata
//   - FileInfo: File metadata similar to os.FileInfo
//
// Implementations:
//   - OSFileSystem: Production implementation using the OS filesystem
//   - MemoryFileSystem: In-memory implementation for testing
package filesystem
