// Package filesystem defines the host filesystem port used by the resolver.
//
// The resolver never touches the disk directly. It asks a [FileSystem] four
// questions about file URLs: is this a directory, is this a regular file,
// what are its contents, and is it a symbolic link. Absence is always a
// negative answer, never an error; the error return is reserved for failures
// that must abort a resolution, such as context cancellation.
//
// Three implementations are provided:
//   - [OS] reads the local filesystem
//   - [Memory] serves an in-memory tree, mostly for tests and fixtures
//   - [FromAsync] adapts an [AsyncFileSystem] whose probes return futures
package filesystem

import (
	"context"
	"net/url"
)

// FileSystem answers the probes a resolution performs.
type FileSystem interface {
	// DirectoryExists reports whether u names an existing directory,
	// following symbolic links.
	DirectoryExists(ctx context.Context, u *url.URL) (bool, error)

	// FileExists reports whether u names an existing regular file,
	// following symbolic links.
	FileExists(ctx context.Context, u *url.URL) (bool, error)

	// ReadFile returns the contents of the file at u. It fails when the file
	// does not exist.
	ReadFile(ctx context.Context, u *url.URL) ([]byte, error)

	// ReadLink returns the target of the symbolic link at u exactly as
	// stored. The boolean is false when u is not a link.
	ReadLink(ctx context.Context, u *url.URL) (string, bool, error)
}
