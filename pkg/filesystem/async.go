package filesystem

import (
	"context"
	"net/url"

	"github.com/matzehuels/resolvekit/pkg/task"
)

// Link is the result of an asynchronous ReadLink probe.
type Link struct {
	Target string
	OK     bool
}

// AsyncFileSystem is the deferred form of [FileSystem]: every probe returns a
// future instead of blocking.
type AsyncFileSystem interface {
	DirectoryExists(ctx context.Context, u *url.URL) *task.Future[bool]
	FileExists(ctx context.Context, u *url.URL) *task.Future[bool]
	ReadFile(ctx context.Context, u *url.URL) *task.Future[[]byte]
	ReadLink(ctx context.Context, u *url.URL) *task.Future[Link]
}

// FromAsync adapts an [AsyncFileSystem] to [FileSystem]. Each probe awaits
// its future, so a cancelled context abandons the in-flight probe and the
// resolution running on top of it.
func FromAsync(fs AsyncFileSystem) FileSystem {
	return asyncAdapter{fs: fs}
}

// ToAsync runs every probe of fs on its own goroutine.
func ToAsync(fs FileSystem) AsyncFileSystem {
	return syncAdapter{fs: fs}
}

type asyncAdapter struct {
	fs AsyncFileSystem
}

func (a asyncAdapter) DirectoryExists(ctx context.Context, u *url.URL) (bool, error) {
	return a.fs.DirectoryExists(ctx, u).Await(ctx)
}

func (a asyncAdapter) FileExists(ctx context.Context, u *url.URL) (bool, error) {
	return a.fs.FileExists(ctx, u).Await(ctx)
}

func (a asyncAdapter) ReadFile(ctx context.Context, u *url.URL) ([]byte, error) {
	return a.fs.ReadFile(ctx, u).Await(ctx)
}

func (a asyncAdapter) ReadLink(ctx context.Context, u *url.URL) (string, bool, error) {
	link, err := a.fs.ReadLink(ctx, u).Await(ctx)
	return link.Target, link.OK, err
}

type syncAdapter struct {
	fs FileSystem
}

func (s syncAdapter) DirectoryExists(ctx context.Context, u *url.URL) *task.Future[bool] {
	return task.Go(func() (bool, error) { return s.fs.DirectoryExists(ctx, u) })
}

func (s syncAdapter) FileExists(ctx context.Context, u *url.URL) *task.Future[bool] {
	return task.Go(func() (bool, error) { return s.fs.FileExists(ctx, u) })
}

func (s syncAdapter) ReadFile(ctx context.Context, u *url.URL) *task.Future[[]byte] {
	return task.Go(func() ([]byte, error) { return s.fs.ReadFile(ctx, u) })
}

func (s syncAdapter) ReadLink(ctx context.Context, u *url.URL) *task.Future[Link] {
	return task.Go(func() (Link, error) {
		target, ok, err := s.fs.ReadLink(ctx, u)
		return Link{Target: target, OK: ok}, err
	})
}
