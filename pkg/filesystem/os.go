package filesystem

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
)

// OS is a [FileSystem] backed by the local disk. The zero value is ready to
// use.
type OS struct{}

var _ FileSystem = OS{}

// DirectoryExists implements [FileSystem].
func (OS) DirectoryExists(ctx context.Context, u *url.URL) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	st, err := os.Stat(nativePath(u))
	if err != nil {
		return false, nil
	}
	return st.IsDir(), nil
}

// FileExists implements [FileSystem].
func (OS) FileExists(ctx context.Context, u *url.URL) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if fileurl.IsDir(u) {
		return false, nil
	}
	st, err := os.Stat(nativePath(u))
	if err != nil {
		return false, nil
	}
	return st.Mode().IsRegular(), nil
}

// ReadFile implements [FileSystem].
func (OS) ReadFile(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(nativePath(u))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read %s", u)
	}
	return data, nil
}

// ReadLink implements [FileSystem].
func (OS) ReadLink(ctx context.Context, u *url.URL) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p := strings.TrimSuffix(nativePath(u), string(filepath.Separator))
	if p == "" {
		return "", false, nil
	}
	target, err := os.Readlink(p)
	if err != nil {
		return "", false, nil
	}
	return filepath.ToSlash(target), true, nil
}

// nativePath converts a file URL to a path for the host OS.
func nativePath(u *url.URL) string {
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// PathToURL converts a native path to a file URL, making it absolute against
// the working directory first. Directories keep a trailing slash.
func PathToURL(p string) (*url.URL, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve path %q", p)
	}
	slashed := filepath.ToSlash(abs)
	if vol := filepath.VolumeName(abs); vol != "" {
		slashed = "/" + slashed
	}
	u := fileurl.FromPath(slashed)
	if st, err := os.Stat(abs); err == nil && st.IsDir() {
		u = fileurl.AsDir(u)
	}
	return u, nil
}
