package resolve

import (
	"context"
	"net/url"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
)

// maxLinkDepth bounds the number of symlink hops in a single realName call.
const maxLinkDepth = 40

// realName returns u with every symbolic link on its path dereferenced.
// Directory URLs stay directory URLs; query and fragment are preserved.
func (r *resolver) realName(ctx context.Context, u *url.URL) (*url.URL, error) {
	if !fileurl.IsFile(u) {
		return u, nil
	}
	cur := fileurl.Collapse(u)
	for depth := 0; ; depth++ {
		if depth > maxLinkDepth {
			return nil, errors.New(errors.ErrCodeLinkLoop, "too many levels of symbolic links resolving %s", u)
		}
		next, err := r.followLink(ctx, cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return cur, nil
		}
		cur = fileurl.Collapse(next)
	}
}

// realDir is realName for directories; the result always ends in "/".
func (r *resolver) realDir(ctx context.Context, u *url.URL) (*url.URL, error) {
	real, err := r.realName(ctx, fileurl.AsDir(u))
	if err != nil {
		return nil, err
	}
	return fileurl.AsDir(real), nil
}

// followLink dereferences the first link found on the path of u, checking
// u itself before its ancestors. It returns nil when no component is a link.
func (r *resolver) followLink(ctx context.Context, u *url.URL) (*url.URL, error) {
	if fileurl.IsRoot(u) {
		return nil, nil
	}

	self := fileurl.TrimDir(u)
	target, ok, err := r.readLink(ctx, self)
	if err != nil {
		return nil, err
	}
	if ok {
		next := fileurl.JoinPath(fileurl.Dir(self), target)
		if fileurl.IsDir(u) {
			next = fileurl.AsDir(next)
		}
		next.RawQuery, next.Fragment = u.RawQuery, u.Fragment
		return next, nil
	}

	for dir := fileurl.Dir(self); !fileurl.IsRoot(dir); dir = fileurl.Parent(dir) {
		target, ok, err := r.readLink(ctx, fileurl.TrimDir(dir))
		if err != nil {
			return nil, err
		}
		if ok {
			to := fileurl.AsDir(fileurl.JoinPath(fileurl.Parent(dir), target))
			return fileurl.Splice(u, dir, to), nil
		}
	}
	return nil, nil
}

func (r *resolver) readLink(ctx context.Context, u *url.URL) (string, bool, error) {
	target, ok, err := r.fs.ReadLink(ctx, u)
	if err != nil {
		return "", false, err
	}
	if ok {
		r.trace.Link(u.String(), target)
		r.logger.Debug("following symlink", "link", u, "target", target)
	}
	return target, ok, nil
}
