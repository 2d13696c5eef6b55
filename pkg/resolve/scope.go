package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/observability"
	"github.com/matzehuels/resolvekit/pkg/pkgjson"
)

const nodeModules = "node_modules"

// packageScope returns the nearest directory at or above u that contains a
// package descriptor. The walk stops at a node_modules directory and at the
// root.
func (r *resolver) packageScope(ctx context.Context, u *url.URL) (*url.URL, error) {
	if !fileurl.IsFile(u) {
		return nil, nil
	}
	dir := fileurl.Dir(u)
	for {
		if strings.HasSuffix(dir.Path, "/"+nodeModules+"/") {
			return nil, nil
		}
		ok, err := r.descriptors.Exists(ctx, r.fs, dir)
		if err != nil {
			return nil, err
		}
		r.trace.Probe("file", fileurl.JoinPath(dir, pkgjson.FileName).String(), ok)
		if ok {
			return dir, nil
		}
		if fileurl.IsRoot(dir) {
			return nil, nil
		}
		dir = fileurl.Parent(dir)
	}
}

// descriptor reads the descriptor of dir. Unreadable descriptors are logged
// and treated as absent.
func (r *resolver) descriptor(ctx context.Context, dir *url.URL) (*pkgjson.Descriptor, error) {
	d, err := r.descriptors.Read(ctx, r.fs, dir)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeParse) {
			return nil, err
		}
		r.logger.Debug("ignoring unreadable package descriptor", "dir", dir, "err", err)
		d = nil
	}
	r.trace.Descriptor(dir.String(), d != nil)
	return d, nil
}

// nodeModulesPaths lists the node_modules directories searched for a
// package requested from dir, nearest first.
func nodeModulesPaths(dir *url.URL) []*url.URL {
	var out []*url.URL
	for dir = fileurl.AsDir(dir); ; dir = fileurl.Parent(dir) {
		if !strings.HasSuffix(dir.Path, "/"+nodeModules+"/") {
			out = append(out, fileurl.JoinPath(dir, nodeModules+"/"))
		}
		if fileurl.IsRoot(dir) {
			return out
		}
	}
}

func (r *resolver) fileExists(ctx context.Context, u *url.URL) (bool, error) {
	ok, err := r.fs.FileExists(ctx, u)
	if err != nil {
		return false, err
	}
	r.trace.Probe("file", u.String(), ok)
	observability.Resolve().OnProbe(ctx, "file", u.String(), ok)
	return ok, nil
}

func (r *resolver) directoryExists(ctx context.Context, u *url.URL) (bool, error) {
	ok, err := r.fs.DirectoryExists(ctx, u)
	if err != nil {
		return false, err
	}
	r.trace.Probe("directory", u.String(), ok)
	observability.Resolve().OnProbe(ctx, "directory", u.String(), ok)
	return ok, nil
}
