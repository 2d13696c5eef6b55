package pipeline

import (
	"context"
	"net/url"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/pkgjson"
	"github.com/matzehuels/resolvekit/pkg/trace"
)

// Dependency kinds. File and directory entries hold the outcome of an
// existence probe; descriptor entries hold the hash of a package.json file
// ("" when absent); link entries hold the target of a symbolic link.
const (
	depFile       = "file"
	depDirectory  = "directory"
	depDescriptor = "descriptor"
	depLink       = "link"
)

// dependency is one filesystem observation a resolution relied on. A cached
// result stays valid only while every observation still holds.
type dependency struct {
	Kind     string `json:"k"`
	Location string `json:"l"`
	Found    bool   `json:"f,omitempty"`
	Value    string `json:"v,omitempty"`
}

// dependencies extracts the observations recorded in events. Descriptors are
// hashed from fs, so edits to any package.json the resolution read, including
// its "type", "exports" and "main", invalidate the result.
func dependencies(ctx context.Context, fs filesystem.FileSystem, events []trace.Event) ([]dependency, error) {
	seen := make(map[string]bool)
	var deps []dependency
	add := func(d dependency) {
		id := d.Kind + " " + d.Location
		if seen[id] {
			return
		}
		seen[id] = true
		deps = append(deps, d)
	}

	for _, e := range events {
		switch e.Kind {
		case trace.KindProbe:
			if e.Name == depFile || e.Name == depDirectory {
				add(dependency{Kind: e.Name, Location: e.Location, Found: e.Found})
			}
		case trace.KindLink:
			add(dependency{Kind: depLink, Location: e.Location, Found: true, Value: e.Detail})
		case trace.KindDescriptor:
			file, err := descriptorFile(e.Location)
			if err != nil {
				return nil, err
			}
			if seen[depDescriptor+" "+file.String()] {
				continue
			}
			sum, found, err := hashFile(ctx, fs, file)
			if err != nil {
				return nil, err
			}
			add(dependency{Kind: depDescriptor, Location: file.String(), Found: found, Value: sum})
		}
	}
	return deps, nil
}

// unchanged reports whether every dependency still holds on fs.
func unchanged(ctx context.Context, fs filesystem.FileSystem, deps []dependency) (bool, error) {
	for _, d := range deps {
		u, err := url.Parse(d.Location)
		if err != nil {
			return false, nil
		}
		var same bool
		switch d.Kind {
		case depFile:
			ok, err := fs.FileExists(ctx, u)
			if err != nil {
				return false, err
			}
			same = ok == d.Found
		case depDirectory:
			ok, err := fs.DirectoryExists(ctx, u)
			if err != nil {
				return false, err
			}
			same = ok == d.Found
		case depDescriptor:
			sum, found, err := hashFile(ctx, fs, u)
			if err != nil {
				return false, err
			}
			same = found == d.Found && sum == d.Value
		case depLink:
			target, ok, err := fs.ReadLink(ctx, u)
			if err != nil {
				return false, err
			}
			same = ok && target == d.Value
		}
		if !same {
			return false, nil
		}
	}
	return true, nil
}

func descriptorFile(dir string) (*url.URL, error) {
	u, err := url.Parse(dir)
	if err != nil {
		return nil, err
	}
	return fileurl.JoinPath(fileurl.AsDir(u), pkgjson.FileName), nil
}

// hashFile returns the content hash of the file at u. Unreadable files
// count as absent.
func hashFile(ctx context.Context, fs filesystem.FileSystem, u *url.URL) (string, bool, error) {
	ok, err := fs.FileExists(ctx, u)
	if err != nil || !ok {
		return "", false, err
	}
	data, err := fs.ReadFile(ctx, u)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		return "", false, nil
	}
	return cache.Hash(data), true, nil
}
