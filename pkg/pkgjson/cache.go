package pkgjson

import (
	"context"
	"net/url"
	"sync"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/observability"
)

// keyType labels descriptor traffic in cache hooks.
const keyType = "descriptor"

// Cache memoizes descriptor reads by package directory URL. Absent and
// malformed descriptors are cached as well, so every directory is read at
// most once per cache lifetime in the common case. Concurrent readers of
// the same directory may both read it; the last write wins and both writes
// hold the same data.
//
// Cache is safe for concurrent use.
type Cache struct {
	entries sync.Map // string -> *entry
}

type entry struct {
	desc   *Descriptor
	exists bool
	err    error
}

// NewCache returns an empty descriptor cache.
func NewCache() *Cache {
	return &Cache{}
}

// Read returns the descriptor of the package directory dir.
//
// It returns (nil, nil) when the directory has no descriptor, and an error
// with code PARSE_ERROR when the descriptor exists but cannot be decoded.
// Context errors are returned as-is and never cached.
func (c *Cache) Read(ctx context.Context, fs filesystem.FileSystem, dir *url.URL) (*Descriptor, error) {
	e, err := c.load(ctx, fs, dir)
	if err != nil {
		return nil, err
	}
	return e.desc, e.err
}

// Exists reports whether dir contains a descriptor file, readable or not.
func (c *Cache) Exists(ctx context.Context, fs filesystem.FileSystem, dir *url.URL) (bool, error) {
	e, err := c.load(ctx, fs, dir)
	if err != nil {
		return false, err
	}
	return e.exists, nil
}

// Len returns the number of cached directories.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) load(ctx context.Context, fs filesystem.FileSystem, dir *url.URL) (*entry, error) {
	file := fileurl.JoinPath(fileurl.AsDir(dir), FileName)
	key := file.String()

	if v, ok := c.entries.Load(key); ok {
		observability.Cache().OnCacheHit(ctx, keyType)
		return v.(*entry), nil
	}
	observability.Cache().OnCacheMiss(ctx, keyType)

	e, err := read(ctx, fs, file)
	if err != nil {
		return nil, err
	}
	c.entries.Store(key, e)
	observability.Cache().OnCacheSet(ctx, keyType, 1)
	return e, nil
}

func read(ctx context.Context, fs filesystem.FileSystem, file *url.URL) (*entry, error) {
	ok, err := fs.FileExists(ctx, file)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &entry{}, nil
	}

	data, err := fs.ReadFile(ctx, file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return &entry{}, nil
	}

	desc, err := Parse(data)
	if err != nil {
		return &entry{exists: true, err: errors.Wrap(errors.ErrCodeParse, err, "%s", file)}, nil
	}
	return &entry{desc: desc, exists: true}, nil
}
