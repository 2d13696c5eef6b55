package filesystem

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/resolvekit/pkg/errors"
)

// maxMemoryHops bounds link traversal inside a Memory tree.
const maxMemoryHops = 40

// Memory is an in-memory [FileSystem]. Directories are implicit: every
// ancestor of a file or link exists as a directory.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	links map[string]string
	dirs  map[string]struct{}
}

var _ FileSystem = (*Memory)(nil)

// NewMemory builds a tree from a fixture map of slash-separated paths to
// contents. Paths are relative to the root. A key ending in "*" declares a
// symbolic link: the key minus the "*" is the link and the value is its
// target, interpreted relative to the link's directory unless it starts with
// "/".
//
//	fs := filesystem.NewMemory(map[string]string{
//	    "main.js":                          "",
//	    "node_modules/mod*":                "../.pnpm/mod@1.0.0/node_modules/mod",
//	    ".pnpm/mod@1.0.0/node_modules/mod/index.js": "",
//	})
func NewMemory(fixture map[string]string) *Memory {
	m := &Memory{
		files: make(map[string][]byte),
		links: make(map[string]string),
		dirs:  map[string]struct{}{"/": {}},
	}
	for key, content := range fixture {
		if link, ok := strings.CutSuffix(key, "*"); ok {
			m.Link(link, content)
		} else {
			m.Add(key, content)
		}
	}
	return m
}

// Add creates or replaces the file at p.
func (m *Memory) Add(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	m.files[p] = []byte(content)
	m.addParents(p)
}

// Link creates or replaces a symbolic link at p pointing to target.
func (m *Memory) Link(p, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	m.links[p] = target
	m.addParents(p)
}

// Paths returns every file and link path in the tree, sorted.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files)+len(m.links))
	for p := range m.files {
		out = append(out, p)
	}
	for p := range m.links {
		out = append(out, p+"*")
	}
	sort.Strings(out)
	return out
}

// DirectoryExists implements [FileSystem].
func (m *Memory) DirectoryExists(ctx context.Context, u *url.URL) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	real, ok := m.realpath(u.Path)
	if !ok {
		return false, nil
	}
	_, isDir := m.dirs[real]
	return isDir, nil
}

// FileExists implements [FileSystem].
func (m *Memory) FileExists(ctx context.Context, u *url.URL) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.HasSuffix(u.Path, "/") {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	real, ok := m.realpath(u.Path)
	if !ok {
		return false, nil
	}
	_, isFile := m.files[real]
	return isFile, nil
}

// ReadFile implements [FileSystem].
func (m *Memory) ReadFile(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if real, ok := m.realpath(u.Path); ok {
		if data, ok := m.files[real]; ok {
			return data, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no such file: %s", u)
}

// ReadLink implements [FileSystem]. Only the exact path is consulted;
// links in ancestor directories are not followed.
func (m *Memory) ReadLink(ctx context.Context, u *url.URL) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.links[clean(u.Path)]
	return target, ok, nil
}

// realpath follows links component by component. It reports false when the
// hop limit is exceeded.
func (m *Memory) realpath(p string) (string, bool) {
	pending := split(p)
	resolved := ""
	hops := 0
	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		switch name {
		case "", ".":
			continue
		case "..":
			if i := strings.LastIndex(resolved, "/"); i >= 0 {
				resolved = resolved[:i]
			}
			continue
		}
		next := resolved + "/" + name
		target, isLink := m.links[next]
		if !isLink {
			resolved = next
			continue
		}
		if hops++; hops > maxMemoryHops {
			return "", false
		}
		if strings.HasPrefix(target, "/") {
			resolved = ""
		}
		pending = append(split(target), pending...)
	}
	if resolved == "" {
		return "/", true
	}
	return resolved, true
}

func (m *Memory) addParents(p string) {
	for dir := parent(p); ; dir = parent(dir) {
		m.dirs[dir] = struct{}{}
		if dir == "/" {
			return
		}
	}
}

// clean normalizes p to a rooted path without a trailing slash.
func clean(p string) string {
	parts := split(p)
	kept := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			kept = append(kept, part)
		}
	}
	return "/" + strings.Join(kept, "/")
}

func split(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
