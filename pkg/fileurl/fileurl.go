// Package fileurl provides the URL arithmetic the resolver performs on
// locations. Every location is a *url.URL; files under the local filesystem
// use the "file" scheme, and a location whose path ends in "/" is a directory.
//
// Relative references are resolved with RFC 3986 semantics through
// [url.URL.ResolveReference], operating on the escaped path so that percent
// encoded bytes survive joins untouched.
package fileurl

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Scheme is the scheme of local filesystem locations.
const Scheme = "file"

var (
	refSelf   = &url.URL{Path: "."}
	refParent = &url.URL{Path: ".."}

	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	slashRe  = regexp.MustCompile(`/{2,}`)
)

// Root returns the filesystem root, "file:///".
func Root() *url.URL {
	return &url.URL{Scheme: Scheme, Path: "/"}
}

// FromPath converts an absolute slash-separated path to a file URL.
func FromPath(p string) *url.URL {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: Scheme, Path: p}
}

// Parse parses an absolute URL string.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// HasScheme reports whether s starts with a URL scheme such as "https:".
func HasScheme(s string) bool {
	return schemeRe.MatchString(s)
}

// IsFile reports whether u is a local filesystem location.
func IsFile(u *url.URL) bool {
	return u != nil && u.Scheme == Scheme
}

// Join resolves ref against base. The ref is a URL-encoded relative or
// absolute path; a ref whose first segment looks like a scheme ("a:b") is
// treated as a path.
func Join(base *url.URL, ref string) (*url.URL, error) {
	if HasScheme(ref) {
		ref = "./" + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(r), nil
}

// JoinPath resolves an unencoded filesystem path (for example a symlink
// target) against base.
func JoinPath(base *url.URL, p string) *url.URL {
	return base.ResolveReference(&url.URL{Path: p})
}

// Dir returns the directory containing u. For a directory URL it returns u
// itself (without query or fragment).
func Dir(u *url.URL) *url.URL {
	return u.ResolveReference(refSelf)
}

// Parent returns the parent of directory dir. The parent of the root is the
// root.
func Parent(dir *url.URL) *url.URL {
	return AsDir(dir).ResolveReference(refParent)
}

// IsDir reports whether u names a directory (its path ends in "/").
func IsDir(u *url.URL) bool {
	return strings.HasSuffix(u.Path, "/")
}

// IsRoot reports whether u is the filesystem root.
func IsRoot(u *url.URL) bool {
	return u.Path == "/" || u.Path == ""
}

// AsDir returns u with a trailing "/" appended when missing.
func AsDir(u *url.URL) *url.URL {
	if IsDir(u) {
		return u
	}
	return withEscapedPath(u, u.EscapedPath()+"/")
}

// TrimDir returns u without its trailing "/" unless u is the root. Symlink
// lookups on directories use this form since a trailing slash would follow
// the link.
func TrimDir(u *url.URL) *url.URL {
	if IsRoot(u) || !IsDir(u) {
		return u
	}
	return withEscapedPath(u, strings.TrimSuffix(u.EscapedPath(), "/"))
}

// Collapse squeezes repeated "/" separators in the path of u.
func Collapse(u *url.URL) *url.URL {
	escaped := u.EscapedPath()
	if !strings.Contains(escaped, "//") {
		return u
	}
	return withEscapedPath(u, slashRe.ReplaceAllString(escaped, "/"))
}

// Splice replaces the directory prefix from of u with the directory to,
// keeping the remainder of the path, the query and the fragment.
func Splice(u, from, to *url.URL) *url.URL {
	rest := strings.TrimPrefix(u.EscapedPath(), AsDir(from).EscapedPath())
	out := withEscapedPath(u, AsDir(to).EscapedPath()+rest)
	out.Scheme = to.Scheme
	out.Host = to.Host
	return out
}

// Ext returns the file extension of u, including the dot.
func Ext(u *url.URL) string {
	if IsDir(u) {
		return ""
	}
	return path.Ext(u.Path)
}

// HasEncodedSeparator reports whether the escaped path of u contains an
// encoded "/" or "\".
func HasEncodedSeparator(u *url.URL) bool {
	p := strings.ToLower(u.EscapedPath())
	return strings.Contains(p, "%2f") || strings.Contains(p, "%5c")
}

// Within reports whether u lies inside directory dir.
func Within(u, dir *url.URL) bool {
	if u.Scheme != dir.Scheme || u.Host != dir.Host {
		return false
	}
	return strings.HasPrefix(u.Path, AsDir(dir).Path)
}

// Clone returns a shallow copy of u.
func Clone(u *url.URL) *url.URL {
	v := *u
	if u.User != nil {
		user := *u.User
		v.User = &user
	}
	return &v
}

func withEscapedPath(u *url.URL, escaped string) *url.URL {
	v := Clone(u)
	p, err := url.PathUnescape(escaped)
	if err != nil {
		p = escaped
	}
	v.Path = p
	v.RawPath = ""
	if escaped != (&url.URL{Path: p}).EscapedPath() {
		v.RawPath = escaped
	}
	return v
}
