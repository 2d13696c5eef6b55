// Package specifier classifies and decomposes module specifiers.
//
// A specifier is the string a module asks for: "./util.js", "lodash/fp",
// "#internal", "node:fs" or "https://cdn.example/x.js". This package knows
// nothing about the filesystem; it only answers questions about the string.
package specifier

import (
	"strings"

	"github.com/matzehuels/resolvekit/pkg/fileurl"
)

// Kind is the syntactic category of a specifier.
type Kind int

const (
	// Bare is a package request such as "lodash" or "@scope/pkg/sub".
	Bare Kind = iota
	// Relative starts with "./" or "../", or is exactly "." or "..".
	Relative
	// Absolute starts with "/".
	Absolute
	// Imports starts with "#" and is looked up in the package imports map.
	Imports
	// URL carries its own scheme, including "node:" builtins.
	URL
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	case Imports:
		return "imports"
	case URL:
		return "url"
	default:
		return "bare"
	}
}

// Classify returns the kind of s.
func Classify(s string) Kind {
	switch {
	case s == "." || s == ".." || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../"):
		return Relative
	case strings.HasPrefix(s, "/"):
		return Absolute
	case strings.HasPrefix(s, "#"):
		return Imports
	case fileurl.HasScheme(s):
		return URL
	default:
		return Bare
	}
}

// IsRelativeLike reports whether s is resolved against the requesting
// module's location rather than looked up as a package.
func IsRelativeLike(s string) bool {
	k := Classify(s)
	return k == Relative || k == Absolute
}

// SplitPackage splits a bare specifier into its package name and the
// remaining subpath. The subpath is empty or starts with "/". Scoped names
// keep both segments: "@scope/pkg/x" yields ("@scope/pkg", "/x"). It
// reports false when no name can be extracted.
func SplitPackage(s string) (name, subpath string, ok bool) {
	end := strings.IndexByte(s, '/')
	if strings.HasPrefix(s, "@") {
		// "@", "@/x" and "@scope" have no usable name.
		if end <= 1 {
			return "", "", false
		}
		next := strings.IndexByte(s[end+1:], '/')
		switch {
		case next == 0 || end == len(s)-1:
			return "", "", false
		case next < 0:
			end = len(s)
		default:
			end += 1 + next
		}
	}
	if end < 0 {
		end = len(s)
	}
	if end == 0 {
		return "", "", false
	}
	return s[:end], s[end:], true
}

// Subpath converts the remainder returned by [SplitPackage] to the "."
// prefixed form used as an exports map key.
func Subpath(rest string) string {
	return "." + rest
}

// EncodeFragment prepares a path fragment for URL resolution. A leading run
// of control characters, spaces and "%" is percent-encoded, as is every
// other control character and "%". The result keeps "/" separators.
func EncodeFragment(s string) string {
	var b strings.Builder
	leading := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if leading && (c <= 0x20 || c == '%') {
			writeEscaped(&b, c)
			continue
		}
		leading = false
		if c < 0x20 || c == 0x7f || c == '%' {
			writeEscaped(&b, c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func writeEscaped(b *strings.Builder, c byte) {
	const hex = "0123456789abcdef"
	b.WriteByte('%')
	b.WriteByte(hex[c>>4])
	b.WriteByte(hex[c&0x0f])
}

// HasEncodedSeparator reports whether s contains "%2f" or "%5c" in either
// case.
func HasEncodedSeparator(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "%2f") || strings.Contains(l, "%5c")
}
