package resolve

import (
	"context"
	"net/url"

	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/pkgjson"
)

// Format is the module format a host should load a resolved location as.
type Format string

const (
	FormatModule   Format = "module"
	FormatCommonJS Format = "commonjs"
	FormatJSON     Format = "json"
	FormatBuiltin  Format = "builtin"
	FormatAddon    Format = "addon"
	// FormatUnknown leaves the decision to the host.
	FormatUnknown Format = ""
)

// String returns the format name, or "unknown" for [FormatUnknown].
func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// FormatPolicy decides the format of a ".js" or extensionless file whose
// package scope does not declare a "type".
type FormatPolicy interface {
	DetectFormat(ctx context.Context, fs filesystem.FileSystem, u *url.URL) (Format, error)
}

// FormatPolicyFunc adapts a function to [FormatPolicy].
type FormatPolicyFunc func(ctx context.Context, fs filesystem.FileSystem, u *url.URL) (Format, error)

// DetectFormat implements [FormatPolicy].
func (f FormatPolicyFunc) DetectFormat(ctx context.Context, fs filesystem.FileSystem, u *url.URL) (Format, error) {
	return f(ctx, fs, u)
}

// CommonJSPolicy treats every ambiguous file as CommonJS.
var CommonJSPolicy FormatPolicy = FormatPolicyFunc(func(context.Context, filesystem.FileSystem, *url.URL) (Format, error) {
	return FormatCommonJS, nil
})

// fileFormat determines the format of the file at u from its extension and,
// for ".js" and extensionless files, the "type" of its package scope.
func (r *resolver) fileFormat(ctx context.Context, u *url.URL) (Format, error) {
	switch fileurl.Ext(u) {
	case ".mjs":
		return FormatModule, nil
	case ".cjs":
		return FormatCommonJS, nil
	case ".json":
		return FormatJSON, nil
	case ".node":
		return FormatBuiltin, nil
	case ".js", "":
		typ, err := r.scopeType(ctx, u)
		if err != nil {
			return FormatUnknown, err
		}
		switch typ {
		case pkgjson.TypeModule:
			return FormatModule, nil
		case pkgjson.TypeCommonJS:
			return FormatCommonJS, nil
		}
		return r.policy.DetectFormat(ctx, r.fs, u)
	}
	return FormatUnknown, nil
}

// extensionFormat determines the format of a file found by appending ext to
// a CommonJS request. The ".js" case consults the scope of the unresolved
// location first and only falls back to the real file when it declares no
// type.
func (r *resolver) extensionFormat(ctx context.Context, ext string, logical, real *url.URL) (Format, error) {
	switch ext {
	case ".js":
		typ, err := r.scopeType(ctx, logical)
		if err != nil {
			return FormatUnknown, err
		}
		switch typ {
		case pkgjson.TypeModule:
			return FormatModule, nil
		case pkgjson.TypeCommonJS:
			return FormatCommonJS, nil
		}
		return r.fileFormat(ctx, real)
	case ".json":
		return FormatJSON, nil
	case ".node":
		return FormatBuiltin, nil
	}
	return r.fileFormat(ctx, real)
}

// scopeType returns the "type" declared by the package scope of u.
func (r *resolver) scopeType(ctx context.Context, u *url.URL) (string, error) {
	scope, err := r.packageScope(ctx, u)
	if err != nil || scope == nil {
		return "", err
	}
	d, err := r.descriptor(ctx, scope)
	if err != nil || d == nil {
		return "", err
	}
	return d.Type, nil
}
