package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/specifier"
)

// module resolves spec the way an ES module import does.
func (r *resolver) module(ctx context.Context, spec string, parent *url.URL) (Resolution, error) {
	r.trace.State("ESM_RESOLVE "+spec, parent.String())

	var (
		resolved *url.URL
		err      error
	)
	switch specifier.Classify(spec) {
	case specifier.Relative, specifier.Absolute:
		resolved, err = fileurl.Join(parent, spec)
		if err != nil {
			return Resolution{}, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
		}
	case specifier.Imports:
		if !fileurl.IsFile(parent) {
			return Resolution{}, errors.New(errors.ErrCodePackageImportNotDefined, "%q cannot be imported from %s", spec, parent)
		}
		resolved, err = r.packageImportsResolve(ctx, spec, parent)
	case specifier.URL:
		resolved, err = url.Parse(spec)
		if err != nil {
			return Resolution{}, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
		}
	default:
		if !fileurl.IsFile(parent) && !specifier.IsBuiltin(spec) {
			return Resolution{}, errors.New(errors.ErrCodeModuleNotFound, "cannot find package %q from %s", spec, parent)
		}
		resolved, err = r.packageResolve(ctx, spec, parent)
	}
	if err != nil {
		return Resolution{}, err
	}
	return r.finalizeModule(ctx, resolved)
}

// finalizeModule checks that a resolved file exists and is not a directory,
// then dereferences links and determines its format. Non-file locations are
// returned as they are.
func (r *resolver) finalizeModule(ctx context.Context, u *url.URL) (Resolution, error) {
	switch {
	case u.Scheme == specifier.BuiltinScheme:
		return Resolution{Format: FormatBuiltin, URL: u}, nil
	case !fileurl.IsFile(u):
		return Resolution{Format: FormatUnknown, URL: u}, nil
	}

	if fileurl.HasEncodedSeparator(u) {
		return Resolution{}, errors.New(errors.ErrCodeInvalidSpecifier,
			"%s must not include encoded \"/\" or \"\\\" characters", u)
	}

	isDir, err := r.directoryExists(ctx, u)
	if err != nil {
		return Resolution{}, err
	}
	if isDir {
		return Resolution{}, errors.New(errors.ErrCodeUnsupportedDirImport,
			"directory import %s is not supported", u)
	}

	ok, err := r.fileExists(ctx, u)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{}, errors.New(errors.ErrCodeModuleNotFound, "cannot find module %s", u)
	}

	real, err := r.realName(ctx, u)
	if err != nil {
		return Resolution{}, err
	}
	format, err := r.fileFormat(ctx, real)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Format: format, URL: real}, nil
}

// packageResolve resolves a bare specifier: builtins, self-reference, then
// node_modules directories from parent upward.
func (r *resolver) packageResolve(ctx context.Context, spec string, parent *url.URL) (*url.URL, error) {
	r.trace.State("PACKAGE_RESOLVE "+spec, parent.String())

	if spec == "" {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "empty package specifier")
	}
	if specifier.IsBuiltin(spec) {
		return url.Parse(specifier.BuiltinURL(spec))
	}

	name, rest, ok := specifier.SplitPackage(spec)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "%q is not a valid package name", spec)
	}
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	subpath := specifier.Subpath(rest)
	if strings.HasSuffix(subpath, "/") {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "%q must not end in \"/\"", spec)
	}

	if u, found, err := r.packageSelfResolve(ctx, name, subpath, parent); err != nil || found {
		return u, err
	}

	for _, dir := range nodeModulesPaths(fileurl.Dir(parent)) {
		pkgDir := fileurl.JoinPath(dir, name+"/")
		ok, err := r.directoryExists(ctx, pkgDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		d, err := r.descriptor(ctx, pkgDir)
		if err != nil {
			return nil, err
		}
		if d.HasExports() {
			return r.packageExportsResolve(ctx, pkgDir, subpath, d.Exports)
		}
		return r.legacyResolve(ctx, pkgDir, rest)
	}

	return nil, errors.New(errors.ErrCodeModuleNotFound, "cannot find package %q from %s", name, parent)
}

// packageSelfResolve resolves a package's own name through its exports.
// found is false when the package scope of parent is not that package.
func (r *resolver) packageSelfResolve(ctx context.Context, name, subpath string, parent *url.URL) (u *url.URL, found bool, err error) {
	scope, err := r.packageScope(ctx, parent)
	if err != nil || scope == nil {
		return nil, false, err
	}
	d, err := r.descriptor(ctx, scope)
	if err != nil || !d.HasExports() {
		return nil, false, err
	}
	if !d.HasName || d.Name != name {
		return nil, false, nil
	}
	u, err = r.packageExportsResolve(ctx, scope, subpath, d.Exports)
	return u, true, err
}

// legacyResolve resolves a subpath of a package without an exports field,
// probing extensions and directory indexes.
func (r *resolver) legacyResolve(ctx context.Context, pkgDir *url.URL, rest string) (*url.URL, error) {
	r.trace.State("LEGACY_RESOLVE "+rest, pkgDir.String())

	if rest != "" {
		res, err := r.loadAsFile(ctx, "."+rest, pkgDir)
		if err != nil || res != nil {
			return res.location(), err
		}
	}

	dir, err := subdir(pkgDir, rest)
	if err != nil {
		return nil, err
	}
	res, err := r.loadAsDirectory(ctx, dir)
	if err != nil || res != nil {
		return res.location(), err
	}
	return nil, errors.New(errors.ErrCodeModuleNotFound, "cannot find %q in package %s", "."+rest, pkgDir)
}

// subdir returns the directory rest (empty or starting with "/") inside dir.
func subdir(dir *url.URL, rest string) (*url.URL, error) {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return fileurl.AsDir(dir), nil
	}
	u, err := fileurl.Join(fileurl.AsDir(dir), specifier.EncodeFragment(rest)+"/")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", rest)
	}
	return u, nil
}
