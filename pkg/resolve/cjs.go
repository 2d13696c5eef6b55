package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/specifier"
)

// commonJS resolves spec the way require() does.
func (r *resolver) commonJS(ctx context.Context, spec string, parent *url.URL) (Resolution, error) {
	r.trace.State("REQUIRE "+spec, parent.String())

	if strings.HasPrefix(spec, specifier.BuiltinScheme+":") || specifier.IsBuiltin(spec) {
		u, err := url.Parse(specifier.BuiltinURL(spec))
		if err != nil {
			return Resolution{}, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
		}
		return Resolution{Format: FormatBuiltin, URL: u}, nil
	}

	kind := specifier.Classify(spec)
	if kind == specifier.URL {
		u, err := url.Parse(spec)
		if err != nil {
			return Resolution{}, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
		}
		if !fileurl.IsFile(u) {
			return Resolution{Format: FormatUnknown, URL: u}, nil
		}
		spec, kind = u.Path, specifier.Absolute
	}

	if !fileurl.IsFile(parent) {
		if kind == specifier.Relative || kind == specifier.Absolute {
			u, err := fileurl.Join(parent, specifier.EncodeFragment(spec))
			if err != nil {
				return Resolution{}, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
			}
			return Resolution{Format: FormatUnknown, URL: u}, nil
		}
		return Resolution{}, errors.New(errors.ErrCodeModuleNotFound, "cannot find module %q from %s", spec, parent)
	}

	dir := fileurl.Dir(parent)
	var (
		res *Resolution
		err error
	)
	switch kind {
	case specifier.Relative, specifier.Absolute:
		if specifier.HasEncodedSeparator(spec) {
			return Resolution{}, errors.New(errors.ErrCodeInvalidSpecifier,
				"%q must not include encoded \"/\" or \"\\\" characters", spec)
		}
		res, err = r.loadRelative(ctx, spec, dir)
		if err != nil {
			return Resolution{}, err
		}
		if res == nil {
			return Resolution{}, errors.New(errors.ErrCodeModuleNotFound, "cannot find module %q from %s", spec, parent)
		}
		return *res, nil

	case specifier.Imports:
		if res, err = r.loadPackageImports(ctx, spec, dir); err != nil || res != nil {
			return res.value(), err
		}
	}

	if res, err = r.loadPackageSelf(ctx, spec, dir); err != nil || res != nil {
		return res.value(), err
	}
	if res, err = r.loadNodeModules(ctx, spec, dir); err != nil || res != nil {
		return res.value(), err
	}
	return Resolution{}, errors.New(errors.ErrCodeModuleNotFound, "cannot find module %q from %s", spec, parent)
}

// loadRelative tries spec as a file, then as a directory, relative to dir.
func (r *resolver) loadRelative(ctx context.Context, spec string, dir *url.URL) (*Resolution, error) {
	res, err := r.loadAsFile(ctx, spec, dir)
	if err != nil || res != nil {
		return res, err
	}
	target, err := fileurl.Join(dir, specifier.EncodeFragment(strings.TrimSuffix(spec, "/"))+"/")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", spec)
	}
	return r.loadAsDirectory(ctx, target)
}

// loadAsFile tries fragment exactly, then with each configured extension.
// Fragments ending in "/" never name a file.
func (r *resolver) loadAsFile(ctx context.Context, fragment string, base *url.URL) (*Resolution, error) {
	if fragment == "" || strings.HasSuffix(fragment, "/") {
		return nil, nil
	}
	r.trace.State("LOAD_AS_FILE "+fragment, base.String())

	encoded := specifier.EncodeFragment(fragment)
	exact, err := fileurl.Join(base, encoded)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", fragment)
	}
	ok, err := r.fileExists(ctx, exact)
	if err != nil {
		return nil, err
	}
	if ok {
		real, err := r.realName(ctx, exact)
		if err != nil {
			return nil, err
		}
		format, err := r.fileFormat(ctx, real)
		if err != nil {
			return nil, err
		}
		return &Resolution{Format: format, URL: real}, nil
	}

	return r.probeExtensions(ctx, base, encoded)
}

// loadIndex tries fragment/index with each configured extension.
func (r *resolver) loadIndex(ctx context.Context, fragment string, base *url.URL) (*Resolution, error) {
	r.trace.State("LOAD_INDEX "+fragment, base.String())

	prefix := specifier.EncodeFragment(strings.TrimSuffix(fragment, "/"))
	if prefix == "" {
		prefix = "."
	}
	return r.probeExtensions(ctx, base, prefix+"/index")
}

func (r *resolver) probeExtensions(ctx context.Context, base *url.URL, encoded string) (*Resolution, error) {
	for _, ext := range r.extensions {
		candidate, err := fileurl.Join(base, encoded+ext)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "%q", encoded+ext)
		}
		ok, err := r.fileExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		real, err := r.realName(ctx, candidate)
		if err != nil {
			return nil, err
		}
		format, err := r.extensionFormat(ctx, ext, candidate, real)
		if err != nil {
			return nil, err
		}
		return &Resolution{Format: format, URL: real}, nil
	}
	return nil, nil
}

// loadAsDirectory loads the package or plain directory at dir: its "main"
// entry when declared, otherwise its index file.
func (r *resolver) loadAsDirectory(ctx context.Context, dir *url.URL) (*Resolution, error) {
	r.trace.State("LOAD_AS_DIRECTORY", dir.String())

	d, err := r.descriptor(ctx, dir)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Main == "" {
		return r.loadIndex(ctx, ".", dir)
	}

	if res, err := r.loadAsFile(ctx, d.Main, dir); err != nil || res != nil {
		return res, err
	}
	if res, err := r.loadIndex(ctx, d.Main, dir); err != nil || res != nil {
		return res, err
	}
	if res, err := r.loadIndex(ctx, ".", dir); err != nil || res != nil {
		r.logger.Debug("package main not found, using index", "dir", dir, "main", d.Main)
		return res, err
	}
	return nil, errors.New(errors.ErrCodeModuleNotFound, "cannot find main %q of %s", d.Main, dir)
}

// loadNodeModules searches node_modules directories from dir upward.
func (r *resolver) loadNodeModules(ctx context.Context, spec string, dir *url.URL) (*Resolution, error) {
	name, rest, ok := specifier.SplitPackage(spec)
	if !ok {
		return nil, nil
	}

	for _, nm := range nodeModulesPaths(dir) {
		ok, err := r.directoryExists(ctx, nm)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		r.trace.State("LOAD_NODE_MODULES "+spec, nm.String())

		logical := fileurl.JoinPath(nm, name+"/")
		isPkg, err := r.directoryExists(ctx, logical)
		if err != nil {
			return nil, err
		}

		var pkgDir *url.URL
		if isPkg {
			if pkgDir, err = r.realDir(ctx, logical); err != nil {
				return nil, err
			}
			if res, err := r.loadPackageExports(ctx, rest, pkgDir); err != nil || res != nil {
				return res, err
			}
		}

		fileBase, fragment := nm, "./"+name
		if rest != "" && pkgDir != nil {
			fileBase, fragment = pkgDir, "."+rest
		} else if rest != "" {
			fragment += rest
		}
		if res, err := r.loadAsFile(ctx, fragment, fileBase); err != nil || res != nil {
			return res, err
		}

		if !isPkg {
			continue
		}
		target, err := subdir(pkgDir, rest)
		if err != nil {
			return nil, err
		}
		if res, err := r.loadAsDirectory(ctx, target); err != nil || res != nil {
			return res, err
		}
	}
	return nil, nil
}

// loadPackageExports resolves a subpath through the exports of the package
// at pkgDir. It returns nil when the package declares no exports.
func (r *resolver) loadPackageExports(ctx context.Context, rest string, pkgDir *url.URL) (*Resolution, error) {
	d, err := r.descriptor(ctx, pkgDir)
	if err != nil || !d.HasExports() {
		return nil, err
	}
	u, err := r.packageExportsResolve(ctx, pkgDir, specifier.Subpath(rest), d.Exports)
	if err != nil {
		return nil, err
	}
	return r.resolveMatch(ctx, u)
}

// loadPackageImports resolves a "#" specifier through the imports of the
// package scope of dir. Undefined imports fall through to the next step.
func (r *resolver) loadPackageImports(ctx context.Context, spec string, dir *url.URL) (*Resolution, error) {
	scope, err := r.packageScope(ctx, dir)
	if err != nil || scope == nil {
		return nil, err
	}
	d, err := r.descriptor(ctx, scope)
	if err != nil {
		return nil, err
	}
	if _, ok := d.ImportsMap(); !ok {
		return nil, nil
	}
	u, err := r.packageImportsResolve(ctx, spec, scope)
	if errors.Is(err, errors.ErrCodePackageImportNotDefined) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.resolveMatch(ctx, u)
}

// loadPackageSelf resolves spec against the exports of the enclosing package
// when spec starts with that package's own name.
func (r *resolver) loadPackageSelf(ctx context.Context, spec string, dir *url.URL) (*Resolution, error) {
	scope, err := r.packageScope(ctx, dir)
	if err != nil || scope == nil {
		return nil, err
	}
	d, err := r.descriptor(ctx, scope)
	if err != nil || !d.HasExports() || !d.HasName || d.Name == "" {
		return nil, err
	}
	if spec != d.Name && !strings.HasPrefix(spec, d.Name+"/") {
		return nil, nil
	}
	r.trace.State("LOAD_PACKAGE_SELF "+spec, scope.String())

	u, err := r.packageExportsResolve(ctx, scope, specifier.Subpath(spec[len(d.Name):]), d.Exports)
	if err != nil {
		return nil, err
	}
	return r.resolveMatch(ctx, u)
}

// resolveMatch turns a location produced by an exports or imports map into
// a resolution. A mapped file that does not exist is a terminal error.
func (r *resolver) resolveMatch(ctx context.Context, u *url.URL) (*Resolution, error) {
	switch {
	case u.Scheme == specifier.BuiltinScheme:
		return &Resolution{Format: FormatBuiltin, URL: u}, nil
	case !fileurl.IsFile(u):
		return &Resolution{Format: FormatUnknown, URL: u}, nil
	}

	ok, err := r.fileExists(ctx, u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "cannot find module %s", u)
	}
	real, err := r.realName(ctx, u)
	if err != nil {
		return nil, err
	}
	format, err := r.fileFormat(ctx, real)
	if err != nil {
		return nil, err
	}
	return &Resolution{Format: format, URL: real}, nil
}
