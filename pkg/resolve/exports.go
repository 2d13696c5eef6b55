package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/pkgjson"
)

// matchKind distinguishes the three outcomes of evaluating a target.
type matchKind int

const (
	// noMatch means no condition applied; the caller tries its next
	// alternative.
	noMatch matchKind = iota
	// excluded means the target was explicitly null.
	excluded
	matched
)

type match struct {
	kind matchKind
	url  *url.URL
}

// packageExportsResolve maps subpath (".", "./x") through the exports field
// of the package in pkgDir.
func (r *resolver) packageExportsResolve(ctx context.Context, pkgDir *url.URL, subpath string, exports pkgjson.Value) (*url.URL, error) {
	r.trace.State("PACKAGE_EXPORTS_RESOLVE "+subpath, pkgDir.String())

	if strings.HasSuffix(subpath, "/") {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier,
			"subpath %q of %s ends in \"/\"; directory subpaths cannot be exported", subpath, pkgDir)
	}

	obj, isObject := exports.(pkgjson.Object)
	subpathKeys, conditionKeys := 0, 0
	for _, key := range obj.Keys() {
		if strings.HasPrefix(key, ".") {
			subpathKeys++
		} else {
			conditionKeys++
		}
	}
	if subpathKeys > 0 && conditionKeys > 0 {
		return nil, errors.New(errors.ErrCodeInvalidPackageConfig,
			"exports of %s mix subpath keys and condition keys", pkgDir)
	}

	if subpath == "." {
		var main pkgjson.Value
		switch {
		case !isObject:
			switch exports.(type) {
			case pkgjson.String, pkgjson.Array:
				main = exports
			}
		case subpathKeys == 0:
			main = exports
		default:
			main, _ = obj.Get(".")
		}
		if main != nil {
			m, err := r.targetResolve(ctx, pkgDir, main, "", false, false)
			if err != nil {
				return nil, err
			}
			if m.kind == matched {
				return m.url, nil
			}
		}
	} else if isObject && subpathKeys > 0 {
		m, err := r.importsExportsResolve(ctx, subpath, obj, pkgDir, false)
		if err != nil {
			return nil, err
		}
		if m.kind == matched {
			return m.url, nil
		}
	}

	return nil, errors.New(errors.ErrCodePackagePathNotExported,
		"subpath %q is not exported by %s", subpath, pkgDir)
}

// packageImportsResolve maps an internal "#" specifier through the imports
// field of the package scope of parent.
func (r *resolver) packageImportsResolve(ctx context.Context, spec string, parent *url.URL) (*url.URL, error) {
	r.trace.State("PACKAGE_IMPORTS_RESOLVE "+spec, parent.String())

	if spec == "#" || strings.HasPrefix(spec, "#/") || strings.HasSuffix(spec, "/") {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "%q is not a valid internal imports specifier", spec)
	}

	scope, err := r.packageScope(ctx, parent)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		d, err := r.descriptor(ctx, scope)
		if err != nil {
			return nil, err
		}
		if imports, ok := d.ImportsMap(); ok {
			m, err := r.importsExportsResolve(ctx, spec, imports, scope, true)
			if err != nil {
				return nil, err
			}
			if m.kind == matched {
				return m.url, nil
			}
		}
	}

	return nil, errors.New(errors.ErrCodePackageImportNotDefined,
		"%q is not defined in the imports of the package scope of %s", spec, parent)
}

// importsExportsResolve matches key against an exports or imports object:
// exact keys first, then the most specific single-"*" pattern.
func (r *resolver) importsExportsResolve(ctx context.Context, key string, obj pkgjson.Object, pkgDir *url.URL, isImports bool) (match, error) {
	if target, ok := obj.Get(key); ok && !strings.Contains(key, "*") {
		return r.targetResolve(ctx, pkgDir, target, "", false, isImports)
	}

	var (
		bestKey   string
		bestValue pkgjson.Value
	)
	for _, e := range obj {
		star := strings.IndexByte(e.Key, '*')
		if star < 0 {
			continue
		}
		base := e.Key[:star]
		if !strings.HasPrefix(key, base) || key == base {
			continue
		}
		if strings.Count(e.Key, "*") > 1 {
			return match{}, errors.New(errors.ErrCodeInvalidPackageConfig,
				"pattern %q in %s contains more than one \"*\"", e.Key, pkgDir)
		}
		trailer := e.Key[star+1:]
		if trailer != "" && (!strings.HasSuffix(key, trailer) || len(key) < len(e.Key)) {
			continue
		}
		if bestKey == "" || patternKeyCompare(bestKey, e.Key) == 1 {
			bestKey, bestValue = e.Key, e.Value
		}
	}

	if bestKey == "" {
		return match{kind: noMatch}, nil
	}
	star := strings.IndexByte(bestKey, '*')
	trailer := bestKey[star+1:]
	patternMatch := key[star : len(key)-len(trailer)]
	return r.targetResolve(ctx, pkgDir, bestValue, patternMatch, true, isImports)
}

// patternKeyCompare orders pattern keys by specificity. It returns -1 when a
// is more specific than b, 1 when b is more specific, and 0 otherwise.
func patternKeyCompare(a, b string) int {
	aStar := strings.IndexByte(a, '*')
	bStar := strings.IndexByte(b, '*')
	baseA, baseB := len(a), len(b)
	if aStar >= 0 {
		baseA = aStar + 1
	}
	if bStar >= 0 {
		baseB = bStar + 1
	}
	switch {
	case baseA > baseB:
		return -1
	case baseB > baseA:
		return 1
	case aStar < 0:
		return 1
	case bStar < 0:
		return -1
	case len(a) > len(b):
		return -1
	case len(b) > len(a):
		return 1
	}
	return 0
}

// targetResolve evaluates an exports or imports target: a string, a
// condition object, an array of fallbacks or null.
func (r *resolver) targetResolve(ctx context.Context, pkgDir *url.URL, target pkgjson.Value, patternMatch string, isPattern, isImports bool) (match, error) {
	switch t := target.(type) {
	case pkgjson.String:
		u, err := r.targetString(ctx, pkgDir, string(t), patternMatch, isPattern, isImports)
		if err != nil {
			return match{}, err
		}
		return match{kind: matched, url: u}, nil

	case pkgjson.Object:
		for _, key := range t.Keys() {
			if isArrayIndex(key) {
				return match{}, errors.New(errors.ErrCodeInvalidPackageConfig,
					"condition %q in %s must not be a numeric index", key, pkgDir)
			}
		}
		for _, e := range t {
			if e.Key != "default" && !r.hasCondition(e.Key) {
				continue
			}
			m, err := r.targetResolve(ctx, pkgDir, e.Value, patternMatch, isPattern, isImports)
			if err != nil {
				return match{}, err
			}
			if m.kind == noMatch {
				continue
			}
			return m, nil
		}
		return match{kind: noMatch}, nil

	case pkgjson.Array:
		if len(t) == 0 {
			return match{kind: excluded}, nil
		}
		var (
			last        error
			sawExcluded bool
		)
		for _, item := range t {
			m, err := r.targetResolve(ctx, pkgDir, item, patternMatch, isPattern, isImports)
			if err != nil {
				if errors.Is(err, errors.ErrCodeInvalidPackageTarget) || errors.IsNotFound(err) {
					last = err
					continue
				}
				return match{}, err
			}
			switch m.kind {
			case noMatch:
				continue
			case excluded:
				last, sawExcluded = nil, true
				continue
			}
			return m, nil
		}
		if last != nil {
			return match{}, last
		}
		if sawExcluded {
			return match{kind: excluded}, nil
		}
		return match{kind: noMatch}, nil

	case pkgjson.Null:
		return match{kind: excluded}, nil
	}

	return match{}, errors.New(errors.ErrCodeInvalidPackageTarget, "invalid target %v in %s", target, pkgDir)
}

// targetString resolves a single string target.
func (r *resolver) targetString(ctx context.Context, pkgDir *url.URL, target, patternMatch string, isPattern, isImports bool) (*url.URL, error) {
	if !strings.HasPrefix(target, "./") {
		if !isImports || strings.HasPrefix(target, "../") || strings.HasPrefix(target, "/") || fileurl.HasScheme(target) {
			return nil, errors.New(errors.ErrCodeInvalidPackageTarget,
				"target %q in %s must start with \"./\"", target, pkgDir)
		}
		spec := target
		if isPattern {
			spec = strings.ReplaceAll(target, "*", patternMatch)
		}
		return r.packageResolve(ctx, spec, pkgDir)
	}

	if hasInvalidSegment(target[2:], true) {
		return nil, errors.New(errors.ErrCodeInvalidPackageTarget,
			"target %q in %s contains an invalid path segment", target, pkgDir)
	}

	resolved, err := fileurl.Join(pkgDir, target)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPackageTarget, err, "target %q in %s", target, pkgDir)
	}
	if !fileurl.Within(resolved, pkgDir) {
		return nil, errors.New(errors.ErrCodeInvalidPackageTarget,
			"target %q resolves outside of %s", target, pkgDir)
	}
	if !isPattern {
		return resolved, nil
	}

	if hasInvalidSegment(patternMatch, false) {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier,
			"pattern match %q contains an invalid path segment", patternMatch)
	}
	out, err := fileurl.Join(pkgDir, strings.ReplaceAll(target, "*", patternMatch))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "substitute %q into %q", patternMatch, target)
	}
	return out, nil
}

// hasInvalidSegment reports whether p contains a ".", ".." or node_modules
// segment, including percent-encoded spellings. Empty segments are invalid
// unless allowEmpty is set.
func hasInvalidSegment(p string, allowEmpty bool) bool {
	for _, seg := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			decoded = seg
		}
		switch strings.ToLower(decoded) {
		case ".", "..", nodeModules:
			return true
		case "":
			if !allowEmpty {
				return true
			}
		}
	}
	return false
}

func isArrayIndex(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

func (r *resolver) hasCondition(name string) bool {
	for _, c := range r.conditions {
		if c == name {
			return true
		}
	}
	return false
}
