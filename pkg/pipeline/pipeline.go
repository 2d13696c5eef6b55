// Package pipeline runs resolutions for the CLI and the HTTP API.
//
// Both entry points resolve the same way: validate the request, consult the
// result cache, run the engine on a shared [resolve.Session], revalidate and
// store the result. Centralizing that here keeps the two front doors
// consistent.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, resolve.NewSession(filesystem.OS{}), logger)
//	result, err := runner.Resolve(ctx, pipeline.Options{
//	    Specifier: "lodash",
//	    Parent:    "./src/main.mjs",
//	})
//	fmt.Println(result.Resolution)
//
// Resolve many specifiers concurrently:
//
//	outcomes := runner.ResolveAll(ctx, requests, 8)
//
// Render how a specifier was resolved:
//
//	tr, err := runner.Trace(ctx, opts, pipeline.TraceSVG)
package pipeline

import (
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/resolve"
	"github.com/matzehuels/resolvekit/pkg/trace"
)

// DefaultConcurrency bounds ResolveAll when the caller passes no limit.
const DefaultConcurrency = 8

// Options describes one resolution request.
type Options struct {
	// Specifier is the string passed to require() or import.
	Specifier string `json:"specifier"`

	// Parent is the requesting module, as an absolute URL or a native path.
	// Relative paths are made absolute against the working directory.
	Parent string `json:"parent"`

	// Mode is "auto", "cjs" or "esm". Empty means auto.
	Mode string `json:"mode,omitempty"`

	Conditions []string `json:"conditions,omitempty"`
	Extensions []string `json:"extensions,omitempty"`

	// Refresh skips the cache lookup but still stores the fresh result.
	Refresh bool `json:"-"`

	// Trace records the resolution steps. Traced requests bypass the cache.
	Trace *trace.Recorder `json:"-"`

	Logger *log.Logger `json:"-"`
}

// Validate checks that the request is complete and well-formed.
func (o *Options) Validate() error {
	err := validation.ValidateStruct(o,
		validation.Field(&o.Specifier, validation.Required),
		validation.Field(&o.Parent, validation.Required),
		validation.Field(&o.Mode, validation.In("", "auto", "cjs", "commonjs", "require", "esm", "module", "import")),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request")
	}
	return nil
}

// ParentURL returns Parent as an absolute URL.
func (o *Options) ParentURL() (*url.URL, error) {
	if fileurl.HasScheme(o.Parent) && !isDrivePath(o.Parent) {
		u, err := fileurl.Parse(o.Parent)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parent %q", o.Parent)
		}
		return u, nil
	}
	return filesystem.PathToURL(o.Parent)
}

// resolveOptions converts the request to engine options.
func (o *Options) resolveOptions() (resolve.Options, error) {
	mode, err := resolve.ParseMode(o.Mode)
	if err != nil {
		return resolve.Options{}, err
	}
	return resolve.Options{
		Mode:       mode,
		Conditions: o.Conditions,
		Extensions: o.Extensions,
		Trace:      o.Trace,
		Logger:     o.Logger,
	}, nil
}

// isDrivePath reports whether p is a Windows path such as "C:\src\a.js",
// which would otherwise parse as a URL with scheme "c".
func isDrivePath(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/') &&
		strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ", rune(p[0]))
}

// Result is the outcome of a successful resolution.
type Result struct {
	Resolution resolve.Resolution
	CacheHit   bool
	Duration   time.Duration
}

// Outcome pairs a request of a batch with its result or error.
type Outcome struct {
	Options Options
	Result  *Result
	Err     error
}
