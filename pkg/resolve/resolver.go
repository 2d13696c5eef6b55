// Package resolve maps module specifiers to locations and formats the way
// Node.js does for require() and import.
//
// # Overview
//
// A resolution takes a specifier ("./util", "lodash/fp", "#internal",
// "node:fs") and the URL of the requesting module and produces a
// [Resolution]: the canonical URL of the module to load and the [Format] to
// load it as. Two front-ends share one engine:
//
//   - [ModeCommonJS] follows the require() algorithm: extension and index
//     probing, "main" fields, node_modules lookup
//   - [ModeModule] follows the ES module algorithm: exact URLs, no probing,
//     directory imports rejected
//
// Both honor package "exports" and "imports" maps, self-references, and
// symbolic links. Resolved file URLs are always fully dereferenced.
//
// # Sessions
//
// A [Session] owns a descriptor cache shared by every resolution it runs.
// Reuse one session for a batch of resolutions against a filesystem that
// does not change; start a new one when it might have.
//
//	s := resolve.NewSession(filesystem.OS{})
//	res, err := s.Resolve(ctx, "lodash", parentURL, resolve.Options{Mode: resolve.ModeModule})
//
// [Session.ResolveAsync] runs the same algorithm on a goroutine and returns
// a future. Probes go through the session's [filesystem.FileSystem]; wrap an
// asynchronous host with [filesystem.FromAsync].
package resolve

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/observability"
	"github.com/matzehuels/resolvekit/pkg/pkgjson"
	"github.com/matzehuels/resolvekit/pkg/specifier"
	"github.com/matzehuels/resolvekit/pkg/task"
	"github.com/matzehuels/resolvekit/pkg/trace"
)

// Mode selects the resolution front-end.
type Mode string

const (
	// ModeAuto picks ModeModule or ModeCommonJS from the format of the
	// requesting module.
	ModeAuto     Mode = "auto"
	ModeCommonJS Mode = "cjs"
	ModeModule   Mode = "esm"
)

// ParseMode parses a mode name. The empty string means [ModeAuto].
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "cjs", "commonjs", "require":
		return ModeCommonJS, nil
	case "esm", "module", "import":
		return ModeModule, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown mode %q (want auto, cjs or esm)", s)
}

var (
	// DefaultCommonJSConditions are the export conditions of require().
	DefaultCommonJSConditions = []string{"node", "require"}

	// DefaultModuleConditions are the export conditions of import.
	DefaultModuleConditions = []string{"node", "import"}

	// DefaultExtensions are probed, in order, by the CommonJS front-end.
	DefaultExtensions = []string{".js", ".json", ".node"}
)

// Options configures a single resolution. The zero value resolves in
// [ModeAuto] with the default conditions and extensions.
type Options struct {
	Mode Mode

	// Conditions replaces the default export conditions of the mode.
	// "default" always matches.
	Conditions []string

	// Extensions replaces the probed extensions (CommonJS only).
	Extensions []string

	// FormatPolicy decides ambiguous ".js" files. Defaults to CommonJSPolicy.
	FormatPolicy FormatPolicy

	// Trace, when set, receives every step of the resolution.
	Trace *trace.Recorder

	// Logger receives debug output. Defaults to the logger in the context.
	Logger *log.Logger
}

// WithDefaults returns a copy of o with unset fields filled in for mode.
func (o Options) WithDefaults(mode Mode) Options {
	o.Mode = mode
	if len(o.Conditions) == 0 {
		if mode == ModeModule {
			o.Conditions = DefaultModuleConditions
		} else {
			o.Conditions = DefaultCommonJSConditions
		}
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.FormatPolicy == nil {
		o.FormatPolicy = CommonJSPolicy
	}
	return o
}

// Validate checks user supplied conditions and extensions.
func (o Options) Validate() error {
	for _, c := range o.Conditions {
		if err := errors.ValidateCondition(c); err != nil {
			return err
		}
	}
	for _, e := range o.Extensions {
		if err := errors.ValidateExtension(e); err != nil {
			return err
		}
	}
	return nil
}

// Resolution is the outcome of resolving a specifier.
type Resolution struct {
	Format Format
	URL    *url.URL
}

// String formats the resolution as "url (format)".
func (r Resolution) String() string {
	if r.URL == nil {
		return "<unresolved>"
	}
	return fmt.Sprintf("%s (%s)", r.URL, r.Format)
}

func (r *Resolution) value() Resolution {
	if r == nil {
		return Resolution{}
	}
	return *r
}

func (r *Resolution) location() *url.URL {
	if r == nil {
		return nil
	}
	return r.URL
}

// Session resolves specifiers against one filesystem and shares a
// descriptor cache between resolutions. It is safe for concurrent use.
type Session struct {
	ID string

	fs          filesystem.FileSystem
	descriptors *pkgjson.Cache
}

// NewSession returns a session reading from fs.
func NewSession(fs filesystem.FileSystem) *Session {
	return &Session{
		ID:          uuid.NewString(),
		fs:          fs,
		descriptors: pkgjson.NewCache(),
	}
}

// FileSystem returns the filesystem the session reads from.
func (s *Session) FileSystem() filesystem.FileSystem {
	return s.fs
}

// Descriptors returns the session's descriptor cache.
func (s *Session) Descriptors() *pkgjson.Cache {
	return s.descriptors
}

// Resolve resolves spec as requested from the module at parent.
func (s *Session) Resolve(ctx context.Context, spec string, parent *url.URL, opts Options) (res Resolution, err error) {
	if err := errors.ValidateSpecifier(spec); err != nil {
		return Resolution{}, err
	}
	if parent == nil || parent.Scheme == "" {
		return Resolution{}, errors.New(errors.ErrCodeInvalidInput, "parent must be an absolute URL")
	}
	if err := opts.Validate(); err != nil {
		return Resolution{}, err
	}

	mode := opts.Mode
	if mode == "" || mode == ModeAuto {
		if mode, err = s.modeFor(ctx, parent, opts); err != nil {
			return Resolution{}, err
		}
	}
	r := s.newResolver(ctx, opts.WithDefaults(mode))

	start := time.Now()
	observability.Resolve().OnResolveStart(ctx, string(mode), spec)
	defer func() {
		observability.Resolve().OnResolveComplete(ctx, string(mode), spec, string(res.Format), time.Since(start), err)
		if err != nil {
			r.trace.Error(err)
			r.logger.Debug("resolution failed", "mode", mode, "specifier", spec, "parent", parent, "err", err)
			return
		}
		r.trace.Result(res.URL.String(), res.Format.String())
		r.logger.Debug("resolved", "mode", mode, "specifier", spec, "url", res.URL, "format", res.Format)
	}()

	if mode == ModeModule {
		return r.module(ctx, spec, parent)
	}
	return r.commonJS(ctx, spec, parent)
}

// ResolveAsync runs [Session.Resolve] on a new goroutine.
func (s *Session) ResolveAsync(ctx context.Context, spec string, parent *url.URL, opts Options) *task.Future[Resolution] {
	return task.Go(func() (Resolution, error) {
		return s.Resolve(ctx, spec, parent, opts)
	})
}

// FormatOf returns the format the file at u would be loaded as.
func (s *Session) FormatOf(ctx context.Context, u *url.URL, opts Options) (Format, error) {
	if !fileurl.IsFile(u) {
		if u.Scheme == specifier.BuiltinScheme {
			return FormatBuiltin, nil
		}
		return FormatUnknown, nil
	}
	r := s.newResolver(ctx, opts.WithDefaults(ModeModule))
	return r.fileFormat(ctx, u)
}

// modeFor picks the front-end matching the format of parent.
func (s *Session) modeFor(ctx context.Context, parent *url.URL, opts Options) (Mode, error) {
	format, err := s.FormatOf(ctx, parent, opts)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatModule:
		return ModeModule, nil
	case FormatUnknown:
		if !fileurl.IsFile(parent) {
			return ModeModule, nil
		}
	}
	return ModeCommonJS, nil
}

func (s *Session) newResolver(ctx context.Context, opts Options) *resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	return &resolver{
		fs:          s.fs,
		descriptors: s.descriptors,
		conditions:  slices.Clone(opts.Conditions),
		extensions:  slices.Clone(opts.Extensions),
		policy:      opts.FormatPolicy,
		trace:       opts.Trace,
		logger:      logger.With("session", s.ID[:8]),
	}
}

// Resolve resolves spec with a fresh session over fs.
func Resolve(ctx context.Context, fs filesystem.FileSystem, spec string, parent *url.URL, opts Options) (Resolution, error) {
	return NewSession(fs).Resolve(ctx, spec, parent, opts)
}

// resolver holds the state of one resolution.
type resolver struct {
	fs          filesystem.FileSystem
	descriptors *pkgjson.Cache
	conditions  []string
	extensions  []string
	policy      FormatPolicy
	trace       *trace.Recorder
	logger      *log.Logger
}
