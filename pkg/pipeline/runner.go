package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/fileurl"
	"github.com/matzehuels/resolvekit/pkg/observability"
	"github.com/matzehuels/resolvekit/pkg/resolve"
	"github.com/matzehuels/resolvekit/pkg/trace"
)

// Runner resolves requests with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner keeps no per-request state. Multiple goroutines can safely use
// the same Runner with different options; they share the session's
// descriptor cache.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Session *resolve.Session
	Logger  *log.Logger

	// TTL is the lifetime of stored results. Zero means cache.TTLResolution.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, session *resolve.Session, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Session: session,
		Logger:  logger,
	}
}

// cachedResolution is the stored form of a resolution. Deps lists every
// probe, descriptor and link the resolution observed.
type cachedResolution struct {
	URL    string       `json:"url"`
	Format string       `json:"format"`
	Deps   []dependency `json:"deps"`
}

// Resolve runs one request. A cached result is used only if its file still
// exists and nothing the resolution observed has changed since: no probe
// flipped, no package.json was edited, created or removed, and no link was
// retargeted.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	parent, err := opts.ParentURL()
	if err != nil {
		return nil, err
	}
	ropts, err := opts.resolveOptions()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	useCache := opts.Trace == nil
	key := r.Keyer.ResolveKey(cache.ResolveKeyOpts{
		Mode:       string(ropts.Mode),
		Specifier:  opts.Specifier,
		Parent:     parent.String(),
		Conditions: opts.Conditions,
		Extensions: opts.Extensions,
	})

	if useCache && !opts.Refresh {
		if res, ok := r.lookup(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, "resolution")
			opts.Logger.Debug("cache hit", "specifier", opts.Specifier, "url", res.URL)
			return &Result{Resolution: res, CacheHit: true, Duration: time.Since(start)}, nil
		}
		observability.Cache().OnCacheMiss(ctx, "resolution")
	}

	if useCache {
		ropts.Trace = trace.New()
	}
	res, err := r.Session.Resolve(ctx, opts.Specifier, parent, ropts)
	if err != nil {
		return nil, err
	}

	if useCache {
		r.store(ctx, key, res, ropts.Trace.Events())
	}
	return &Result{Resolution: res, Duration: time.Since(start)}, nil
}

// ResolveAll runs requests concurrently, at most limit at a time. Outcomes
// are returned in request order; a failed request does not stop the others.
func (r *Runner) ResolveAll(ctx context.Context, requests []Options, limit int) []Outcome {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	out := make([]Outcome, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range requests {
		g.Go(func() error {
			res, err := r.Resolve(gctx, req)
			out[i] = Outcome{Options: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// lookup returns a cached resolution that is still valid.
func (r *Runner) lookup(ctx context.Context, key string) (resolve.Resolution, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return resolve.Resolution{}, false
	}
	if !hit {
		return resolve.Resolution{}, false
	}

	var entry cachedResolution
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return resolve.Resolution{}, false
	}
	u, err := url.Parse(entry.URL)
	if err != nil {
		_ = r.Cache.Delete(ctx, key)
		return resolve.Resolution{}, false
	}
	fs := r.Session.FileSystem()
	if fileurl.IsFile(u) {
		ok, err := fs.FileExists(ctx, u)
		if err != nil || !ok {
			r.Logger.Debug("cached resolution is stale", "url", u)
			_ = r.Cache.Delete(ctx, key)
			return resolve.Resolution{}, false
		}
	}
	if ok, err := unchanged(ctx, fs, entry.Deps); err != nil || !ok {
		r.Logger.Debug("cached resolution is stale", "url", u, "reason", "inputs changed")
		if err == nil {
			_ = r.Cache.Delete(ctx, key)
		}
		return resolve.Resolution{}, false
	}
	return resolve.Resolution{Format: resolve.Format(entry.Format), URL: u}, true
}

func (r *Runner) store(ctx context.Context, key string, res resolve.Resolution, events []trace.Event) {
	deps, err := dependencies(ctx, r.Session.FileSystem(), events)
	if err != nil {
		r.Logger.Debug("not caching resolution", "err", err)
		return
	}
	data, err := json.Marshal(cachedResolution{
		URL:    res.URL.String(),
		Format: string(res.Format),
		Deps:   deps,
	})
	if err != nil {
		return
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLResolution
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "resolution", len(data))
}

// Clear drops every cached entry when the backend supports it.
func (r *Runner) Clear(ctx context.Context) (int, error) {
	c, ok := r.Cache.(cache.Clearer)
	if !ok {
		return 0, fmt.Errorf("cache backend %T cannot be cleared", r.Cache)
	}
	return c.Clear(ctx)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
