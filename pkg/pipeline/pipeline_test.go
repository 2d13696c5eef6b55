package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/resolve"
)

// memoryCache is a map-backed cache.Cache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Close() error { return nil }

var fixture = map[string]string{
	"package.json":                  `{"name": "app", "type": "module"}`,
	"src/main.js":                   "",
	"src/util.js":                   "",
	"node_modules/mod/package.json": `{"exports": {"import": "./index.mjs", "require": "./index.cjs"}}`,
	"node_modules/mod/index.mjs":    "",
	"node_modules/mod/index.cjs":    "",
}

func newTestRunner(c cache.Cache) (*Runner, *filesystem.Memory) {
	fs := filesystem.NewMemory(fixture)
	return NewRunner(c, nil, resolve.NewSession(fs), nil), fs
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", Options{Specifier: "mod", Parent: "file:///main.js"}, false},
		{"valid mode", Options{Specifier: "mod", Parent: "file:///main.js", Mode: "esm"}, false},
		{"missing specifier", Options{Parent: "file:///main.js"}, true},
		{"missing parent", Options{Specifier: "mod"}, true},
		{"bad mode", Options{Specifier: "mod", Parent: "file:///main.js", Mode: "amd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() error code = %s, want INVALID_INPUT", errors.GetCode(err))
			}
		})
	}
}

func TestParentURL(t *testing.T) {
	o := Options{Parent: "https://cdn.example/a.js"}
	u, err := o.ParentURL()
	if err != nil || u.String() != "https://cdn.example/a.js" {
		t.Errorf("ParentURL() = %v, %v", u, err)
	}

	o = Options{Parent: "/abs/main.js"}
	u, err = o.ParentURL()
	if err != nil {
		t.Fatalf("ParentURL() error = %v", err)
	}
	if u.Scheme != "file" || !strings.HasSuffix(u.Path, "/abs/main.js") {
		t.Errorf("ParentURL() = %s", u)
	}

	if !isDrivePath(`C:\src\a.js`) || isDrivePath("file:///a.js") {
		t.Error("isDrivePath misclassified")
	}
}

func TestRunnerCaches(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache()
	r, _ := newTestRunner(c)
	opts := Options{Specifier: "mod", Parent: "file:///src/main.js"}

	first, err := r.Resolve(ctx, opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first resolution should miss")
	}
	if got := first.Resolution.URL.String(); got != "file:///node_modules/mod/index.mjs" {
		t.Errorf("url = %s", got)
	}

	second, err := r.Resolve(ctx, opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second resolution should hit")
	}
	if second.Resolution.String() != first.Resolution.String() {
		t.Errorf("cached = %s, want %s", second.Resolution, first.Resolution)
	}

	// Different mode means a different key.
	third, err := r.Resolve(ctx, Options{Specifier: "mod", Parent: "file:///src/main.js", Mode: "cjs"})
	if err != nil {
		t.Fatalf("Resolve(cjs) error = %v", err)
	}
	if third.CacheHit || third.Resolution.URL.String() != "file:///node_modules/mod/index.cjs" {
		t.Errorf("cjs result = %+v", third)
	}

	refreshed, err := r.Resolve(ctx, Options{Specifier: "mod", Parent: "file:///src/main.js", Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestRunnerRevalidatesHits(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache()
	r, _ := newTestRunner(c)
	opts := Options{Specifier: "./util.js", Parent: "file:///src/main.js"}

	if _, err := r.Resolve(ctx, opts); err != nil {
		t.Fatal(err)
	}

	// Point the session at a tree where the file is gone.
	r.Session = resolve.NewSession(filesystem.NewMemory(map[string]string{"src/main.js": ""}))
	res, err := r.Resolve(ctx, opts)
	if err == nil {
		t.Fatalf("Resolve() = %v, want not found after file removal", res.Resolution)
	}
	if !errors.Is(err, errors.ErrCodeModuleNotFound) {
		t.Errorf("error = %v, want MODULE_NOT_FOUND", err)
	}
	if len(c.data) != 0 {
		t.Errorf("stale entry not evicted: %d entries", len(c.data))
	}
}

func TestRunnerInvalidatesOnInputChange(t *testing.T) {
	tree := map[string]string{
		"app/package.json":               `{"type": "module"}`,
		"app/main.js":                    "",
		"node_modules/dual/package.json": `{"exports": {"import": "./main.mjs", "default": "./main.js"}}`,
		"node_modules/dual/main.mjs":     "",
		"node_modules/dual/main.js":      "",
		"node_modules/dual/alt.mjs":      "",
	}

	tests := []struct {
		name       string
		edit       func(m *filesystem.Memory)
		wantHit    bool
		wantURL    string
		wantFormat resolve.Format
	}{
		{
			name:       "unchanged",
			edit:       func(*filesystem.Memory) {},
			wantHit:    true,
			wantURL:    "file:///node_modules/dual/main.mjs",
			wantFormat: resolve.FormatModule,
		},
		{
			name: "parent scope type",
			edit: func(m *filesystem.Memory) {
				m.Add("app/package.json", `{"type": "commonjs"}`)
			},
			wantURL:    "file:///node_modules/dual/main.js",
			wantFormat: resolve.FormatCommonJS,
		},
		{
			name: "package exports",
			edit: func(m *filesystem.Memory) {
				m.Add("node_modules/dual/package.json", `{"exports": {"import": "./alt.mjs", "default": "./main.js"}}`)
			},
			wantURL:    "file:///node_modules/dual/alt.mjs",
			wantFormat: resolve.FormatModule,
		},
		{
			name: "nearer package",
			edit: func(m *filesystem.Memory) {
				m.Add("app/node_modules/dual/package.json", `{"exports": "./near.mjs"}`)
				m.Add("app/node_modules/dual/near.mjs", "")
			},
			wantURL:    "file:///app/node_modules/dual/near.mjs",
			wantFormat: resolve.FormatModule,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := newMemoryCache()
			fs := filesystem.NewMemory(tree)
			opts := Options{Specifier: "dual", Parent: "file:///app/main.js"}

			first, err := NewRunner(c, nil, resolve.NewSession(fs), nil).Resolve(ctx, opts)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := first.Resolution.URL.String(); got != "file:///node_modules/dual/main.mjs" {
				t.Fatalf("first url = %s", got)
			}

			tt.edit(fs)

			// A new session stands in for a later process sharing the cache.
			r := NewRunner(c, nil, resolve.NewSession(fs), nil)
			second, err := r.Resolve(ctx, opts)
			if err != nil {
				t.Fatalf("Resolve() after edit error = %v", err)
			}
			if second.CacheHit != tt.wantHit {
				t.Errorf("CacheHit = %v, want %v", second.CacheHit, tt.wantHit)
			}
			if got := second.Resolution.URL.String(); got != tt.wantURL {
				t.Errorf("url = %s, want %s", got, tt.wantURL)
			}
			if second.Resolution.Format != tt.wantFormat {
				t.Errorf("format = %s, want %s", second.Resolution.Format, tt.wantFormat)
			}

			third, err := r.Resolve(ctx, opts)
			if err != nil {
				t.Fatal(err)
			}
			if !third.CacheHit || third.Resolution.URL.String() != tt.wantURL {
				t.Errorf("re-cached result = %s (hit=%v), want %s", third.Resolution, third.CacheHit, tt.wantURL)
			}
		})
	}
}

func TestRunnerDoesNotCacheErrors(t *testing.T) {
	c := newMemoryCache()
	r, _ := newTestRunner(c)
	if _, err := r.Resolve(context.Background(), Options{Specifier: "missing", Parent: "file:///src/main.js"}); err == nil {
		t.Fatal("expected error")
	}
	if c.sets != 0 {
		t.Errorf("errors must not be cached, got %d sets", c.sets)
	}
}

func TestResolveAll(t *testing.T) {
	r, _ := newTestRunner(nil)
	reqs := []Options{
		{Specifier: "mod", Parent: "file:///src/main.js"},
		{Specifier: "missing", Parent: "file:///src/main.js"},
		{Specifier: "./util.js", Parent: "file:///src/main.js"},
		{Specifier: "fs", Parent: "file:///src/main.js", Mode: "cjs"},
	}

	out := r.ResolveAll(context.Background(), reqs, 2)
	if len(out) != len(reqs) {
		t.Fatalf("got %d outcomes, want %d", len(out), len(reqs))
	}
	for i, o := range out {
		if o.Options.Specifier != reqs[i].Specifier {
			t.Errorf("outcome %d is for %q, want %q", i, o.Options.Specifier, reqs[i].Specifier)
		}
	}
	if out[1].Err == nil {
		t.Error("missing should fail")
	}
	for _, i := range []int{0, 2, 3} {
		if out[i].Err != nil {
			t.Errorf("%s: %v", reqs[i].Specifier, out[i].Err)
		}
	}
	if out[3].Result.Resolution.Format != resolve.FormatBuiltin {
		t.Errorf("fs format = %s", out[3].Result.Resolution.Format)
	}
}

func TestTraceFormats(t *testing.T) {
	c := newMemoryCache()
	r, _ := newTestRunner(c)
	opts := Options{Specifier: "mod", Parent: "file:///src/main.js"}

	text, err := r.Trace(context.Background(), opts, "text")
	if err != nil {
		t.Fatalf("Trace(text) error = %v", err)
	}
	if text.Err != nil || text.Resolution == nil {
		t.Fatalf("Trace(text) resolution = %v, err %v", text.Resolution, text.Err)
	}
	if !strings.Contains(string(text.Artifact), "PACKAGE_RESOLVE mod") {
		t.Errorf("text trace missing state:\n%s", text.Artifact)
	}

	dot, err := r.Trace(context.Background(), opts, "DOT")
	if err != nil {
		t.Fatalf("Trace(dot) error = %v", err)
	}
	if !strings.HasPrefix(string(dot.Artifact), "digraph trace {") {
		t.Errorf("dot trace = %s", dot.Artifact)
	}
	if c.sets != 0 {
		t.Error("traced resolutions must bypass the result cache")
	}

	failed, err := r.Trace(context.Background(), Options{Specifier: "missing", Parent: "file:///src/main.js"}, "text")
	if err != nil {
		t.Fatalf("Trace(missing) error = %v", err)
	}
	if failed.Err == nil || len(failed.Events) == 0 {
		t.Errorf("failed trace = %+v", failed)
	}

	if _, err := r.Trace(context.Background(), opts, "png"); err == nil {
		t.Error("Trace(png) should fail")
	}
}
