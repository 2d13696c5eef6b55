package pkgjson

import (
	"context"
	"net/url"
	"reflect"
	"sync"
	"testing"

	"github.com/matzehuels/resolvekit/pkg/errors"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"name": "mod",
		"type": "module",
		"main": "./main.js",
		"version": "1.0.0",
		"exports": {
			".": {"import": "./main.mjs", "require": "./main.cjs", "default": "./main.js"},
			"./feature/*": "./src/*.js",
			"./private/*": null
		},
		"imports": {"#dep": ["./a.js", "./b.js"]}
	}`)

	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Name != "mod" || !d.HasName {
		t.Errorf("Name = %q, HasName = %v", d.Name, d.HasName)
	}
	if d.Type != TypeModule {
		t.Errorf("Type = %q", d.Type)
	}
	if d.Main != "./main.js" {
		t.Errorf("Main = %q", d.Main)
	}

	exports, ok := d.Exports.(Object)
	if !ok {
		t.Fatalf("Exports = %T, want Object", d.Exports)
	}
	if got, want := exports.Keys(), []string{".", "./feature/*", "./private/*"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Exports keys = %v, want %v", got, want)
	}

	dot, _ := exports.Get(".")
	conds, ok := dot.(Object)
	if !ok {
		t.Fatalf(`exports["."] = %T, want Object`, dot)
	}
	if got, want := conds.Keys(), []string{"import", "require", "default"}; !reflect.DeepEqual(got, want) {
		t.Errorf("condition order = %v, want %v", got, want)
	}

	if v, _ := exports.Get("./private/*"); v != (Null{}) {
		t.Errorf(`exports["./private/*"] = %#v, want Null`, v)
	}

	imports, ok := d.ImportsMap()
	if !ok {
		t.Fatal("ImportsMap() = false")
	}
	dep, _ := imports.Get("#dep")
	if want := (Array{String("./a.js"), String("./b.js")}); !reflect.DeepEqual(dep, want) {
		t.Errorf(`imports["#dep"] = %#v, want %#v`, dep, want)
	}
}

func TestParseWrongFieldTypes(t *testing.T) {
	d, err := Parse([]byte(`{"name": 42, "main": true, "type": null, "exports": 1}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.HasName || d.Main != "" || d.Type != "" {
		t.Errorf("wrong-typed fields should be ignored: %+v", d)
	}
	if _, ok := d.Exports.(Other); !ok {
		t.Errorf("Exports = %T, want Other", d.Exports)
	}
	if !d.HasExports() {
		t.Error("HasExports() = false for a non-null exports value")
	}
}

func TestParseNullExports(t *testing.T) {
	d, err := Parse([]byte(`{"exports": null}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.HasExports() {
		t.Error("HasExports() = true for null exports")
	}
}

func TestParseDuplicateKeys(t *testing.T) {
	d, err := Parse([]byte(`{"exports": {"./a": "./1.js", "./b": "./2.js", "./a": "./3.js"}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	obj := d.Exports.(Object)
	if got := obj.Keys(); !reflect.DeepEqual(got, []string{"./a", "./b"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, _ := obj.Get("./a"); v != String("./3.js") {
		t.Errorf(`Get("./a") = %#v, want last value`, v)
	}
}

func TestParseEscapes(t *testing.T) {
	d, err := Parse([]byte(`{"exports": {"./a": "./bé.js"}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	v, ok := d.Exports.(Object).Get("./a")
	if !ok || v != String("./bé.js") {
		t.Errorf(`Get("./a") = %#v, %v`, v, ok)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`{`,
		`not json`,
		`[]`,
		`"string"`,
		``,
	}
	for _, in := range tests {
		if _, err := Parse([]byte(in)); !errors.Is(err, errors.ErrCodeParse) {
			t.Errorf("Parse(%q) error = %v, want PARSE_ERROR", in, err)
		}
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	fs := filesystem.NewMemory(map[string]string{
		"package.json":        `{"name": "root"}`,
		"broken/package.json": `{`,
		"nodesc/index.js":     "",
		"node_modules/link*":  "../real",
		"real/package.json":   `{"name": "real"}`,
	})
	c := NewCache()

	dir := func(s string) *url.URL {
		u, _ := url.Parse(s)
		return u
	}

	d, err := c.Read(ctx, fs, dir("file:///"))
	if err != nil || d == nil || d.Name != "root" {
		t.Fatalf("Read(root) = %+v, %v", d, err)
	}

	d, err = c.Read(ctx, fs, dir("file:///nodesc/"))
	if err != nil || d != nil {
		t.Errorf("Read(nodesc) = %+v, %v; want nil, nil", d, err)
	}
	if ok, _ := c.Exists(ctx, fs, dir("file:///nodesc/")); ok {
		t.Error("Exists(nodesc) = true")
	}

	d, err = c.Read(ctx, fs, dir("file:///broken/"))
	if d != nil || !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("Read(broken) = %+v, %v; want PARSE_ERROR", d, err)
	}
	if ok, _ := c.Exists(ctx, fs, dir("file:///broken/")); !ok {
		t.Error("Exists(broken) = false")
	}

	d, err = c.Read(ctx, fs, dir("file:///node_modules/link/"))
	if err != nil || d == nil || d.Name != "real" {
		t.Errorf("Read(link) = %+v, %v", d, err)
	}

	if got := c.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}

	// Cached entries survive changes to the filesystem.
	fs.Add("nodesc/package.json", `{"name": "late"}`)
	if d, _ := c.Read(ctx, fs, dir("file:///nodesc/")); d != nil {
		t.Errorf("Read(nodesc) after add = %+v, want cached absence", d)
	}
}

func TestCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	fs := filesystem.NewMemory(map[string]string{"package.json": `{"name": "root"}`})
	c := NewCache()
	root, _ := url.Parse("file:///")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Read(ctx, fs, root)
			if err != nil || d == nil || d.Name != "root" {
				t.Errorf("Read() = %+v, %v", d, err)
			}
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := filesystem.NewMemory(map[string]string{"package.json": `{}`})
	c := NewCache()
	root, _ := url.Parse("file:///")

	if _, err := c.Read(ctx, fs, root); err == nil {
		t.Error("Read() with cancelled context expected error")
	}
	if c.Len() != 0 {
		t.Error("cancelled reads must not be cached")
	}
}
