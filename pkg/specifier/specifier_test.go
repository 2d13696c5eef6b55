package specifier

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"./a.js", Relative},
		{"../a.js", Relative},
		{".", Relative},
		{"..", Relative},
		{"/abs.js", Absolute},
		{"#internal", Imports},
		{"node:fs", URL},
		{"https://example.com/x.js", URL},
		{"lodash", Bare},
		{"@scope/pkg", Bare},
		{".mod", Bare},
		{"fs", Bare},
	}

	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitPackage(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		subpath string
		ok      bool
	}{
		{"lodash", "lodash", "", true},
		{"lodash/fp", "lodash", "/fp", true},
		{"mod/", "mod", "/", true},
		{"mod/a/b.js", "mod", "/a/b.js", true},
		{"@scope/pkg", "@scope/pkg", "", true},
		{"@scope/pkg/sub", "@scope/pkg", "/sub", true},
		{"@scope/pkg/", "@scope/pkg", "/", true},
		{".mod/", ".mod", "/", true},
		{"@scope", "", "", false},
		{"@scope/", "", "", false},
		{"@/x", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		name, subpath, ok := SplitPackage(tt.in)
		if ok != tt.ok || name != tt.name || subpath != tt.subpath {
			t.Errorf("SplitPackage(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, name, subpath, ok, tt.name, tt.subpath, tt.ok)
		}
	}
}

func TestEncodeFragment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"./a.js", "./a.js"},
		{"a%b", "a%25b"},
		{" lead", "%20lead"},
		{"%%x", "%25%25x"},
		{"in side", "in side"},
		{"tab\there", "tab%09here"},
		{"line\nbreak\r", "line%0abreak%0d"},
		{"\x00x", "%00x"},
	}

	for _, tt := range tests {
		if got := EncodeFragment(tt.in); got != tt.want {
			t.Errorf("EncodeFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsBuiltin(t *testing.T) {
	tests := map[string]bool{
		"fs":          true,
		"node:fs":     true,
		"fs/promises": true,
		"util":        true,
		"util/util":   false,
		"node:test":   true,
		"test":        false,
		"node:sqlite": true,
		"lodash":      false,
		"node:nope":   false,
	}
	for in, want := range tests {
		if got := IsBuiltin(in); got != want {
			t.Errorf("IsBuiltin(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuiltinURL(t *testing.T) {
	if got := BuiltinURL("fs"); got != "node:fs" {
		t.Errorf("BuiltinURL(fs) = %q", got)
	}
	if got := BuiltinURL("node:fs"); got != "node:fs" {
		t.Errorf("BuiltinURL(node:fs) = %q", got)
	}
}

func TestHasEncodedSeparator(t *testing.T) {
	for in, want := range map[string]bool{
		"./a%2fmain.mjs": true,
		"./a%2Fmain.mjs": true,
		"./a%5cmain.mjs": true,
		"./a%20main.mjs": false,
	} {
		if got := HasEncodedSeparator(in); got != want {
			t.Errorf("HasEncodedSeparator(%q) = %v, want %v", in, got, want)
		}
	}
}
