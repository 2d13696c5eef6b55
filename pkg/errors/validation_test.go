package errors

import (
	"strings"
	"testing"
)

func TestValidateSpecifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare", "lodash", false},
		{"relative", "./util", false},
		{"imports", "#internal/x", false},
		{"builtin", "node:fs", false},
		{"url", "https://example.com/", false},
		{"leading space", " odd name", false},

		{"empty", "", true},
		{"null byte", "foo\x00bar", true},
		{"too long", strings.Repeat("a", 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpecifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpecifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSpecifier) {
				t.Errorf("ValidateSpecifier(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidSpecifier)
			}
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "lodash", false},
		{"with dash", "my-package", false},
		{"with dot", "my.package", false},
		{"scoped", "@scope/package", false},

		{"empty", "", true},
		{"leading dot", ".mod", true},
		{"percent", "mod%2f", true},
		{"backslash", "foo\\bar", true},
		{"scope without name", "@scope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCondition(t *testing.T) {
	valid := []string{"node", "require", "import", "module-sync", "react-native", "types"}
	for _, c := range valid {
		if err := ValidateCondition(c); err != nil {
			t.Errorf("ValidateCondition(%q) = %v, want nil", c, err)
		}
	}

	invalid := []string{"", "has space", "./subpath", "*"}
	for _, c := range invalid {
		if err := ValidateCondition(c); err == nil {
			t.Errorf("ValidateCondition(%q) = nil, want error", c)
		}
	}
}

func TestValidateExtension(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{".js", false},
		{".json", false},
		{".d.ts", false},
		{"js", true},
		{".", true},
		{"", true},
		{"./js", true},
		{".j\ns", true},
	}

	for _, tt := range tests {
		err := ValidateExtension(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateExtension(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
