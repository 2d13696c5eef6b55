package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSpecifier validates a raw specifier before resolution starts.
//
// The rules are intentionally minimal because file names may contain almost
// anything; only input that can never name a module is rejected:
//   - No empty specifiers
//   - No null bytes
//   - Maximum length of 4096 characters
func ValidateSpecifier(specifier string) error {
	if specifier == "" {
		return New(ErrCodeInvalidSpecifier, "specifier cannot be empty")
	}

	const maxSpecifierLength = 4096
	if len(specifier) > maxSpecifierLength {
		return New(ErrCodeInvalidSpecifier, "specifier too long (max %d characters)", maxSpecifierLength)
	}

	if strings.ContainsRune(specifier, '\x00') {
		return New(ErrCodeInvalidSpecifier, "specifier contains a null byte")
	}

	return nil
}

// ValidatePackageName validates the package-name part of a bare specifier
// using the ESM rules: a name may not start with "." and may not contain "\"
// or "%". Scoped names must have the form "@scope/name".
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidSpecifier, "package name cannot be empty")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidSpecifier, "package name %q cannot start with \".\"", name)
	}

	if strings.ContainsAny(name, "\\%") {
		return New(ErrCodeInvalidSpecifier, "package name %q contains invalid characters", name)
	}

	if strings.HasPrefix(name, "@") && !strings.Contains(name, "/") {
		return New(ErrCodeInvalidSpecifier, "scoped package name %q is missing a name segment", name)
	}

	return nil
}

// conditionRegex matches condition names accepted in exports/imports maps.
var conditionRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.:-]*$`)

// ValidateCondition validates a user supplied condition name.
func ValidateCondition(condition string) error {
	if !conditionRegex.MatchString(condition) {
		return New(ErrCodeInvalidInput, "invalid condition name: %q", condition)
	}
	return nil
}

// ValidateExtension validates a probed file extension such as ".js".
func ValidateExtension(ext string) error {
	if len(ext) < 2 || ext[0] != '.' {
		return New(ErrCodeInvalidInput, "extension must start with \".\": %q", ext)
	}
	for _, r := range ext {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "extension contains invalid characters: %q", ext)
		}
	}
	return nil
}
