package specifier

import "strings"

// BuiltinScheme is the URL scheme of runtime-provided modules.
const BuiltinScheme = "node"

// builtins lists modules that may be requested with or without the "node:"
// prefix.
var builtins = map[string]struct{}{
	"assert": {}, "assert/strict": {}, "async_hooks": {}, "buffer": {},
	"child_process": {}, "cluster": {}, "console": {}, "constants": {},
	"crypto": {}, "dgram": {}, "diagnostics_channel": {}, "dns": {},
	"dns/promises": {}, "domain": {}, "events": {}, "fs": {},
	"fs/promises": {}, "http": {}, "http2": {}, "https": {},
	"inspector": {}, "inspector/promises": {}, "module": {}, "net": {},
	"os": {}, "path": {}, "path/posix": {}, "path/win32": {},
	"perf_hooks": {}, "process": {}, "punycode": {}, "querystring": {},
	"readline": {}, "readline/promises": {}, "repl": {}, "stream": {},
	"stream/consumers": {}, "stream/promises": {}, "stream/web": {},
	"string_decoder": {}, "sys": {}, "timers": {}, "timers/promises": {},
	"tls": {}, "trace_events": {}, "tty": {}, "url": {}, "util": {},
	"util/types": {}, "v8": {}, "vm": {}, "wasi": {},
	"worker_threads": {}, "zlib": {},
}

// prefixOnly lists modules that only exist under the "node:" scheme.
var prefixOnly = map[string]struct{}{
	"sea": {}, "sqlite": {}, "test": {}, "test/reporters": {},
}

// IsBuiltin reports whether s names a runtime-provided module. Prefixed
// names ("node:fs") are checked against both lists; unprefixed names only
// against the modules that do not require the prefix.
func IsBuiltin(s string) bool {
	if name, ok := strings.CutPrefix(s, BuiltinScheme+":"); ok {
		if _, ok := builtins[name]; ok {
			return true
		}
		_, ok := prefixOnly[name]
		return ok
	}
	_, ok := builtins[s]
	return ok
}

// BuiltinURL returns the canonical "node:" form of a builtin module name.
func BuiltinURL(s string) string {
	if strings.HasPrefix(s, BuiltinScheme+":") {
		return s
	}
	return BuiltinScheme + ":" + s
}

// Builtins returns the unprefixed builtin module names.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	return out
}
