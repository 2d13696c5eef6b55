// Package pkg provides the core libraries for resolvekit module resolution.
//
// # Overview
//
// Resolvekit maps the specifier of a require() call or an import statement,
// together with the URL of the requesting module, to the URL and format of
// the module that Node.js would load. Both the CommonJS and the ES module
// algorithms are implemented, including package exports and imports maps,
// self-references, conditions, node_modules lookup and symbolic links.
//
// The pkg directory is organized into these areas:
//
//  1. [resolve] - The resolution engine (CommonJS, ES modules, formats)
//  2. Inputs - [fileurl], [specifier], [filesystem] and [pkgjson]
//  3. Support - [errors], [task], [trace] and [observability]
//  4. [pipeline] - Cached, batched resolution used by the CLI and the API
//  5. [cache] - File and Redis result caches
//
// # Architecture
//
// The typical data flow through resolvekit:
//
//	specifier + parent URL
//	         ↓
//	    [specifier] package (classify: relative, absolute, URL, bare, #import)
//	         ↓
//	    [resolve] package (CommonJS or ES module algorithm)
//	         ↓               ↘
//	    [filesystem] probes    [pkgjson] descriptors (cached per session)
//	         ↓
//	    URL + format (commonjs, module, json, builtin, ...)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/resolvekit/pkg/filesystem"
//	    "github.com/matzehuels/resolvekit/pkg/fileurl"
//	    "github.com/matzehuels/resolvekit/pkg/resolve"
//	)
//
//	session := resolve.NewSession(filesystem.OS{})
//	res, err := session.Resolve(ctx, "react", fileurl.FromPath("/app/src/index.js"), resolve.Options{
//	    Mode:       resolve.ModeModule,
//	    Conditions: []string{"browser"},
//	})
//	// res.URL    = file:///app/node_modules/react/index.js
//	// res.Format = commonjs
//
// # Main Packages
//
// [resolve] - Sessions, the CommonJS and ES module resolvers, format
// detection and symbolic link handling. A [resolve.Session] shares its
// package.json cache across concurrent resolutions.
//
// [filesystem] - The probe interface the resolver runs against. OS serves
// the host filesystem, Memory serves fixtures, and AsyncFileSystem adapts
// hosts whose probes complete later.
//
// [pkgjson] - Parsing of the package.json fields that affect resolution,
// keeping the key order of exports and imports maps.
//
// [pipeline] - Request validation, result caching and bounded concurrent
// batches. [pipeline.Runner.Trace] renders resolution traces as text, DOT or
// SVG.
//
// [cache] - Result caches keyed by request hash: FileCache for the CLI,
// RedisCache for servers, NullCache to disable caching.
//
// [resolve]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/resolve
// [fileurl]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/fileurl
// [specifier]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/specifier
// [filesystem]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/filesystem
// [pkgjson]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/pkgjson
// [errors]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/errors
// [task]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/task
// [trace]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/trace
// [observability]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/resolvekit/pkg/cache
package pkg
