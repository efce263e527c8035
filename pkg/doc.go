// Package pkg provides the libraries behind slimdeps, a runtime dependency
// loader.
//
// # Overview
//
// Slimdeps takes a dependency graph declared in a manifest and makes every
// artifact in it available to a loader. For each dependency it finds the
// first repository that serves it, downloads the artifact into a local store
// (verifying length, checksum and, optionally, a PGP signature), optionally
// relocates its packages, and hands the stored file to an injectable such as
// a class path.
//
// # Architecture
//
//	Manifest (JSON / TOML / YAML)
//	         ↓
//	    [deps/reader] package (parse, validate, de-duplicate)
//	         ↓
//	    [resolver] package (first repository that has the artifact)
//	         ↓
//	    [download] package (atomic, verified write into the store)
//	         ↓
//	    [relocation] package (optional namespace rewrite)
//	         ↓
//	    [inject] package (depth-first injection, diamonds visited once)
//
// # Quick Start
//
//	data, _ := reader.ReadFile("slimdeps.json")
//
//	tr := transport.Default(nil)
//	res := resolver.New(data.EffectiveRepositories(), tr, resolver.Options{})
//	store, _ := download.NewStore("/var/cache/slimdeps/store")
//	dl := download.New(res, tr, store, download.Options{FetchChecksums: true})
//
//	cp := &inject.Classpath{}
//	err := inject.New(dl, inject.Options{Workers: 4}).Inject(ctx, cp, data.Dependencies)
//
// # Main Packages
//
// [deps] - Coordinates, dependencies, repositories, mirrors and relocation
// rules. [deps/reader] parses manifests.
//
// [strategy] - Repository path layouts. Maven's layout is the default.
//
// [transport] - Probe and stream artifacts over http, https and file URLs.
//
// [resolver] - Memoized, single-flight resolution with an optional
// persistent [cache].
//
// [download] - The artifact [download.Store] and the verifying downloader.
//
// [relocation] - Archive relocation for jar files.
//
// [inject] - Graph traversal and the [inject.Injectable] targets.
//
// # Supporting Packages
//
// [errors] - Coded and typed errors shared by every stage.
//
// [config] - TOML configuration and environment overrides.
//
// [observability] - Hooks for resolve, download, relocate and inject events.
//
// [server] - Serves a store (or any directory) as a repository.
//
// [graph] - DOT, SVG and JSON export of a dependency graph.
//
// [httputil] - Retry with exponential backoff.
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/deps
// [deps/reader]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/deps/reader
// [strategy]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/strategy
// [transport]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/transport
// [resolver]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/resolver
// [cache]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/cache
// [download]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/download
// [download.Store]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/download#Store
// [relocation]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/relocation
// [inject]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/inject
// [inject.Injectable]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/inject#Injectable
// [errors]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/errors
// [config]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/observability
// [server]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/server
// [graph]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/graph
// [httputil]: https://pkg.go.dev/github.com/matzehuels/slimdeps/pkg/httputil
package pkg
