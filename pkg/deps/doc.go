// Package deps defines the dependency model shared by every stage of
// slimdeps: coordinates, dependencies with their transitive sets,
// repositories, mirrors and relocation rules.
//
// # Overview
//
// A manifest is parsed (see package [reader]) into a [Data] value holding
// an ordered repository list and a list of root dependencies. Every
// [Dependency] carries a transitive set, so the roots describe a complete
// dependency graph:
//
//	data, _ := reader.ReadFile("slimdeps.json")
//	for _, repo := range data.EffectiveRepositories() {
//	    fmt.Println(repo.URL)
//	}
//
// # Identity
//
// A dependency is identified by its [Coordinate]: group, artifact, version
// and optional classifier. Checksums and transitive sets do not take part in
// identity. Coordinate is comparable and is the key for resolution caches,
// visited sets and in-flight download de-duplication.
//
// # Immutability
//
// Values in this package are produced once by a reader and then shared
// read-only by the resolver, downloader and injector. Helpers such as
// [Dependency.Normalize] and [Unique] return copies.
//
// # Mirrors
//
// [Data.EffectiveRepositories] applies [Mirror] substitutions in place,
// keeping the configured priority order.
//
// [reader]: github.com/matzehuels/slimdeps/pkg/deps/reader
package deps
