// Package strategy maps dependency coordinates to artifact paths.
//
// A [Strategy] is pure: the same repository and dependency always produce
// the same path, and no network access is performed. Resolution caching,
// local placement and the repository server all depend on this.
//
// [Maven] implements the standard repository layout:
//
//	{base}/{group/with/slashes}/{artifact}/{version}/{artifact}-{version}[-{classifier}].{ext}
package strategy

import (
	"strings"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// DefaultExtension is the artifact extension used when none is configured.
const DefaultExtension = "jar"

// Strategy computes the absolute location of a dependency's artifact within
// a repository.
type Strategy interface {
	PathTo(repo deps.Repository, d deps.Dependency) (string, error)
}

// Func adapts a plain function to [Strategy].
type Func func(repo deps.Repository, d deps.Dependency) (string, error)

// PathTo calls f.
func (f Func) PathTo(repo deps.Repository, d deps.Dependency) (string, error) { return f(repo, d) }

// Maven resolves paths using the Maven repository layout.
type Maven struct {
	// Extension is the artifact file extension without the dot (default "jar").
	Extension string
}

// PathTo returns the artifact URL under repo. Malformed coordinates fail
// with [errs.MalformedCoordinateError].
func (m Maven) PathTo(repo deps.Repository, d deps.Dependency) (string, error) {
	rel, err := RelativePath(d, m.Extension)
	if err != nil {
		return "", err
	}
	return repo.Base() + rel, nil
}

// RelativePath returns the repository-relative path of d's artifact with
// the given extension ("jar" when empty). The result always uses forward
// slashes.
func RelativePath(d deps.Dependency, ext string) (string, error) {
	if err := d.ID().Validate(); err != nil {
		return "", err
	}
	if ext == "" {
		ext = DefaultExtension
	}
	if err := errs.ValidateCoordinatePart(d.String(), "extension", ext); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.ReplaceAll(d.Group, ".", "/"))
	b.WriteByte('/')
	b.WriteString(d.Artifact)
	b.WriteByte('/')
	b.WriteString(d.Version)
	b.WriteByte('/')
	b.WriteString(FileName(d, ext))
	return b.String(), nil
}

// FileName returns "{artifact}-{version}[-{classifier}].{ext}". It does not
// validate its input.
func FileName(d deps.Dependency, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	name := d.Artifact + "-" + d.Version
	if d.Classifier != "" {
		name += "-" + d.Classifier
	}
	return name + "." + ext
}
