package deps

import (
	"strings"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// Coordinate identifies a dependency: group, artifact, version and an
// optional classifier. Two dependencies with equal coordinates are the same
// dependency regardless of checksum or transitive set.
//
// Coordinate is comparable and is used as a map key for memoization,
// visited sets and in-flight download de-duplication.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
}

// String returns "group:artifact:version" or "group:artifact:version:classifier".
func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s
}

// Validate checks every coordinate segment and returns a
// [errs.MalformedCoordinateError] for the first invalid one.
func (c Coordinate) Validate() error {
	id := c.String()
	if err := errs.ValidateCoordinatePart(id, "group", c.Group); err != nil {
		return err
	}
	if err := errs.ValidateCoordinatePart(id, "artifact", c.Artifact); err != nil {
		return err
	}
	if err := errs.ValidateCoordinatePart(id, "version", c.Version); err != nil {
		return err
	}
	if c.Classifier != "" {
		if err := errs.ValidateCoordinatePart(id, "classifier", c.Classifier); err != nil {
			return err
		}
	}
	return nil
}

// ParseCoordinate parses "group:artifact:version[:classifier]".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, &errs.MalformedCoordinateError{
			Coordinate: s,
			Reason:     "expected group:artifact:version[:classifier]",
		}
	}
	c := Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Dependency is an immutable coordinate plus integrity data and the set of
// dependencies it requires.
//
// Dependencies are shared read-only between the resolver, downloader and
// injector; nothing mutates a Dependency after a reader produces it.
// Transitive has set semantics: readers de-duplicate it by identity and keep
// declaration order so that traversal is stable within a session.
type Dependency struct {
	Group      string       `json:"group" toml:"group" yaml:"group"`
	Artifact   string       `json:"artifact" toml:"artifact" yaml:"artifact"`
	Version    string       `json:"version" toml:"version" yaml:"version"`
	Classifier string       `json:"classifier,omitempty" toml:"classifier,omitempty" yaml:"classifier,omitempty"`
	Checksum   string       `json:"checksum,omitempty" toml:"checksum,omitempty" yaml:"checksum,omitempty"`
	Transitive []Dependency `json:"transitive,omitempty" toml:"transitive,omitempty" yaml:"transitive,omitempty"`
}

// ID returns the dependency's identity.
func (d Dependency) ID() Coordinate {
	return Coordinate{Group: d.Group, Artifact: d.Artifact, Version: d.Version, Classifier: d.Classifier}
}

// String returns the coordinate string.
func (d Dependency) String() string { return d.ID().String() }

// Validate checks the coordinate of d and, recursively, of its transitive set.
func (d Dependency) Validate() error {
	if err := d.ID().Validate(); err != nil {
		return err
	}
	for _, t := range d.Transitive {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize returns a copy of d whose transitive sets (at every level) are
// de-duplicated by identity, first occurrence winning.
func (d Dependency) Normalize() Dependency {
	out := d
	out.Checksum = strings.TrimSpace(d.Checksum)
	out.Transitive = Unique(d.Transitive)
	for i := range out.Transitive {
		out.Transitive[i] = out.Transitive[i].Normalize()
	}
	return out
}

// Unique returns a new slice containing the first dependency for each
// identity in list, in order. The input slice is not modified.
func Unique(list []Dependency) []Dependency {
	if len(list) == 0 {
		return nil
	}
	seen := make(map[Coordinate]bool, len(list))
	out := make([]Dependency, 0, len(list))
	for _, d := range list {
		id := d.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d)
	}
	return out
}
