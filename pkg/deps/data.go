package deps

import (
	"strings"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// Repository is a remote (or file://) source exposing artifacts under a
// predictable layout. The order of a repository list is its priority.
type Repository struct {
	URL string `json:"url" toml:"url" yaml:"url"`
}

// Base returns the repository URL with exactly one trailing slash.
func (r Repository) Base() string {
	return strings.TrimRight(r.URL, "/") + "/"
}

// String returns the repository URL.
func (r Repository) String() string { return r.URL }

// Mirror replaces every repository whose URL equals Original with Mirroring.
type Mirror struct {
	Mirroring string `json:"mirroring" toml:"mirroring" yaml:"mirroring"`
	Original  string `json:"original" toml:"original" yaml:"original"`
}

// RelocationRule moves classes and resources under Original to Relocated.
// Patterns are dotted package names (e.g. "com.google.gson"). Inclusions,
// when non-empty, restrict the rule to matching entries; Exclusions always
// win over Inclusions. Both use path.Match syntax over dotted entry names.
type RelocationRule struct {
	Original   string   `json:"original" toml:"original" yaml:"original"`
	Relocated  string   `json:"relocated" toml:"relocated" yaml:"relocated"`
	Exclusions []string `json:"exclusions,omitempty" toml:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	Inclusions []string `json:"inclusions,omitempty" toml:"inclusions,omitempty" yaml:"inclusions,omitempty"`
}

// Data is the parsed form of a dependency manifest. It is produced by a
// reader (see package reader) and only consumed by the core.
type Data struct {
	Mirrors      []Mirror         `json:"mirrors,omitempty" toml:"mirrors,omitempty" yaml:"mirrors,omitempty"`
	Repositories []Repository     `json:"repositories" toml:"repositories" yaml:"repositories"`
	Dependencies []Dependency     `json:"dependencies" toml:"dependencies" yaml:"dependencies"`
	Relocations  []RelocationRule `json:"relocations,omitempty" toml:"relocations,omitempty" yaml:"relocations,omitempty"`
}

// EffectiveRepositories returns the repository list after mirror
// substitution. Priority order is preserved and duplicate URLs created by
// mirroring are dropped (first occurrence wins).
func (d *Data) EffectiveRepositories() []Repository {
	mirrors := make(map[string]string, len(d.Mirrors))
	for _, m := range d.Mirrors {
		mirrors[normalizeURL(m.Original)] = m.Mirroring
	}

	seen := make(map[string]bool, len(d.Repositories))
	out := make([]Repository, 0, len(d.Repositories))
	for _, r := range d.Repositories {
		if m, ok := mirrors[normalizeURL(r.URL)]; ok {
			r = Repository{URL: m}
		}
		key := normalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Validate checks repositories, mirrors, relocation rules and every
// dependency coordinate in the graph.
func (d *Data) Validate() error {
	for _, r := range d.Repositories {
		if err := errs.ValidateRepositoryURL(r.URL); err != nil {
			return err
		}
	}
	for _, m := range d.Mirrors {
		if err := errs.ValidateRepositoryURL(m.Mirroring); err != nil {
			return err
		}
		if err := errs.ValidateRepositoryURL(m.Original); err != nil {
			return err
		}
	}
	for _, rule := range d.Relocations {
		if rule.Original == "" || rule.Relocated == "" {
			return errs.New(errs.ErrCodeInvalidManifest, "relocation rule needs original and relocated patterns")
		}
	}
	for _, dep := range d.Dependencies {
		if err := dep.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize de-duplicates the top-level dependency list and every
// transitive set by identity.
func (d *Data) Normalize() {
	d.Dependencies = Unique(d.Dependencies)
	for i := range d.Dependencies {
		d.Dependencies[i] = d.Dependencies[i].Normalize()
	}
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
