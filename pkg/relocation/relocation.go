// Package relocation rewrites the internal namespace of downloaded artifacts
// so that bundled libraries cannot collide with identically named code
// loaded from elsewhere.
//
// The injector treats relocation as an opaque capability: a [Relocator]
// reads an artifact at one path and produces a rewritten copy at another,
// leaving the input untouched. [ZipRelocator] is the implementation for jar
// archives; [Func] adapts a plain function.
//
// # Rules
//
// A [Rule] maps a dotted package prefix to a new prefix:
//
//	Rule{Original: "com.google.gson", Relocated: "me.example.libs.gson"}
//
// Inclusions, when present, restrict a rule to matching class names;
// exclusions always win. Patterns use [path.Match] syntax over dotted names,
// so "com.google.gson.internal.*" matches every class below that package.
package relocation

import (
	"path"
	"strings"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

// Relocator rewrites the artifact at input into output. Implementations must
// not modify input and must not leave a partial file at output on failure.
type Relocator interface {
	Relocate(input, output string) error
}

// Fingerprinter is implemented by relocators whose output depends on
// configuration. Fingerprint returns a short stable digest of that
// configuration; relocated output is stored per fingerprint.
type Fingerprinter interface {
	Fingerprint() string
}

// FingerprintOf returns r's fingerprint, or "" when r has none.
func FingerprintOf(r Relocator) string {
	if f, ok := r.(Fingerprinter); ok {
		return f.Fingerprint()
	}
	return ""
}

// Func adapts a function to the Relocator interface.
type Func func(input, output string) error

// Relocate calls f(input, output).
func (f Func) Relocate(input, output string) error { return f(input, output) }

// Rule is one namespace mapping.
type Rule struct {
	Original   string
	Relocated  string
	Exclusions []string
	Inclusions []string
}

// RulesFrom converts manifest relocation rules.
func RulesFrom(rules []deps.RelocationRule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{
			Original:   strings.Trim(r.Original, "."),
			Relocated:  strings.Trim(r.Relocated, "."),
			Exclusions: r.Exclusions,
			Inclusions: r.Inclusions,
		})
	}
	return out
}

// Applies reports whether the rule relocates the dotted name.
func (r Rule) Applies(dotted string) bool {
	if dotted != r.Original && !strings.HasPrefix(dotted, r.Original+".") {
		return false
	}
	if len(r.Inclusions) > 0 && !matchAny(r.Inclusions, dotted) {
		return false
	}
	return !matchAny(r.Exclusions, dotted)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// mapDotted returns the relocated form of a dotted name using the first
// applicable rule.
func mapDotted(rules []Rule, dotted string) (string, bool) {
	for _, r := range rules {
		if r.Applies(dotted) {
			return r.Relocated + strings.TrimPrefix(dotted, r.Original), true
		}
	}
	return dotted, false
}

// mapSlashed is mapDotted for internal (slash separated) paths. Only the
// package prefix changes, so resource file names keep their dots.
func mapSlashed(rules []Rule, slashed string) (string, bool) {
	dotted := strings.ReplaceAll(slashed, "/", ".")
	for _, r := range rules {
		if r.Applies(dotted) {
			return strings.ReplaceAll(r.Relocated, ".", "/") + slashed[len(r.Original):], true
		}
	}
	return slashed, false
}
