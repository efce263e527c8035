package deps

// WalkFunc is called for each dependency reached by [Walk]. Parent is nil
// for roots. Returning [SkipChildren] prunes the subtree below d; any other
// non-nil error stops the walk.
type WalkFunc func(d Dependency, parent *Dependency, depth int) error

// SkipChildren is returned by a WalkFunc to skip the transitive set of the
// current dependency.
var SkipChildren = skipChildren{}

type skipChildren struct{}

func (skipChildren) Error() string { return "skip children" }

// Walk visits the graph rooted at roots depth-first in declaration order.
// Each identity is visited once, so diamonds and cycles are safe.
func Walk(roots []Dependency, fn WalkFunc) error {
	visited := make(map[Coordinate]bool)
	var walk func(d Dependency, parent *Dependency, depth int) error
	walk = func(d Dependency, parent *Dependency, depth int) error {
		id := d.ID()
		if visited[id] {
			return nil
		}
		visited[id] = true

		if err := fn(d, parent, depth); err != nil {
			if err == SkipChildren {
				return nil
			}
			return err
		}
		for _, child := range d.Transitive {
			if err := walk(child, &d, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := walk(root, nil, 0); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns every distinct dependency in the graph in depth-first
// pre-order.
func Flatten(roots []Dependency) []Dependency {
	var out []Dependency
	_ = Walk(roots, func(d Dependency, _ *Dependency, _ int) error {
		out = append(out, d)
		return nil
	})
	return out
}

// Edge is a directed parent -> child relation between two coordinates.
type Edge struct {
	From Coordinate
	To   Coordinate
}

// Edges returns every distinct edge in the graph. Edges into an already
// visited dependency are still reported, so diamonds produce two edges.
func Edges(roots []Dependency) []Edge {
	seen := make(map[Edge]bool)
	var out []Edge
	_ = Walk(roots, func(d Dependency, _ *Dependency, _ int) error {
		for _, child := range d.Transitive {
			e := Edge{From: d.ID(), To: child.ID()}
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
		return nil
	})
	return out
}
