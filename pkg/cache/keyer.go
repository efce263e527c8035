package cache

// Keyer derives cache keys for the values slimdeps persists.
type Keyer interface {
	// ResolveKey is the key for a resolved artifact location. The
	// repository list is part of the key: a different priority order can
	// resolve to a different repository.
	ResolveKey(coordinate, extension string, repositories []string) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResolveKey returns "resolve:<hash>".
func (DefaultKeyer) ResolveKey(coordinate, extension string, repositories []string) string {
	return hashKey("resolve", coordinate, extension, repositories)
}

// ScopedKeyer wraps a Keyer with a prefix so that several tools or users
// can share one backend without seeing each other's entries.
//
//	teamKeyer := NewScopedKeyer(NewDefaultKeyer(), "team-billing:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResolveKey generates a prefixed resolution key.
func (k *ScopedKeyer) ResolveKey(coordinate, extension string, repositories []string) string {
	return k.prefix + k.inner.ResolveKey(coordinate, extension, repositories)
}
