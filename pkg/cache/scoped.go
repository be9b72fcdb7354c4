package cache

// ScopedKeyer wraps a Keyer with a prefix so several datasets can share one
// backend without colliding.
//
// Example usage:
//
//	// Separate namespaces for two dataset releases
//	v1 := NewScopedKeyer(NewDefaultKeyer(), "bgg-2024:")
//	v2 := NewScopedKeyer(NewDefaultKeyer(), "bgg-2025:")
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
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PayloadKey generates a prefixed payload key.
func (k *ScopedKeyer) PayloadKey(endpoint string, cluster int64, compressed bool) string {
	return k.prefix + k.inner.PayloadKey(endpoint, cluster, compressed)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}
