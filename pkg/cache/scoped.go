package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one backend without seeing each other's entries.
//
//	// Results for one project root only
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:9f2c:")
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

// ResolveKey generates a prefixed resolution key.
func (k *ScopedKeyer) ResolveKey(opts ResolveKeyOpts) string {
	return k.prefix + k.inner.ResolveKey(opts)
}

// TraceKey generates a prefixed trace key.
func (k *ScopedKeyer) TraceKey(resolveKey, format string) string {
	return k.prefix + k.inner.TraceKey(resolveKey, format)
}
