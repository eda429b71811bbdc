package cache

// ScopedKeyer wraps a Keyer with a prefix so several engines can share one
// backend without colliding, e.g. a redis instance shared by deployments
// with different curve configurations.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "curves:"+cache.Hash(curveConfig)+":")
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

// ResultKey implements Keyer.
func (k *ScopedKeyer) ResultKey(adapter, mode string, params []byte) string {
	return k.prefix + k.inner.ResultKey(adapter, mode, params)
}

// ReportKey implements Keyer.
func (k *ScopedKeyer) ReportKey(values []float64, adapter, mode string, params []byte) string {
	return k.prefix + k.inner.ReportKey(values, adapter, mode, params)
}
