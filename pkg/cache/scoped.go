package cache

import "strings"

// ScopedKeyer prefixes every key of an inner Keyer, so that several
// tenants or deployments can share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. Keys read "<prefix>/<inner key>"; a
// trailing slash on prefix is optional. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: strings.TrimRight(prefix, "/") + "/"}
}

// FitKey returns the prefixed fit key.
func (k *ScopedKeyer) FitKey(dataHash string, opts FitKeyOpts) string {
	return k.prefix + k.inner.FitKey(dataHash, opts)
}

// RenderKey returns the prefixed render key.
func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}
