package disasm

import lru "github.com/hashicorp/golang-lru/v2"

// Symbolizer resolves an original (pre-slide) address to the name of an
// external function bound there — a PLT entry, a dynamic import stub —
// or reports that none exists. It is the only way the builder learns
// that a branch target leaves the binary entirely (§4.D "tail call").
type Symbolizer interface {
	FindExternalFunctionAt(originalAddr Addr) (name string, ok bool)
}

// cachedSymbolizer wraps a Symbolizer with a bounded LRU so repeated
// probes of the same address — which the fixpoint loop in driver.go
// produces whenever several call sites target the same external
// function — don't re-walk the underlying symbol table each time.
type cachedSymbolizer struct {
	inner Symbolizer
	cache *lru.Cache[Addr, symResult]
}

type symResult struct {
	name string
	ok   bool
}

// CacheSymbolizer bounds repeated FindExternalFunctionAt lookups with an
// LRU of the given size. size <= 0 disables caching and returns inner
// unwrapped.
func CacheSymbolizer(inner Symbolizer, size int) Symbolizer {
	if size <= 0 {
		return inner
	}
	c, err := lru.New[Addr, symResult](size)
	if err != nil {
		// Only returns an error for a non-positive size, already excluded above.
		return inner
	}
	return &cachedSymbolizer{inner: inner, cache: c}
}

func (c *cachedSymbolizer) FindExternalFunctionAt(addr Addr) (string, bool) {
	if r, ok := c.cache.Get(addr); ok {
		return r.name, r.ok
	}
	name, ok := c.inner.FindExternalFunctionAt(addr)
	c.cache.Add(addr, symResult{name: name, ok: ok})
	return name, ok
}
