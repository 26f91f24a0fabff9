package disasm

import "sort"

// Region is a contiguous [Base, Base+len(Bytes)) range of section-backed
// bytes. Regions are disjoint and kept sorted by Base inside a RegionMap.
type Region struct {
	Base  Addr
	Bytes []byte
	Name  string
}

// End returns the address one past the last byte covered by r.
func (r *Region) End() Addr {
	return r.Base + Addr(len(r.Bytes))
}

// Contains reports whether addr falls within [Base, End()).
func (r *Region) Contains(addr Addr) bool {
	return r.Base <= addr && addr < r.End()
}

// ByteRange returns up to n bytes starting at addr, truncated at the
// region's end. It never panics on an out-of-range addr or n.
func (r *Region) ByteRange(addr Addr, n int) []byte {
	if addr < r.Base || addr >= r.End() {
		return nil
	}
	off := addr - r.Base
	end := off + Addr(n)
	if end > Addr(len(r.Bytes)) {
		end = Addr(len(r.Bytes))
	}
	return r.Bytes[off:end]
}

// RegionMap is an ordered set of disjoint memory regions backed by section
// bytes, plus an optional fallback region for point lookups outside any
// known section.
//
// Regions are inserted once, at module construction, from every section
// whose address and size are known (§4.A); insertion never happens after a
// lookup has occurred in the reference algorithm, so RegionMap does not
// attempt to keep itself sorted incrementally — Insert appends, and the
// first Lookup call sorts.
type RegionMap struct {
	regions  []*Region
	fallback *Region
	sorted   bool
}

// Insert adds a region backed by bytes starting at base.
func (m *RegionMap) Insert(base Addr, bytes []byte, name string) *Region {
	r := &Region{Base: base, Bytes: bytes, Name: name}
	m.regions = append(m.regions, r)
	m.sorted = false
	return r
}

// SetFallback installs the region returned by Lookup when no inserted
// region covers the requested address.
func (m *RegionMap) SetFallback(r *Region) {
	m.fallback = r
}

// Lookup returns the region covering addr, or the fallback region (which
// may be nil) if none does.
//
// Implements the binary search over base+extent described in §4.A: find
// the first region whose end is > addr, then confirm its base is <= addr.
func (m *RegionMap) Lookup(addr Addr) *Region {
	m.ensureSorted()
	i := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].End() > addr
	})
	if i < len(m.regions) && m.regions[i].Base <= addr {
		return m.regions[i]
	}
	return m.fallback
}

// Regions returns the regions in base order.
func (m *RegionMap) Regions() []*Region {
	m.ensureSorted()
	return m.regions
}

func (m *RegionMap) ensureSorted() {
	if m.sorted {
		return
	}
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].Base < m.regions[j].Base
	})
	m.sorted = true
}
