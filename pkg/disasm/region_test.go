package disasm

import "testing"

func TestRegionMap_LookupFindsContainingRegion(t *testing.T) {
	var m RegionMap
	m.Insert(0x2000, make([]byte, 0x1000), "__data")
	m.Insert(0x1000, make([]byte, 0x1000), "__text")

	r := m.Lookup(0x1500)
	if r == nil || r.Name != "__text" {
		t.Fatalf("Lookup(0x1500) = %v, want __text", r)
	}
	r = m.Lookup(0x2500)
	if r == nil || r.Name != "__data" {
		t.Fatalf("Lookup(0x2500) = %v, want __data", r)
	}
}

func TestRegionMap_LookupOutsideAnyRegionUsesFallback(t *testing.T) {
	var m RegionMap
	m.Insert(0x1000, make([]byte, 0x10), "__text")
	fallback := &Region{Base: 0, Bytes: make([]byte, 0x10000), Name: "fallback"}
	m.SetFallback(fallback)

	if r := m.Lookup(0x5000); r != fallback {
		t.Fatalf("Lookup(0x5000) = %v, want fallback", r)
	}
	if r := m.Lookup(0x1008); r == fallback {
		t.Fatalf("Lookup(0x1008) incorrectly fell back")
	}
}

func TestRegionMap_NoFallbackReturnsNil(t *testing.T) {
	var m RegionMap
	m.Insert(0x1000, make([]byte, 0x10), "__text")
	if r := m.Lookup(0x9000); r != nil {
		t.Fatalf("Lookup(0x9000) = %v, want nil", r)
	}
}

func TestRegion_ByteRangeTruncatesAtEnd(t *testing.T) {
	r := &Region{Base: 0x1000, Bytes: []byte{1, 2, 3, 4}}
	got := r.ByteRange(0x1002, 10)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("ByteRange = %v, want [3 4]", got)
	}
	if got := r.ByteRange(0x2000, 4); got != nil {
		t.Fatalf("ByteRange outside region = %v, want nil", got)
	}
}
