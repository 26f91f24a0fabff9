package disasm

import "testing"

func TestDecodeCache_MissBeforeUniquing(t *testing.T) {
	c := &DecodeCache{}
	region := &Region{Base: 0x1000, Bytes: fixtureBytes(0x1000, mov(), ret())}

	if _, _, ok := c.Lookup(region, 0x1000); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.AddTemp(region.ByteRange(0x1000, 1), fixtureInst{op: opMov})

	stats := c.Stats()
	if stats.Translated != 1 {
		t.Fatalf("translated = %d, want 1", stats.Translated)
	}

	// Still a miss: nothing has been uniqued into Cached yet.
	if _, _, ok := c.Lookup(region, 0x1000); ok {
		t.Fatalf("expected miss before a uniquing pass runs")
	}
}

// Scenario 5: uniquing promotes the most frequently seen raw-byte runs
// into Cached, and a subsequent Lookup of the same bytes is a hit.
func TestDecodeCache_UniquingPromotesFrequentRun(t *testing.T) {
	c := &DecodeCache{}
	region := &Region{Base: 0x1000, Bytes: make([]byte, 1)}
	region.Bytes[0] = opMov
	raw := region.ByteRange(0x1000, 1)

	for i := 0; i < uniqueThreshold+1; i++ {
		c.AddTemp(raw, fixtureInst{op: opMov})
	}

	stats := c.Stats()
	if stats.Cached == 0 {
		t.Fatalf("expected a uniquing pass to have populated Cached")
	}

	inst, size, ok := c.Lookup(region, 0x1000)
	if !ok {
		t.Fatalf("expected a cache hit after uniquing")
	}
	if size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}
	if inst.(fixtureInst).op != opMov {
		t.Fatalf("cached instruction mismatch: %+v", inst)
	}
}

func TestDecodeCache_CapacityBoundedAfterUniquing(t *testing.T) {
	c := &DecodeCache{}
	// Feed more distinct two-byte sequences than cacheCapacity; the
	// least frequent ones must be evicted during uniquing.
	for b := 0; b < cacheCapacity+500; b++ {
		raw := []byte{byte(b % 256), byte(b / 256)}
		c.AddTemp(raw, fixtureInst{op: opNop})
	}
	for i := 0; i < uniqueThreshold; i++ {
		c.AddTemp([]byte{0xff, 0xff}, fixtureInst{op: opMov})
	}

	stats := c.Stats()
	if stats.Cached > cacheCapacity {
		t.Fatalf("cached = %d, want <= %d", stats.Cached, cacheCapacity)
	}
}

func TestDecodeCache_Flush(t *testing.T) {
	c := &DecodeCache{}
	region := &Region{Base: 0x1000, Bytes: []byte{opMov}}
	raw := region.ByteRange(0x1000, 1)
	for i := 0; i < uniqueThreshold+1; i++ {
		c.AddTemp(raw, fixtureInst{op: opMov})
	}
	if c.Stats().Cached == 0 {
		t.Fatalf("expected cache to be populated before flush")
	}
	c.Flush()
	stats := c.Stats()
	if stats.Cached != 0 {
		t.Fatalf("cached = %d after flush, want 0", stats.Cached)
	}
	if _, _, ok := c.Lookup(region, 0x1000); ok {
		t.Fatalf("expected a miss immediately after flush")
	}
}
