package disasm

import (
	"bytes"
	"sort"
)

// uniqueThreshold and cacheCapacity are the reference implementation's
// 5000/2000 constants (§4.C): flush to uniquing once more than 5000
// temporary entries accumulate, and keep only the top 2000 most frequent raw-byte
// runs afterward.
const (
	uniqueThreshold = 5000
	cacheCapacity   = 2000
)

type cacheEntry struct {
	rawBytes []byte
	inst     Inst
}

// tempKey is a (raw_bytes, value_index) pair staged before a uniquing
// pass, matching MCObjectDisassembler's TempInstKey/TempInstValues split
// so that uniquing can sort keys without copying instruction payloads.
type tempKey struct {
	rawBytes []byte
	valueIdx int
}

// DecodeCache is a frequency-biased cache of raw-byte -> decoded
// instruction, keyed by the exact byte sequence that decodes to it. Real
// binaries repeat the same short byte sequences (prologues, epilogues,
// compiler idioms) constantly; the cache amortizes decoder cost across
// a binary by remembering only the most frequently seen sequences,
// bounded to cacheCapacity entries (§4.C "Rationale"/"Why frequency
// biased").
//
// DecodeCache assumes the decoder is deterministic and subtarget
// invariant: equal raw bytes always decode to an equal instruction for a
// given subtarget (§9 "Cache equality key"). It is not safe for
// concurrent use.
type DecodeCache struct {
	tempKeys       []tempKey
	tempValues     []Inst
	cached         []cacheEntry // sorted by rawBytes
	longestCached  int

	uniqued    int // cache-hit count, exposed via Stats()
	translated int // cache-miss-then-decode count, exposed via Stats()
}

// Stats reports the hit/miss counters promoted out of debug-only
// visibility (MCObjectDisassembler::Uniqued / ::Translated).
type DecodeCacheStats struct {
	Uniqued    int
	Translated int
	Cached     int
}

func (c *DecodeCache) Stats() DecodeCacheStats {
	return DecodeCacheStats{Uniqued: c.uniqued, Translated: c.translated, Cached: len(c.cached)}
}

// Lookup implements findCachedInstruction (§4.C): fetch up to
// longestCached bytes from r starting at addr, binary-search Cached for
// the greatest entry whose raw bytes are <= the fetched window, and
// treat it as a hit iff the window starts with that entry's raw bytes.
func (c *DecodeCache) Lookup(r *Region, addr Addr) (Inst, int, bool) {
	if c.longestCached == 0 {
		return nil, 0, false
	}
	window := r.ByteRange(addr, c.longestCached)
	if len(window) == 0 {
		return nil, 0, false
	}

	i := sort.Search(len(c.cached), func(i int) bool {
		return bytes.Compare(c.cached[i].rawBytes, window) > 0
	})
	if i == 0 {
		return nil, 0, false
	}
	candidate := c.cached[i-1]
	if bytes.HasPrefix(window, candidate.rawBytes) {
		c.uniqued++
		return candidate.inst, len(candidate.rawBytes), true
	}
	return nil, 0, false
}

// AddTemp records a freshly decoded instruction for future uniquing
// (addTempInstruction, §4.C "Insert"). rawBytes must be the exact bytes
// that decoded to inst.
func (c *DecodeCache) AddTemp(rawBytes []byte, inst Inst) {
	c.translated++
	c.tempKeys = append(c.tempKeys, tempKey{rawBytes: rawBytes, valueIdx: len(c.tempValues)})
	c.tempValues = append(c.tempValues, inst)
	if len(c.tempValues) > uniqueThreshold {
		c.unique()
	}
}

// unique implements uniqueTempInstructions (§4.C "Uniquing"): merge the
// existing cache back into the temp buffers as seeds, sort by raw bytes,
// count duplicate-key runs, keep the top cacheCapacity runs by
// descending count, and rebuild Cached from them.
func (c *DecodeCache) unique() {
	for _, e := range c.cached {
		c.tempKeys = append(c.tempKeys, tempKey{rawBytes: e.rawBytes, valueIdx: len(c.tempValues)})
		c.tempValues = append(c.tempValues, e.inst)
	}

	sort.SliceStable(c.tempKeys, func(i, j int) bool {
		return bytes.Compare(c.tempKeys[i].rawBytes, c.tempKeys[j].rawBytes) < 0
	})

	type run struct {
		keyIdx int
		count  int
	}
	var runs []run
	for i, k := range c.tempKeys {
		if len(runs) == 0 || !bytes.Equal(c.tempKeys[runs[len(runs)-1].keyIdx].rawBytes, k.rawBytes) {
			runs = append(runs, run{keyIdx: i})
		}
		runs[len(runs)-1].count++
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].count > runs[j].count })

	keep := cacheCapacity
	if len(runs) < keep {
		keep = len(runs)
	}
	newCached := make([]cacheEntry, 0, keep)
	longest := 0
	for i := 0; i < keep; i++ {
		k := c.tempKeys[runs[i].keyIdx]
		newCached = append(newCached, cacheEntry{rawBytes: k.rawBytes, inst: c.tempValues[k.valueIdx]})
		if len(k.rawBytes) > longest {
			longest = len(k.rawBytes)
		}
	}
	sort.Slice(newCached, func(i, j int) bool {
		return bytes.Compare(newCached[i].rawBytes, newCached[j].rawBytes) < 0
	})

	c.cached = newCached
	c.longestCached = longest
	c.tempKeys = c.tempKeys[:0]
	c.tempValues = c.tempValues[:0]
}

// Flush clears the cache entirely, forcing every subsequent lookup to
// miss until new temp entries accumulate and a uniquing pass runs. It is
// for callers that want to rebuild a module from scratch without a stale
// cache biasing the first pass (§3 Lifecycle: "may be flushed and
// rebuilt"); the module driver does not call it.
func (c *DecodeCache) Flush() {
	c.tempKeys = nil
	c.tempValues = nil
	c.cached = nil
	c.longestCached = 0
}
