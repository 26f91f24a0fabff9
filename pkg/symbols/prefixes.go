// Package symbols handles the display-name side of symbol resolution:
// stripping and reapplying the enrichment prefixes a symbolizer attaches
// to resolved names to record how they were bound, and demangling the
// Swift/C++ core name underneath them.
package symbols

import "strings"

// PrefixJump is the prefix machoshim.Shim attaches to a __stub-section
// trampoline's resolved name: the indirect symbol table gives the
// trampoline's real target, and the call site (a bl/b to the trampoline
// address) is exactly where NamingPass's demangling sees it.
const PrefixJump = "j_"

// EnrichmentPrefixes lists the known prefixes in stripping order: longer
// prefixes must appear before their shorter counterparts so stripping is
// stable regardless of which one matched.
var EnrichmentPrefixes = []string{
	PrefixJump,
}

// StripEnrichmentPrefixes removes every known prefix from name, returning
// the core symbol and the prefixes in the order they were removed.
func StripEnrichmentPrefixes(name string) (core string, prefixes []string) {
	core = name
trimLoop:
	for {
		for _, prefix := range EnrichmentPrefixes {
			if strings.HasPrefix(core, prefix) {
				prefixes = append(prefixes, prefix)
				core = strings.TrimPrefix(core, prefix)
				continue trimLoop
			}
		}
		break
	}
	return core, prefixes
}

// ApplyEnrichmentPrefixes re-applies prefixes, in the order
// StripEnrichmentPrefixes returned them, to base.
func ApplyEnrichmentPrefixes(prefixes []string, base string) string {
	out := base
	for i := len(prefixes) - 1; i >= 0; i-- {
		out = prefixes[i] + out
	}
	return out
}
