package symbols

import (
	"regexp"
	"strings"

	"github.com/blacktop/go-macho/pkg/swift"
	"github.com/ianlancetaylor/demangle"
)

var cxxTokenPattern = regexp.MustCompile(`_{0,2}Z[A-Za-z0-9_]+`)

// demangleCore runs the Swift and C++ demanglers over a prefix-stripped
// symbol name.
func demangleCore(name string) string {
	out := swift.DemangleBlob(name)

	return cxxTokenPattern.ReplaceAllStringFunc(out, func(token string) string {
		// .cold.N functions from hot/cold splitting sometimes drop the
		// leading underscore, leaving a bare Z mangling.
		if token[0] == 'Z' {
			token = "_" + token
		}
		// Mach-O symbol names carry an extra leading underscore, so an
		// Itanium "_Z..." mangling appears as "__Z..." in the symbol table.
		mangled := token
		if strings.HasPrefix(token, "__Z") {
			mangled = token[1:]
		}
		if d := demangle.Filter(mangled, demangle.NoClones); d != mangled {
			return d
		}
		return token
	})
}

// Name demangles the Swift and C++ portions of a symbol, preserving any
// enrichment prefix a Symbolizer attached (the j_ stub prefix) around
// the mangled core.
func Name(name string) string {
	if name == "" {
		return name
	}
	core, prefixes := StripEnrichmentPrefixes(name)
	return ApplyEnrichmentPrefixes(prefixes, demangleCore(core))
}

// Display formats name for human-readable output: Name(name) when
// demangle is true, name unchanged otherwise. No separate target hint is
// ever appended: Name already demangles the core beneath any enrichment
// prefix, so when Name leaves a name unchanged its core does not demangle
// either.
func Display(name string, demangle bool) string {
	if !demangle || name == "" {
		return name
	}
	demangled := Name(name)
	if demangled != name {
		return demangled
	}
	core, prefixes := StripEnrichmentPrefixes(name)
	if len(prefixes) == 0 || core == "" {
		return name
	}
	coreDemangled := demangleCore(core)
	if coreDemangled == core {
		return name
	}
	return name + " (target: " + coreDemangled + ")"
}
