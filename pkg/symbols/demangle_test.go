package symbols

import "testing"

func TestName(t *testing.T) {
	tcs := map[string]string{
		"_ZN3Foo3barEv":      "Foo::bar()",
		"__ZdlPv":            "operator delete(void*)",
		"j__ZN3Foo3barEv":    "j_Foo::bar()",
		"j___ZN3Foo3barEv+4": "j_Foo::bar()+4",
		"_main":              "_main",
	}

	for in, want := range tcs {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("_ZN3Foo3barEv", false); got != "_ZN3Foo3barEv" {
		t.Errorf("Display with demangle=false = %q, want unchanged", got)
	}
	if got := Display("_ZN3Foo3barEv", true); got != "Foo::bar()" {
		t.Errorf("Display with demangle=true = %q, want Foo::bar()", got)
	}
	if got := Display("_main", true); got != "_main" {
		t.Errorf("Display on an unmangled name = %q, want unchanged", got)
	}
}

func TestStripAndApplyEnrichmentPrefixes(t *testing.T) {
	core, prefixes := StripEnrichmentPrefixes("j_foo")
	if core != "foo" {
		t.Fatalf("core = %q, want foo", core)
	}
	if got := ApplyEnrichmentPrefixes(prefixes, core); got != "j_foo" {
		t.Fatalf("round trip = %q, want j_foo", got)
	}
}
