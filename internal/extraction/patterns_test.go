package extraction

import "testing"

// The pattern library is configuration; these checks keep additions honest.

func TestPatterns_LibraryInvariants(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Patterns {
		if p.Key == "" {
			t.Fatal("pattern with empty key")
		}
		if seen[p.Key] {
			t.Errorf("duplicate pattern key %q", p.Key)
		}
		seen[p.Key] = true

		if p.DefaultUnit == "" {
			t.Errorf("%s: default unit must never be empty", p.Key)
		}
		if _, ok := validCategories[p.Category]; !ok || p.Category == "" {
			t.Errorf("%s: category %q not in closed set", p.Key, p.Category)
		}
		if p.re == nil {
			t.Errorf("%s: pattern not compiled", p.Key)
		}
	}
}

func TestPatterns_SanityBandsWellFormed(t *testing.T) {
	for key, band := range SanityBands {
		if _, ok := LookupPattern(key); !ok {
			t.Errorf("sanity band for unknown pattern %q", key)
		}
		if band.Min >= band.Max {
			t.Errorf("%s: degenerate band [%v, %v]", key, band.Min, band.Max)
		}
	}
}

func TestLookupPattern(t *testing.T) {
	p, ok := LookupPattern("glucose")
	if !ok || p.Key != "glucose" {
		t.Fatalf("expected glucose entry, got %+v", p)
	}
	if _, ok := LookupPattern("no such analyte"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestDefaultBoundaries_ReferenceKnownPatterns(t *testing.T) {
	for key := range DefaultBoundaries {
		if _, ok := LookupPattern(key); !ok {
			t.Errorf("boundary table references unknown pattern %q", key)
		}
	}
}
