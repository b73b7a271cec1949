package rulepack

import (
	"strings"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("version = %d, want 1", p.Version)
	}
	if len(p.Fingerprint) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(p.Fingerprint))
	}
	if len(p.Citations) != len(p.CitationRes) {
		t.Fatalf("citations/compiled mismatch: %d vs %d", len(p.Citations), len(p.CitationRes))
	}
	for i, re := range p.CitationRes {
		if re == nil {
			t.Fatalf("nil compiled citation at %d", i)
		}
	}
	if p.Timeframe == nil {
		t.Fatalf("timeframe pattern not compiled")
	}
	if len(p.Definitions) != 3 {
		t.Fatalf("definition patterns = %d, want 3", len(p.Definitions))
	}
	if _, ok := p.Stopset["that"]; !ok {
		t.Fatalf("stopword 'that' missing")
	}
	found := false
	for _, kw := range p.ObligationKeywords {
		if kw == "shall" {
			found = true
		}
	}
	if !found {
		t.Fatalf("obligation keyword 'shall' missing")
	}
}

func TestCitationFamilies(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	cases := map[string]string{
		"WIC": "pursuant to WIC Section 14197.7 the plan",
		"CCR": "under 22 CCR 53851 providers",
		"HSC": "see hsc 1367.03 for details",
		"APL": "as described in APL 23-001",
		"CFR": "42 CFR Section 438.68 applies",
	}
	for fam, text := range cases {
		matched := false
		for i, c := range p.Citations {
			if c.Family != fam {
				continue
			}
			if p.CitationRes[i].MatchString(text) {
				matched = true
			}
		}
		if !matched {
			t.Errorf("family %s did not match %q", fam, text)
		}
	}
}

func TestTimeframePattern(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	for _, s := range []string{"30 days", "5 business days", "12 months", "30 calendar days", "24 hours"} {
		if !p.Timeframe.MatchString(s) {
			t.Errorf("timeframe did not match %q", s)
		}
	}
	if p.Timeframe.MatchString("several days") {
		t.Errorf("timeframe matched non-numeric expression")
	}
}

func TestGroupsKeepAuthoredOrder(t *testing.T) {
	// Topic detection takes the first matching group, so pack order is
	// load-bearing precedence, not cosmetics
	p, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	want := []string{"doula_services", "sanctions", "quality_improvement", "network_adequacy"}
	if len(p.Groups) != len(want) {
		t.Fatalf("want %d domain groups, got %d", len(want), len(p.Groups))
	}
	for i, g := range p.Groups {
		if g.Name != want[i] {
			t.Fatalf("group %d: want %q, got %q", i, want[i], g.Name)
		}
	}
	for _, g := range p.Groups {
		for _, kw := range g.Keywords {
			if kw != strings.ToLower(kw) {
				t.Fatalf("keyword %q not lowercased", kw)
			}
		}
	}
}

func TestExpandForm(t *testing.T) {
	re, err := ExpandForm(`All\s+Plan\s+Letter\s+{CODE}`, "22-031")
	if err != nil {
		t.Fatalf("ExpandForm: %v", err)
	}
	if !re.MatchString("per All Plan Letter 22-031, plans must") {
		t.Fatalf("expanded form did not match")
	}
	if re.MatchString("All Plan Letter 22-0312") {
		t.Fatalf("expanded form matched past word boundary")
	}
}

func TestCompileRejectsBadPack(t *testing.T) {
	if _, err := Compile([]byte(`{"version": 9}`)); err == nil {
		t.Fatalf("expected version error")
	}
	if _, err := Compile([]byte(`not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFingerprintStable(t *testing.T) {
	a, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	b, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprint not stable: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
}
