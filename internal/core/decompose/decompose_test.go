package decompose

import (
	"reflect"
	"strings"
	"testing"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

func mustPack(t *testing.T) *rulepack.Pack {
	t.Helper()
	p, err := rulepack.Load()
	if err != nil {
		t.Fatalf("rulepack.Load(): %v", err)
	}
	return p
}

func TestDecomposeEmptyDocument(t *testing.T) {
	d := New(mustPack(t))
	if units := d.Decompose("   \n ", "APL 23-001"); len(units) != 0 {
		t.Fatalf("expected zero units for blank document, got %d", len(units))
	}
}

func TestDecomposeSyntheticMainUnit(t *testing.T) {
	d := New(mustPack(t))
	text := "The Plan must submit its network certification to DHCS within 30 calendar days. " +
		"See WIC Section 14197.7 and APL 22-031 for requirements."
	units := d.Decompose(text, "APL 23-001")
	if len(units) != 1 {
		t.Fatalf("expected one synthetic unit, got %d", len(units))
	}
	u := units[0]
	if u.SectionLabel != "Main" {
		t.Errorf("section label = %q, want Main", u.SectionLabel)
	}
	if u.ParentCode != "APL 23-001" {
		t.Errorf("parent code = %q", u.ParentCode)
	}
	if u.Text == "" {
		t.Errorf("unit text must never be empty")
	}
	wantRefs := []string{"APL 22-031", "WIC 14197.7"}
	if !reflect.DeepEqual(u.References, wantRefs) {
		t.Errorf("references = %v, want %v", u.References, wantRefs)
	}
	if len(u.Obligations) != 1 || !strings.Contains(u.Obligations[0], "must submit") {
		t.Errorf("obligations = %v", u.Obligations)
	}
	if len(u.Timeframes) != 1 || u.Timeframes[0] != "30 calendar days" {
		t.Errorf("timeframes = %v", u.Timeframes)
	}
}

func TestDecomposeTruncatesLongBody(t *testing.T) {
	p := mustPack(t)
	d := New(p)
	text := "must comply. " + strings.Repeat("x", p.Caps.UnitText*2)
	units := d.Decompose(text, "APL 24-010")
	if len(units) != 1 {
		t.Fatalf("expected one unit")
	}
	if len(units[0].Text) > p.Caps.UnitText {
		t.Fatalf("unit text length %d exceeds cap %d", len(units[0].Text), p.Caps.UnitText)
	}
}

func TestDecomposeCriteriaOrderAndLabels(t *testing.T) {
	d := New(mustPack(t))
	criteria := []Criterion{
		{ID: "42", Code: "1", Text: "Does the Plan maintain records for 5 years?"},
		{Code: "", Text: "The Plan shall notify members within 10 business days."},
		{Code: "3", Text: "   "},
	}
	units := d.DecomposeCriteria(criteria, "APL 23-012")
	if len(units) != 2 {
		t.Fatalf("expected 2 units (blank criterion skipped), got %d", len(units))
	}
	if units[0].ID != "42" || units[0].SectionLabel != "1" {
		t.Errorf("first unit id/label = %q/%q", units[0].ID, units[0].SectionLabel)
	}
	if units[1].SectionLabel != "Section_2" {
		t.Errorf("synthetic label = %q, want Section_2", units[1].SectionLabel)
	}
	if units[1].ID != "APL 23-012#Section_2" {
		t.Errorf("synthetic id = %q", units[1].ID)
	}
	if len(units[1].Timeframes) != 1 || units[1].Timeframes[0] != "10 business days" {
		t.Errorf("timeframes = %v", units[1].Timeframes)
	}
}

func TestExtractObligationsBoundsAndCap(t *testing.T) {
	p := mustPack(t)
	d := New(p)

	// Too short after trimming, no keyword, and in-bounds carriers
	text := "must go. This sentence has no trigger words at all, none. " +
		strings.Repeat("The Plan shall retain documentation of provider training records. ", 15)
	got := d.ExtractObligations(text)
	if len(got) != p.Caps.Obligations {
		t.Fatalf("obligations = %d, want cap %d", len(got), p.Caps.Obligations)
	}
	for _, o := range got {
		if len(o) <= p.Caps.MinObligationLen || len(o) >= p.Caps.MaxObligationLen {
			t.Errorf("obligation length out of bounds: %q", o)
		}
	}
}

func TestExtractDefinitions(t *testing.T) {
	d := New(mustPack(t))
	text := `"Network Provider" means a provider under contract with the Plan. ` +
		`"Timely Access" is defined as access within state standards. ` +
		`Subcontractor means an entity performing delegated functions.`
	defs := d.ExtractDefinitions(text)
	if len(defs) != 3 {
		t.Fatalf("definitions = %v, want 3 entries", defs)
	}
	if !strings.Contains(defs["Network Provider"], "under contract") {
		t.Errorf("Network Provider definition = %q", defs["Network Provider"])
	}
	if _, ok := defs["Subcontractor"]; !ok {
		t.Errorf("capitalized-phrase clause missed: %v", defs)
	}
}

func TestExtractReferencesDeterministic(t *testing.T) {
	d := New(mustPack(t))
	text := "Refer to wic 14184.402, 42 CFR 438.68, WIC Section 14184.402 and 22 CCR 53851."
	a := d.ExtractReferences(text)
	b := d.ExtractReferences(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("extraction not deterministic: %v vs %v", a, b)
	}
	want := []string{"CCR 53851", "CFR 438.68", "WIC 14184.402"}
	if !reflect.DeepEqual(a, want) {
		t.Fatalf("references = %v, want %v", a, want)
	}
}

func TestParseReviewDoc(t *testing.T) {
	d := New(mustPack(t))
	text := `APL 23-001 MCP Submission Review
SUBMISSION ITEM: Network Certification Requirements

REFERENCES: APL 23-001, WIC 14197

1) Does the Plan indicate that it submits its annual network certification
within 30 calendar days? Yes Citation:
(Reference: APL 23-001, page 4)
2a) Does the Plan maintain documentation of subcontractor oversight? No
(Reference: APL 23-001, page 7)
`
	rd := d.ParseReviewDoc(text)
	if rd.Code != "APL 23-001" {
		t.Errorf("code = %q", rd.Code)
	}
	if rd.Title != "Network Certification Requirements" {
		t.Errorf("title = %q", rd.Title)
	}
	if len(rd.Criteria) != 2 {
		t.Fatalf("criteria = %d, want 2", len(rd.Criteria))
	}
	c0 := rd.Criteria[0]
	if c0.Label != "1" {
		t.Errorf("label = %q", c0.Label)
	}
	if !strings.HasPrefix(c0.Question, "Does the Plan indicate") || !strings.HasSuffix(c0.Question, "?") {
		t.Errorf("question = %q", c0.Question)
	}
	if strings.Contains(c0.Question, "Citation") {
		t.Errorf("question retains citation noise: %q", c0.Question)
	}
	if c0.Reference != "APL 23-001" || c0.Page != "4" {
		t.Errorf("reference = %q page %q", c0.Reference, c0.Page)
	}
	if c0.ComplianceType != "must_state" {
		t.Errorf("compliance type = %q", c0.ComplianceType)
	}
	if rd.Criteria[1].Label != "2a" {
		t.Errorf("second label = %q", rd.Criteria[1].Label)
	}
	if rd.Criteria[1].ComplianceType != "must_have" {
		t.Errorf("second compliance type = %q", rd.Criteria[1].ComplianceType)
	}
}

func TestDecomposeDeterminism(t *testing.T) {
	d := New(mustPack(t))
	text := `The Plan must ensure members receive notice within 30 days per WIC 14197.7.
"Grievance" means an expression of dissatisfaction. The Plan shall maintain a grievance log.`
	a := d.Decompose(text, "APL 22-003")
	b := d.Decompose(text, "APL 22-003")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("decomposition not deterministic")
	}
}
