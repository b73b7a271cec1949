// Package rulepack loads and compiles coverage rules from the embedded rules.json.
// It prepares citation regexps, keyword tables and scoring constants for the engine
package rulepack

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed rules.json
var embedded []byte

type rawCitation struct {
	Family  string `json:"family"`
	Pattern string `json:"pattern"`
}

type rawGroup struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

type rawCrossref struct {
	Detect []string `json:"detect"`
	Forms  []string `json:"forms"`
}

type rawPack struct {
	Version            int            `json:"version"`
	Meta               map[string]any `json:"meta"`
	Citations          []rawCitation  `json:"citations"`
	ObligationKeywords []string       `json:"obligation_keywords"`
	TimeframePattern   string         `json:"timeframe_pattern"`
	DefinitionPatterns []string       `json:"definition_patterns"`
	Stopwords          []string       `json:"stopwords"`
	DomainGroups       []rawGroup     `json:"domain_groups"`
	Crossref           rawCrossref    `json:"crossref"`
	Thresholds         Thresholds     `json:"thresholds"`
	Weights            Weights        `json:"weights"`
	Windows            Windows        `json:"windows"`
	Relevance          Relevance      `json:"relevance"`
	Caps               Caps           `json:"caps"`
}

// Citation is one compiled citation family (e.g. WIC section references).
// Matches are normalized to "FAMILY <number>" strings
type Citation struct {
	Family  string
	Pattern string
}

// KeywordGroup names a topic vocabulary used by the domain excerpt pass
type KeywordGroup struct {
	Name     string
	Keywords []string // lowercased, authored order
}

// Thresholds are the classification cut-points. Empirically chosen; tune via rules.json
type Thresholds struct {
	FullObligationShare    float64 `json:"full_obligation_share"`
	PartialObligationShare float64 `json:"partial_obligation_share"`
	WordOverlap            float64 `json:"word_overlap"`
	RelatedReviewConf      float64 `json:"related_review_confidence"`
	RelevanceFloor         float64 `json:"relevance_floor"`
}

// Weights are the confidence contributions per evidence category.
// They are not renormalized when a category has no required elements
type Weights struct {
	Regulation       float64 `json:"regulation"`
	PrimaryReference float64 `json:"primary_reference"`
	Obligations      float64 `json:"obligations"`
	Timeframes       float64 `json:"timeframes"`
	Definitions      float64 `json:"definitions"`
}

// Windows are the context capture sizes (bytes each side) per excerpt pass
type Windows struct {
	Domain   int `json:"domain"`
	Citation int `json:"citation"`
	Crossref int `json:"crossref"`
	Concept  int `json:"concept"`
}

// Relevance holds the fixed scores assigned by the non-domain excerpt passes
type Relevance struct {
	Citation float64 `json:"citation"`
	Crossref float64 `json:"crossref"`
	Concept  float64 `json:"concept"`
}

// Caps bound extraction and ranking output sizes
type Caps struct {
	Obligations       int `json:"obligations"`
	Excerpts          int `json:"excerpts"`
	UnitText          int `json:"unit_text"`
	MinObligationLen  int `json:"min_obligation_len"`
	MaxObligationLen  int `json:"max_obligation_len"`
	MaxTermLen        int `json:"max_term_len"`
	MaxDefinitionLen  int `json:"max_definition_len"`
	MinWordLen        int `json:"min_word_len"`
	ObligationSnippet int `json:"obligation_snippet"`
}

// Pack represents a compiled rule pack for the coverage engine
type Pack struct {
	Version     int
	Meta        map[string]any
	Fingerprint string // hex SHA-256 of the raw JSON, for run provenance

	// Citation families, 1:1 with CitationRes
	Citations   []Citation
	CitationRes []*regexp.Regexp

	// Obligation sentence gate (lowercased) and the tokenizer stopword set
	ObligationKeywords []string
	Stopset            map[string]struct{}

	Timeframe   *regexp.Regexp
	Definitions []*regexp.Regexp

	// Topic vocabularies in authored order; topic detection takes the first match
	Groups []KeywordGroup

	// Cross-document reference detection + surface-form templates ({CODE} expands)
	CrossrefDetect []*regexp.Regexp
	CrossrefForms  []string

	Thresholds Thresholds
	Weights    Weights
	Windows    Windows
	Relevance  Relevance
	Caps       Caps
}

// Load returns the compiled pack from the embedded rules.json
func Load() (*Pack, error) {
	return Compile(embedded)
}

// MustLoad is Load for wiring paths where a broken embedded pack is unrecoverable
func MustLoad() *Pack {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

// Compile parses and validates a raw rules.json payload
func Compile(raw []byte) (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("rulepack: parse rules.json: %w", err)
	}
	if rp.Version != 1 {
		return nil, fmt.Errorf("rulepack: unsupported rules.json version %d (want 1)", rp.Version)
	}

	sum := sha256.Sum256(raw)
	p := &Pack{
		Version:     rp.Version,
		Meta:        rp.Meta,
		Fingerprint: hex.EncodeToString(sum[:]),
		Stopset:     make(map[string]struct{}, len(rp.Stopwords)),
		Thresholds:  rp.Thresholds,
		Weights:     rp.Weights,
		Windows:     rp.Windows,
		Relevance:   rp.Relevance,
		Caps:        rp.Caps,
	}

	// Citation families: case-insensitive, normalized family labels
	for _, c := range rp.Citations {
		fam := strings.ToUpper(strings.TrimSpace(c.Family))
		if fam == "" || c.Pattern == "" {
			return nil, fmt.Errorf("rulepack: citation with empty family or pattern")
		}
		re, err := regexp.Compile("(?i)" + c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rulepack: compile citation %q: %w", c.Pattern, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("rulepack: citation %q needs a capture group for the section number", c.Pattern)
		}
		p.Citations = append(p.Citations, Citation{Family: fam, Pattern: c.Pattern})
		p.CitationRes = append(p.CitationRes, re)
	}

	for _, kw := range rp.ObligationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			p.ObligationKeywords = append(p.ObligationKeywords, kw)
		}
	}
	if len(p.ObligationKeywords) == 0 {
		return nil, fmt.Errorf("rulepack: no obligation keywords")
	}

	for _, s := range rp.Stopwords {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			p.Stopset[s] = struct{}{}
		}
	}

	if rp.TimeframePattern == "" {
		return nil, fmt.Errorf("rulepack: missing timeframe pattern")
	}
	tre, err := regexp.Compile("(?i)" + rp.TimeframePattern)
	if err != nil {
		return nil, fmt.Errorf("rulepack: compile timeframe %q: %w", rp.TimeframePattern, err)
	}
	p.Timeframe = tre

	// Definition clauses stay case-sensitive: the capitalized-phrase form relies on it
	for _, dp := range rp.DefinitionPatterns {
		re, err := regexp.Compile(dp)
		if err != nil {
			return nil, fmt.Errorf("rulepack: compile definition %q: %w", dp, err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("rulepack: definition %q needs term and definition groups", dp)
		}
		p.Definitions = append(p.Definitions, re)
	}

	for _, g := range rp.DomainGroups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		kws := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) > 0 {
			p.Groups = append(p.Groups, KeywordGroup{Name: name, Keywords: kws})
		}
	}

	for _, d := range rp.Crossref.Detect {
		re, err := regexp.Compile("(?i)" + d)
		if err != nil {
			return nil, fmt.Errorf("rulepack: compile crossref %q: %w", d, err)
		}
		p.CrossrefDetect = append(p.CrossrefDetect, re)
	}
	for _, f := range rp.Crossref.Forms {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !strings.Contains(f, "{CODE}") {
			return nil, fmt.Errorf("rulepack: crossref form %q lacks {CODE}", f)
		}
		if _, err := ExpandForm(f, "00-000"); err != nil {
			return nil, fmt.Errorf("rulepack: crossref form %q: %w", f, err)
		}
		p.CrossrefForms = append(p.CrossrefForms, f)
	}

	if err := validateScoring(p); err != nil {
		return nil, err
	}

	return p, nil
}

// ExpandForm substitutes a reference code into a {CODE} surface-form template
// and compiles it case-insensitively with word boundaries
func ExpandForm(form, code string) (*regexp.Regexp, error) {
	pat := strings.ReplaceAll(form, "{CODE}", regexp.QuoteMeta(code))
	return regexp.Compile(`(?i)\b` + pat + `\b`)
}

func validateScoring(p *Pack) error {
	th := p.Thresholds
	for _, v := range []float64{th.FullObligationShare, th.PartialObligationShare, th.WordOverlap, th.RelatedReviewConf, th.RelevanceFloor} {
		if v < 0 || v > 1 {
			return fmt.Errorf("rulepack: threshold %v outside [0,1]", v)
		}
	}
	w := p.Weights
	for _, v := range []float64{w.Regulation, w.PrimaryReference, w.Obligations, w.Timeframes, w.Definitions} {
		if v < 0 || v > 1 {
			return fmt.Errorf("rulepack: weight %v outside [0,1]", v)
		}
	}
	if p.Windows.Domain <= 0 || p.Windows.Citation <= 0 || p.Windows.Crossref <= 0 || p.Windows.Concept <= 0 {
		return fmt.Errorf("rulepack: context windows must be positive")
	}
	c := p.Caps
	if c.Obligations <= 0 || c.Excerpts <= 0 || c.UnitText <= 0 || c.MinWordLen <= 0 {
		return fmt.Errorf("rulepack: caps must be positive")
	}
	if c.MinObligationLen <= 0 || c.MaxObligationLen <= c.MinObligationLen {
		return fmt.Errorf("rulepack: obligation length bounds invalid")
	}
	return nil
}
