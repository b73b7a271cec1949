// Command auditor-rulepacker verifies the embedded rulepack compiles and
// prints its fingerprint and table sizes, for run provenance checks
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

func main() {
	var (
		asJSON = flag.Bool("json", false, "emit machine-readable summary")
		quiet  = flag.Bool("quiet", false, "verify only; print nothing on success")
	)
	flag.Parse()

	p, err := rulepack.Load()
	if err != nil {
		log.Fatalf("rulepack invalid: %v", err)
	}
	if *quiet {
		return
	}

	summary := map[string]any{
		"version":             p.Version,
		"fingerprint":         p.Fingerprint,
		"citation_families":   len(p.Citations),
		"obligation_keywords": len(p.ObligationKeywords),
		"stopwords":           len(p.Stopset),
		"definition_patterns": len(p.Definitions),
		"domain_groups":       len(p.Groups),
		"crossref_detectors":  len(p.CrossrefDetect),
		"crossref_forms":      len(p.CrossrefForms),
		"thresholds":          p.Thresholds,
		"weights":             p.Weights,
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Fatalf("encode summary: %v", err)
		}
		return
	}

	fmt.Printf("rulepack v%d  %s\n", p.Version, p.Fingerprint)
	fmt.Printf("  citation families:   %d\n", len(p.Citations))
	fmt.Printf("  obligation keywords: %d\n", len(p.ObligationKeywords))
	fmt.Printf("  stopwords:           %d\n", len(p.Stopset))
	fmt.Printf("  definition patterns: %d\n", len(p.Definitions))
	fmt.Printf("  domain groups:       %d\n", len(p.Groups))
	fmt.Printf("  crossref detectors:  %d (forms: %d)\n", len(p.CrossrefDetect), len(p.CrossrefForms))
	fmt.Printf("  thresholds: full>=%.2f partial>=%.2f overlap>=%.2f\n",
		p.Thresholds.FullObligationShare, p.Thresholds.PartialObligationShare, p.Thresholds.WordOverlap)
}
