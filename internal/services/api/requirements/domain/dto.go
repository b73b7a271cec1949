// Package domain holds DTOs for requirements http and service contracts
package domain

// DocsInput filters the review-tool document listing
type DocsInput struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
}

// DocRow is one requirement document with its unit count
type DocRow struct {
	Code      string `json:"code" example:"APL 23-001"`
	Title     string `json:"title" example:"Network Certification Requirements"`
	UnitCount int    `json:"unit_count" example:"14"`
	CreatedAt string `json:"created_at" example:"2026-01-12T09:30:00Z"`
}

// UnitsInput selects the units of one document
type UnitsInput struct {
	DocCode string `json:"doc_code" validate:"required,min=1,max=100" example:"APL 23-001"`
}

// UnitInput selects one requirement unit by id
type UnitInput struct {
	UnitID string `json:"unit_id" validate:"required,min=1,max=200" example:"APL 23-001#1"`
}

// UnitRow is one checkable requirement unit as decomposed
type UnitRow struct {
	ID           string            `json:"id" example:"APL 23-001#1"`
	DocCode      string            `json:"doc_code" example:"APL 23-001"`
	SectionLabel string            `json:"section_label" example:"1"`
	Text         string            `json:"text"`
	References   []string          `json:"references,omitempty" example:"WIC 14197.7"`
	Obligations  []string          `json:"obligations,omitempty"`
	Timeframes   []string          `json:"timeframes,omitempty" example:"30 days"`
	Definitions  map[string]string `json:"definitions,omitempty"`
	Position     int               `json:"position" example:"1"`
}

// RedecomposeInput re-runs decomposition for one document from its stored raw text
type RedecomposeInput struct {
	DocCode string `json:"doc_code" validate:"required,min=1,max=100" example:"APL 23-001"`
}

// RedecomposeOutput reports the replaced unit set
type RedecomposeOutput struct {
	DocCode   string `json:"doc_code" example:"APL 23-001"`
	UnitCount int    `json:"unit_count" example:"14"`
}
