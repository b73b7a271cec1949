// Package domain holds DTOs for policies http and service contracts
package domain

// ListInput filters the policy corpus listing
type ListInput struct {
	Category string `json:"category,omitempty" validate:"omitempty,min=1,max=100" example:"network"`
	Query    string `json:"query,omitempty"    validate:"omitempty,min=2,max=200" example:"timely access"`
	Limit    int    `json:"limit,omitempty"    validate:"omitempty,min=1,max=500" example:"100"`
}

// PolicyRow is one corpus entry without its full text
type PolicyRow struct {
	Code      string `json:"code" example:"MMCD-001"`
	Title     string `json:"title" example:"Network Reporting Policy"`
	Category  string `json:"category,omitempty" example:"network"`
	Status    string `json:"status" example:"active"`
	TextBytes int    `json:"text_bytes" example:"48213"`
	CreatedAt string `json:"created_at" example:"2026-01-12T09:30:00Z"`
}

// GetInput selects one policy by code
type GetInput struct {
	Code string `json:"code" validate:"required,min=1,max=100" example:"MMCD-001"`
}

// PolicyDetail is one corpus entry including its extracted text
type PolicyDetail struct {
	PolicyRow
	FullText string `json:"full_text"`
	FileHash string `json:"file_hash,omitempty" example:"9f2c..."`
}
