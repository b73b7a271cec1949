package service

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Model is the advisory opinion seam. Opinion returns the raw structured
// JSON document produced for one prompt
type Model interface {
	Name() string
	Opinion(ctx context.Context, prompt string) ([]byte, error)
}

// Gemini adapts a genai client to the Model seam. The generation config
// pins a low temperature and forces a JSON response matching the opinion
// schema, so the parse step never has to scrape prose
type Gemini struct {
	model *genai.GenerativeModel
	name  string
}

// NewGemini configures a generative model for compliance opinions
func NewGemini(client *genai.Client, modelName string) *Gemini {
	m := client.GenerativeModel(modelName)
	m.SetTemperature(0.1)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = opinionSchema()
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	return &Gemini{model: m, name: modelName}
}

// Name reports the configured model name
func (g *Gemini) Name() string { return g.name }

// Opinion runs one generation and returns the JSON payload
func (g *Gemini) Opinion(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("validate: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("validate: empty model response")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok && len(txt) > 0 {
			return []byte(txt), nil
		}
	}
	return nil, fmt.Errorf("validate: no text part in model response")
}

// Disabled is the Model used when no validator credentials are configured.
// Every opinion fails, so callers get the degraded unclear result and the
// endpoints stay mounted
type Disabled struct{}

// Name reports the placeholder model name
func (Disabled) Name() string { return "disabled" }

// Opinion always fails
func (Disabled) Opinion(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("validate: no model configured")
}

const systemPrompt = `You are a regulatory compliance expert specializing in ` +
	`healthcare policy analysis. Assess whether policy documents comply with ` +
	`specific regulatory requirements. Be precise, identify concrete gaps and ` +
	`strengths, and base confidence on the clarity and completeness of the ` +
	`evidence. Always produce structured, evidence-based assessments.`

func opinionSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	strList := &genai.Schema{Type: genai.TypeArray, Items: str}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"compliance_rating": {
				Type: genai.TypeString,
				Enum: []string{"fully_compliant", "partially_compliant", "non_compliant", "unclear", "not_applicable"},
			},
			"confidence_score": {
				Type:        genai.TypeNumber,
				Description: "Confidence in the rating, 0 to 100",
			},
			"reasoning":                {Type: genai.TypeString, Description: "Detailed reasoning for the rating"},
			"missing_elements":         strList,
			"recommendations":          strList,
			"relevant_policy_excerpts": strList,
			"priority_level": {
				Type: genai.TypeString,
				Enum: []string{"high", "medium", "low"},
			},
		},
		Required: []string{
			"compliance_rating", "confidence_score", "reasoning",
			"missing_elements", "recommendations", "relevant_policy_excerpts",
			"priority_level",
		},
	}
}
