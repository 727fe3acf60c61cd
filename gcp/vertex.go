package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/purescan/purescan/models"
)

// --- Analyzer Model Prompts ---
const AnalyzerSystemPrompt = "You are a product safety analyst. Your task is to analyze product ingredient text extracted from a label photo and return a detailed, structured safety analysis. You must output your response as a single valid JSON object."

const AnalyzerUserPrompt = `Analyze the following product ingredients text and provide a detailed analysis in a strict JSON format.

IMPORTANT GUIDELINES:
1. Make your best educated guess for product information - DO NOT use "Unspecified" or similar terms
2. Add "(not confirmed)" after the product name if you're making an educated guess
3. Be specific and detailed in your analysis
4. Return ONLY raw JSON without any markdown formatting or code blocks
5. Do not include ` + "```json or ```" + ` tags

The response should be in this exact JSON format:
{
  "productInfo": {
    "type": "string (be specific, e.g., 'Facial Cleanser' instead of just 'Skincare')",
    "name": "string (your best guess + '(not confirmed)' if uncertain)",
    "brand": "string (your best guess + '(not confirmed)' if uncertain)"
  },
  "harmfulIngredients": [
    {
      "name": "string",
      "concern": "string (be specific about potential health impacts)",
      "riskLevel": "high|medium|low"
    }
  ],
  "ingredients": [
    {
      "name": "string",
      "purpose": "string (specific function in the product)",
      "description": "string (detailed explanation)",
      "safetyInfo": "string (include research-based safety information)"
    }
  ],
  "allergens": ["string (list all potential allergens, even if uncommon)"],
  "dietary": {
    "isVegan": boolean,
    "isVegetarian": boolean,
    "restrictions": ["string (list all dietary restrictions this might violate)"]
  },
  "environmentalImpact": {
    "rating": "high|medium|low",
    "details": "string (specific environmental concerns and impacts)"
  }
}

Here's the text to analyze:`

// Analyzer holds the pre-configured generative model for product analysis.
type Analyzer struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

// NewAnalyzer creates an Analyzer backed by a Vertex AI generative model.
func NewAnalyzer(ctx context.Context, projectID, region, modelName string) (*Analyzer, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewAnalyzer: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(AnalyzerSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &Analyzer{model: model, baseClient: baseClient}, nil
}

// Close releases the underlying genai client.
func (a *Analyzer) Close() error {
	if a.baseClient != nil {
		return a.baseClient.Close()
	}
	return nil
}

// Analyze sends the extracted label text to the model and parses its response
// into a ProductAnalysis. An unparseable response is returned as a
// MalformedResponseError that retains the raw text.
func (a *Analyzer) Analyze(ctx context.Context, extractedText string) (*models.ProductAnalysis, error) {
	prompt := genai.Text(fmt.Sprintf("%s\n\n%s", AnalyzerUserPrompt, extractedText))

	resp, err := a.model.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis from gemini: %w", err)
	}

	raw := extractResponseText(resp)
	if raw == "" {
		return nil, &MalformedResponseError{Raw: raw, Err: fmt.Errorf("gemini returned an empty response")}
	}

	// Sanity check for LLM refusal.
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot answer",
		"i cannot provide",
		"as a large language model",
	}
	lowerRaw := strings.ToLower(raw)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowerRaw, phrase) {
			return nil, fmt.Errorf("gemini response indicates refusal to analyze product")
		}
	}

	return ParseAnalysis(raw)
}

// ParseAnalysis normalizes raw model output and parses it into a
// ProductAnalysis. It is the structural half of the analyze contract, split
// out so it can be exercised without a live model.
func ParseAnalysis(raw string) (*models.ProductAnalysis, error) {
	cleaned := CleanJSONResponse(raw)

	var analysis models.ProductAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if analysis.ProductInfo == (models.ProductInfo{}) {
		return nil, &MalformedResponseError{Raw: raw, Err: fmt.Errorf("response is missing productInfo")}
	}
	return &analysis, nil
}

// extractResponseText robustly gets the raw text content from the model response.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(contentBuilder.String())
}
