package models

import "strings"

// UncertainSuffix marks a product name or brand the analysis model guessed at
// rather than read off the label. It is plain text appended by the model, per
// the prompt contract, and is inspected as text rather than a flag.
const UncertainSuffix = "(not confirmed)"

// RiskLevel grades an ingredient concern or environmental impact.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// ProductAnalysis is the structured result returned by the generative
// analysis service. It is consumed verbatim: a response that does not parse
// into this shape is rejected as a whole, never partially accepted.
type ProductAnalysis struct {
	ProductInfo         ProductInfo         `json:"productInfo" firestore:"productInfo"`
	HarmfulIngredients  []HarmfulIngredient `json:"harmfulIngredients" firestore:"harmfulIngredients"`
	Ingredients         []Ingredient        `json:"ingredients" firestore:"ingredients"`
	Allergens           []string            `json:"allergens" firestore:"allergens"`
	Dietary             Dietary             `json:"dietary" firestore:"dietary"`
	EnvironmentalImpact EnvironmentalImpact `json:"environmentalImpact" firestore:"environmentalImpact"`
}

// ProductInfo identifies the scanned product.
type ProductInfo struct {
	Type  string `json:"type" firestore:"type"`
	Name  string `json:"name" firestore:"name"`
	Brand string `json:"brand" firestore:"brand"`
}

// Uncertain reports whether the model marked the product name or brand as an
// educated guess.
func (p ProductInfo) Uncertain() bool {
	return strings.Contains(p.Name, UncertainSuffix) || strings.Contains(p.Brand, UncertainSuffix)
}

// HarmfulIngredient is an ingredient the analysis flagged as a health concern.
type HarmfulIngredient struct {
	Name      string    `json:"name" firestore:"name"`
	Concern   string    `json:"concern" firestore:"concern"`
	RiskLevel RiskLevel `json:"riskLevel" firestore:"riskLevel"`
}

// Ingredient describes one ingredient from the label.
type Ingredient struct {
	Name        string `json:"name" firestore:"name"`
	Purpose     string `json:"purpose" firestore:"purpose"`
	Description string `json:"description" firestore:"description"`
	SafetyInfo  string `json:"safetyInfo" firestore:"safetyInfo"`
}

// Dietary summarizes dietary suitability of the product.
type Dietary struct {
	IsVegan      bool     `json:"isVegan" firestore:"isVegan"`
	IsVegetarian bool     `json:"isVegetarian" firestore:"isVegetarian"`
	Restrictions []string `json:"restrictions" firestore:"restrictions"`
}

// EnvironmentalImpact rates the product's environmental footprint.
type EnvironmentalImpact struct {
	Rating  RiskLevel `json:"rating" firestore:"rating"`
	Details string    `json:"details" firestore:"details"`
}
