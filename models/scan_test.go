package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStagePredicates(t *testing.T) {
	assert.True(t, StageAnalyzed.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageCreated.Terminal())
	assert.False(t, StageUploaded.Terminal())

	assert.True(t, StageUploading.InFlight())
	assert.True(t, StageExtracting.InFlight())
	assert.True(t, StageAnalyzing.InFlight())
	assert.False(t, StageUploaded.InFlight())
}

func TestCanRetryAnalysis(t *testing.T) {
	rec := ScanRecord{Stage: StageFailed, ExtractedText: "Water"}
	assert.True(t, rec.CanRetryAnalysis())

	rec = ScanRecord{Stage: StageFailed}
	assert.False(t, rec.CanRetryAnalysis(), "no stored text means stage three cannot be repeated")

	rec = ScanRecord{Stage: StageExtracted, ExtractedText: "Water"}
	assert.False(t, rec.CanRetryAnalysis(), "retry only applies to failed scans")
}

func TestSummaryAccessorsBeforeAnalysis(t *testing.T) {
	rec := ScanRecord{Stage: StageExtracting}
	assert.Equal(t, 0, rec.HarmfulIngredientCount())
	assert.Equal(t, 0, rec.AllergenCount())
	assert.Empty(t, rec.DisplayName())
	assert.False(t, rec.Analyzed())
}

func TestProductInfoUncertain(t *testing.T) {
	info := ProductInfo{Name: "Gentle Foaming Cleanser (not confirmed)", Brand: "Cetaphil"}
	assert.True(t, info.Uncertain())

	info = ProductInfo{Name: "Cetaphil Daily Facial Cleanser", Brand: "Cetaphil"}
	assert.False(t, info.Uncertain())
}
