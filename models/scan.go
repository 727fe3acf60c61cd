package models

import "time"

// Stage is the pipeline position of a scan record. A record moves strictly
// forward through the upload, extract and analyze stages; "analyzed" and
// "failed" are terminal (a failed analyze can be retried explicitly).
type Stage string

const (
	StageCreated    Stage = "created"
	StageUploading  Stage = "uploading"
	StageUploaded   Stage = "uploaded"
	StageExtracting Stage = "extracting"
	StageExtracted  Stage = "extracted"
	StageAnalyzing  Stage = "analyzing"
	StageAnalyzed   Stage = "analyzed"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no automatic transition leaves this stage.
func (s Stage) Terminal() bool {
	return s == StageAnalyzed || s == StageFailed
}

// InFlight reports whether a remote call is currently being attempted for
// this stage.
func (s Stage) InFlight() bool {
	return s == StageUploading || s == StageExtracting || s == StageAnalyzing
}

// ScanRecord is the persisted record for one label scan. It is created as a
// placeholder at capture time and mutated by the pipeline as stages complete,
// so a history view may observe it with only a subset of fields populated.
type ScanRecord struct {
	ID             string           `json:"id" firestore:"id"`
	CreatedAt      time.Time        `json:"createdAt" firestore:"createdAt"`
	ImageRef       string           `json:"imageRef" firestore:"imageRef"`
	RemoteImageURL string           `json:"remoteImageUrl,omitempty" firestore:"remoteImageUrl,omitempty"`
	ExtractedText  string           `json:"extractedText,omitempty" firestore:"extractedText,omitempty"`
	Analysis       *ProductAnalysis `json:"analysis,omitempty" firestore:"analysis,omitempty"`
	AnalyzedAt     time.Time        `json:"analyzedAt,omitempty" firestore:"analyzedAt,omitempty"`
	Stage          Stage            `json:"stage" firestore:"stage"`
	LastError      string           `json:"lastError,omitempty" firestore:"lastError,omitempty"`
}

// Analyzed reports whether the record carries a completed analysis.
func (r *ScanRecord) Analyzed() bool {
	return r.Stage == StageAnalyzed && r.Analysis != nil
}

// CanRetryAnalysis reports whether a retry affordance applies: only a failure
// in the analyze stage is safely re-runnable, since the stored extracted text
// lets stage three repeat without re-incurring upload or extraction cost.
func (r *ScanRecord) CanRetryAnalysis() bool {
	return r.Stage == StageFailed && r.ExtractedText != ""
}

// HarmfulIngredientCount returns the number of flagged ingredients, or zero
// while the analysis is still pending. History views render this as a badge.
func (r *ScanRecord) HarmfulIngredientCount() int {
	if r.Analysis == nil {
		return 0
	}
	return len(r.Analysis.HarmfulIngredients)
}

// AllergenCount returns the number of detected allergens, or zero while the
// analysis is still pending.
func (r *ScanRecord) AllergenCount() int {
	if r.Analysis == nil {
		return 0
	}
	return len(r.Analysis.Allergens)
}

// DisplayName returns the analyzed product name, or the empty string for a
// record whose analysis has not completed yet.
func (r *ScanRecord) DisplayName() string {
	if r.Analysis == nil {
		return ""
	}
	return r.Analysis.ProductInfo.Name
}
