package pipeline

import (
	"time"

	"github.com/purescan/purescan/models"
)

// Outcome is the result of one remote stage attempt. Stage names the stage
// that was attempted (uploading, extracting or analyzing); exactly one of the
// payload fields is meaningful on success, and Err is set on failure.
type Outcome struct {
	Stage    models.Stage
	URL      string
	Text     string
	Analysis *models.ProductAnalysis
	Err      error
	At       time.Time
}

// Apply folds a stage outcome into a record and returns the successor record.
// It is a pure function: the store write and any notification happen in the
// orchestrator, after the successor has been computed.
//
// A failure at any stage moves the record to the failed stage and captures
// the error text; already-stored outputs of earlier stages are kept. A
// success writes that stage's output, advances the stage and clears any
// previous error.
func Apply(rec models.ScanRecord, out Outcome) models.ScanRecord {
	if out.Err != nil {
		rec.Stage = models.StageFailed
		rec.LastError = out.Err.Error()
		return rec
	}

	switch out.Stage {
	case models.StageUploading:
		rec.RemoteImageURL = out.URL
		rec.Stage = models.StageUploaded
	case models.StageExtracting:
		rec.ExtractedText = out.Text
		rec.Stage = models.StageExtracted
	case models.StageAnalyzing:
		rec.Analysis = out.Analysis
		rec.AnalyzedAt = out.At
		rec.Stage = models.StageAnalyzed
	default:
		return rec
	}
	rec.LastError = ""
	return rec
}
