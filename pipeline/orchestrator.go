package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/purescan/purescan/models"
	"github.com/purescan/purescan/scanstore"
)

// ErrNoExtractedText is returned by RetryAnalysis when the record never made
// it through the extract stage, so there is nothing to re-analyze.
var ErrNoExtractedText = errors.New("pipeline: no extracted text available to analyze")

// resumeConcurrency bounds how many interrupted scans ResumePending drives at
// once. Stages within a single scan stay strictly sequential regardless.
const resumeConcurrency = 4

// Uploader pushes a locally captured image to remote storage and returns its
// publicly fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, id, imageRef string) (string, error)
}

// Extractor recognizes text in the uploaded image.
type Extractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

// Analyzer produces a structured safety analysis from extracted label text.
type Analyzer interface {
	Analyze(ctx context.Context, extractedText string) (*models.ProductAnalysis, error)
}

// Orchestrator drives a scan record through the upload, extract and analyze
// stages, committing each outcome to the store before the next stage starts.
// Stage failures are folded into the record (stage "failed", lastError set)
// and never returned as errors; only store integrity and misuse errors
// propagate to the caller.
type Orchestrator struct {
	store     scanstore.Store
	uploader  Uploader
	extractor Extractor
	analyzer  Analyzer
	notifier  Notifier

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewOrchestrator wires an orchestrator from its collaborators. notifier may
// be nil when no status display is attached.
func NewOrchestrator(store scanstore.Store, uploader Uploader, extractor Extractor, analyzer Analyzer, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		store:     store,
		uploader:  uploader,
		extractor: extractor,
		analyzer:  analyzer,
		notifier:  notifier,
		inFlight:  make(map[string]bool),
	}
}

// Run drives the record with the given id from its current position to
// "analyzed" or "failed". The stage to resume from is derived from which
// fields are already populated, never from transient in-memory state, so a
// run abandoned at any point (crash, navigation away) picks up where the last
// committed write left it. A completed upload is never re-issued.
//
// A second Run for the same id while one is active observes the in-flight
// guard and returns the current record without issuing any remote call.
//
// A record already at a terminal stage is returned unchanged: "analyzed"
// needs no work, and "failed" only leaves via an explicit RetryAnalysis.
func (o *Orchestrator) Run(ctx context.Context, id string) (models.ScanRecord, error) {
	if !o.begin(id) {
		slog.Debug("Scan already in flight, ignoring duplicate run.", "scanId", id)
		return o.store.Get(ctx, id)
	}
	defer o.end(id)

	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return models.ScanRecord{}, err
	}
	if rec.Stage.Terminal() {
		return rec, nil
	}

	logCtx := slog.With("scanId", id)

	if rec.RemoteImageURL == "" {
		o.notify(id, models.StageUploading)
		url, uploadErr := o.uploader.Upload(ctx, rec.ID, rec.ImageRef)
		rec, err = o.commit(ctx, id, Outcome{Stage: models.StageUploading, URL: url, Err: uploadErr})
		if err != nil {
			return models.ScanRecord{}, err
		}
		if uploadErr != nil {
			logCtx.Error("Upload stage failed.", "error", uploadErr)
			return rec, nil
		}
		logCtx.Info("Image uploaded.", "url", url)
	}

	if rec.ExtractedText == "" {
		o.notify(id, models.StageExtracting)
		text, extractErr := o.extractor.ExtractText(ctx, rec.RemoteImageURL)
		rec, err = o.commit(ctx, id, Outcome{Stage: models.StageExtracting, Text: text, Err: extractErr})
		if err != nil {
			return models.ScanRecord{}, err
		}
		if extractErr != nil {
			logCtx.Error("Extract stage failed.", "error", extractErr)
			return rec, nil
		}
		logCtx.Info("Label text extracted.", "chars", len(text))
	}

	if rec.Analysis == nil {
		rec, err = o.analyze(ctx, rec)
		if err != nil {
			return models.ScanRecord{}, err
		}
	}
	return rec, nil
}

// RetryAnalysis repeats the analyze stage using the stored extracted text. It
// never re-uploads or re-extracts: those stages' outputs are reused as-is.
// Invoking it on a record that never completed extraction fails with
// ErrNoExtractedText and changes nothing.
func (o *Orchestrator) RetryAnalysis(ctx context.Context, id string) (models.ScanRecord, error) {
	if !o.begin(id) {
		slog.Debug("Scan already in flight, ignoring duplicate retry.", "scanId", id)
		return o.store.Get(ctx, id)
	}
	defer o.end(id)

	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return models.ScanRecord{}, err
	}
	if rec.ExtractedText == "" {
		return rec, ErrNoExtractedText
	}
	return o.analyze(ctx, rec)
}

// ResumePending re-runs every scan that was left at a non-terminal stage,
// e.g. after the process was closed mid-pipeline. Distinct scans resume
// concurrently; no ordering holds across ids.
func (o *Orchestrator) ResumePending(ctx context.Context) error {
	recs, err := o.store.List(ctx)
	if err != nil {
		return err
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(resumeConcurrency)
	for _, rec := range recs {
		if rec.Stage.Terminal() {
			continue
		}
		id := rec.ID
		eg.Go(func() error {
			if _, err := o.Run(gctx, id); err != nil {
				return fmt.Errorf("scan %s: failed to resume: %w", id, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// analyze performs the analyze stage for rec and commits the outcome. Callers
// must hold the in-flight guard for rec.ID.
func (o *Orchestrator) analyze(ctx context.Context, rec models.ScanRecord) (models.ScanRecord, error) {
	o.notify(rec.ID, models.StageAnalyzing)
	analysis, analyzeErr := o.analyzer.Analyze(ctx, rec.ExtractedText)
	rec, err := o.commit(ctx, rec.ID, Outcome{
		Stage:    models.StageAnalyzing,
		Analysis: analysis,
		At:       time.Now().UTC(),
		Err:      analyzeErr,
	})
	if err != nil {
		return models.ScanRecord{}, err
	}
	if analyzeErr != nil {
		slog.Error("Analyze stage failed.", "scanId", rec.ID, "error", analyzeErr)
		return rec, nil
	}
	slog.Info("Scan analyzed.", "scanId", rec.ID, "harmfulIngredients", rec.HarmfulIngredientCount())
	return rec, nil
}

// commit folds the outcome into the stored record and notifies the resulting
// stage. The store write must complete before the next stage may start, so a
// concurrently open history view always sees a stage that matches the fields
// that are populated.
func (o *Orchestrator) commit(ctx context.Context, id string, out Outcome) (models.ScanRecord, error) {
	rec, err := o.store.Update(ctx, id, func(r *models.ScanRecord) error {
		*r = Apply(*r, out)
		return nil
	})
	if err != nil {
		return models.ScanRecord{}, err
	}
	o.notify(id, rec.Stage)
	return rec, nil
}

func (o *Orchestrator) notify(id string, stage models.Stage) {
	if o.notifier != nil {
		o.notifier.StageChanged(id, stage)
	}
}

// begin marks id as in flight, reporting false if it already was. This is the
// single-attempt guard: duplicate invocations (e.g. a double-tapped retry)
// must not issue a second remote call for a stage that is already running.
func (o *Orchestrator) begin(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) end(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}
