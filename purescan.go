// Package purescan turns a photographed product label into a structured
// safety and ingredient analysis. It orchestrates three dependent remote
// stages (image upload, text extraction, generative analysis) against a
// persisted scan record, supporting partial completion, safe retry of the
// analyze stage and resumption of scans interrupted mid-pipeline.
package purescan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/purescan/purescan/gcp"
	"github.com/purescan/purescan/models"
	"github.com/purescan/purescan/pipeline"
	"github.com/purescan/purescan/scanstore"
)

// Config holds the environment-driven settings for a GCP-backed service.
type Config struct {
	ProjectID           string
	UploadBucket        string
	VertexAIRegion      string
	AnalyzerModel       string
	HistoryFile         string
	StoreBackend        string // "file" or "firestore"
	FirestoreCollection string
}

// LoadConfig reads and validates the service configuration from the
// environment.
func LoadConfig() (*Config, error) {
	projectID := gcp.GetEnv("GCP_PROJECT", "")
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable must be set")
	}
	uploadBucket := gcp.GetEnv("SCAN_UPLOAD_BUCKET", "")
	if uploadBucket == "" {
		return nil, fmt.Errorf("SCAN_UPLOAD_BUCKET environment variable must be set")
	}

	return &Config{
		ProjectID:           projectID,
		UploadBucket:        uploadBucket,
		VertexAIRegion:      gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		AnalyzerModel:       gcp.GetEnv("ANALYZER_MODEL", "gemini-1.5-pro"),
		HistoryFile:         gcp.GetEnv("SCAN_HISTORY_FILE", "scan_history.json"),
		StoreBackend:        gcp.GetEnv("SCAN_STORE", "file"),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", "scans"),
	}, nil
}

// Service exposes the consumer-facing scan operations: start a scan, view
// history, view a record, retry a failed analysis and resume interrupted
// scans.
type Service struct {
	store scanstore.Store
	orch  *pipeline.Orchestrator

	closers []func() error
}

// New builds a fully wired, GCP-backed service from the environment: GCS for
// uploads, Cloud Vision for text extraction, Vertex AI for analysis, and a
// local file store (or Firestore, per SCAN_STORE) for the scan history. A
// failure to construct any remote client means the environment cannot reach
// that service and is surfaced immediately.
func New(ctx context.Context, notifier pipeline.Notifier) (*Service, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s := &Service{}

	var store scanstore.Store
	switch config.StoreBackend {
	case "firestore":
		fs, err := scanstore.NewFirestoreStore(ctx, config.ProjectID, config.FirestoreCollection)
		if err != nil {
			s.closeAll()
			return nil, fmt.Errorf("failed to create firestore store: %w", err)
		}
		s.closers = append(s.closers, fs.Close)
		store = fs
	default:
		fileStore, err := scanstore.OpenFileStore(config.HistoryFile)
		if err != nil && !errors.Is(err, scanstore.ErrCorrupt) {
			return nil, fmt.Errorf("failed to open scan history: %w", err)
		}
		// A corrupt history file is reported but not fatal: the store
		// recovers empty and new scans remain possible.
		store = fileStore
	}

	uploader, err := gcp.NewUploader(ctx, config.UploadBucket)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("failed to create uploader: %w", err)
	}
	s.closers = append(s.closers, uploader.Close)

	extractor, err := gcp.NewExtractor(ctx)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	analyzer, err := gcp.NewAnalyzer(ctx, config.ProjectID, config.VertexAIRegion, config.AnalyzerModel)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	s.closers = append(s.closers, analyzer.Close)

	s.store = store
	s.orch = pipeline.NewOrchestrator(store, uploader, extractor, analyzer, notifier)
	return s, nil
}

// NewWithComponents wires a service from explicit collaborators. Tests and
// alternative deployments use this to substitute their own store or stage
// clients.
func NewWithComponents(store scanstore.Store, uploader pipeline.Uploader, extractor pipeline.Extractor, analyzer pipeline.Analyzer, notifier pipeline.Notifier) *Service {
	return &Service{
		store: store,
		orch:  pipeline.NewOrchestrator(store, uploader, extractor, analyzer, notifier),
	}
}

// StartScan creates the placeholder record for a freshly captured image and
// drives it through the pipeline. The record is persisted before the first
// remote call, so history shows a processing entry even if the process exits
// before the pipeline finishes.
func (s *Service) StartScan(ctx context.Context, imageRef string) (models.ScanRecord, error) {
	rec := models.ScanRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		ImageRef:  imageRef,
		Stage:     models.StageCreated,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return models.ScanRecord{}, fmt.Errorf("failed to create scan record: %w", err)
	}
	return s.orch.Run(ctx, rec.ID)
}

// History returns all scans, newest first. Records mid-pipeline appear with
// partial fields and a non-terminal stage.
func (s *Service) History(ctx context.Context) ([]models.ScanRecord, error) {
	return s.store.List(ctx)
}

// Scan returns a single record by id.
func (s *Service) Scan(ctx context.Context, id string) (models.ScanRecord, error) {
	return s.store.Get(ctx, id)
}

// RetryAnalysis repeats the analyze stage for a failed scan using its stored
// extracted text.
func (s *Service) RetryAnalysis(ctx context.Context, id string) (models.ScanRecord, error) {
	return s.orch.RetryAnalysis(ctx, id)
}

// Resume re-runs every scan left at a non-terminal stage, typically called
// once at startup.
func (s *Service) Resume(ctx context.Context) error {
	return s.orch.ResumePending(ctx)
}

// Close releases the remote clients held by the service.
func (s *Service) Close() error {
	return s.closeAll()
}

func (s *Service) closeAll() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
