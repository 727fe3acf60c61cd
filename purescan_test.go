package purescan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purescan/purescan/models"
	"github.com/purescan/purescan/scanstore"
)

type stubUploader struct {
	url string
	err error
}

func (s stubUploader) Upload(ctx context.Context, id, imageRef string) (string, error) {
	return s.url, s.err
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	return s.text, s.err
}

type stubAnalyzer struct {
	analysis *models.ProductAnalysis
	err      error
}

func (s stubAnalyzer) Analyze(ctx context.Context, extractedText string) (*models.ProductAnalysis, error) {
	return s.analysis, s.err
}

func testService(t *testing.T, up stubUploader, ex stubExtractor, an stubAnalyzer) (*Service, scanstore.Store) {
	t.Helper()
	store, err := scanstore.OpenFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	return NewWithComponents(store, up, ex, an, nil), store
}

func analysisFixture() *models.ProductAnalysis {
	return &models.ProductAnalysis{
		ProductInfo: models.ProductInfo{Type: "Shampoo", Name: "Herbal Shine", Brand: "Acme"},
		HarmfulIngredients: []models.HarmfulIngredient{
			{Name: "Sodium Lauryl Sulfate", Concern: "Can irritate sensitive skin", RiskLevel: models.RiskMedium},
		},
		Allergens: []string{"Fragrance"},
		Dietary:   models.Dietary{IsVegan: true, IsVegetarian: true},
		EnvironmentalImpact: models.EnvironmentalImpact{
			Rating:  models.RiskMedium,
			Details: "Surfactants are slow to biodegrade",
		},
	}
}

func TestStartScanFullPipeline(t *testing.T) {
	svc, store := testService(t,
		stubUploader{url: "https://x/img.jpg"},
		stubExtractor{text: "Aqua, Sodium Lauryl Sulfate, Parfum"},
		stubAnalyzer{analysis: analysisFixture()},
	)

	rec, err := svc.StartScan(context.Background(), "/tmp/label.jpg")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, "/tmp/label.jpg", rec.ImageRef)
	assert.Equal(t, models.StageAnalyzed, rec.Stage)
	assert.Equal(t, 1, rec.HarmfulIngredientCount())
	assert.Equal(t, 1, rec.AllergenCount())
	assert.Equal(t, "Herbal Shine", rec.DisplayName())

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestStartScanPersistsPlaceholderOnFailure(t *testing.T) {
	svc, _ := testService(t,
		stubUploader{err: errors.New("bucket unreachable")},
		stubExtractor{},
		stubAnalyzer{},
	)

	rec, err := svc.StartScan(context.Background(), "/tmp/label.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, rec.Stage)
	assert.Equal(t, "bucket unreachable", rec.LastError)

	// Even a failed scan stays listed so the user can see what happened.
	history, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _ := testService(t,
		stubUploader{url: "https://x/img.jpg"},
		stubExtractor{text: "Aqua"},
		stubAnalyzer{analysis: analysisFixture()},
	)

	first, err := svc.StartScan(context.Background(), "/tmp/first.jpg")
	require.NoError(t, err)
	second, err := svc.StartScan(context.Background(), "/tmp/second.jpg")
	require.NoError(t, err)

	history, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestScanNotFound(t *testing.T) {
	svc, _ := testService(t, stubUploader{}, stubExtractor{}, stubAnalyzer{})

	_, err := svc.Scan(context.Background(), "missing")
	assert.ErrorIs(t, err, scanstore.ErrNotFound)
}

func TestRetryAnalysisThroughService(t *testing.T) {
	svc, store := testService(t,
		stubUploader{url: "https://x/img.jpg"},
		stubExtractor{text: "Aqua"},
		stubAnalyzer{err: errors.New("model unavailable")},
	)

	rec, err := svc.StartScan(context.Background(), "/tmp/label.jpg")
	require.NoError(t, err)
	require.Equal(t, models.StageFailed, rec.Stage)
	require.True(t, rec.CanRetryAnalysis())

	// A service wired with a healthy analyzer picks the scan back up from
	// the stored text.
	recovered := NewWithComponents(store, stubUploader{}, stubExtractor{}, stubAnalyzer{analysis: analysisFixture()}, nil)
	rec, err = recovered.RetryAnalysis(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageAnalyzed, rec.Stage)
	assert.Equal(t, "https://x/img.jpg", rec.RemoteImageURL)
	assert.Equal(t, "Aqua", rec.ExtractedText)
}

func TestResumeFinishesInterruptedScans(t *testing.T) {
	store, err := scanstore.OpenFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	// A scan left mid-pipeline by a previous process.
	interrupted := models.ScanRecord{
		ID:             "interrupted",
		CreatedAt:      time.Now().UTC(),
		ImageRef:       "/tmp/label.jpg",
		RemoteImageURL: "https://x/img.jpg",
		Stage:          models.StageUploaded,
	}
	require.NoError(t, store.Create(context.Background(), interrupted))

	svc := NewWithComponents(store,
		stubUploader{},
		stubExtractor{text: "Aqua"},
		stubAnalyzer{analysis: analysisFixture()},
		nil,
	)
	require.NoError(t, svc.Resume(context.Background()))

	rec, err := svc.Scan(context.Background(), "interrupted")
	require.NoError(t, err)
	assert.Equal(t, models.StageAnalyzed, rec.Stage)
	assert.Equal(t, "https://x/img.jpg", rec.RemoteImageURL, "resume must not repeat the upload")
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing project", func(t *testing.T) {
		t.Setenv("GCP_PROJECT", "")
		t.Setenv("SCAN_UPLOAD_BUCKET", "labels")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Setenv("GCP_PROJECT", "demo")
		t.Setenv("SCAN_UPLOAD_BUCKET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("GCP_PROJECT", "demo")
		t.Setenv("SCAN_UPLOAD_BUCKET", "labels")
		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "us-central1", config.VertexAIRegion)
		assert.Equal(t, "gemini-1.5-pro", config.AnalyzerModel)
		assert.Equal(t, "file", config.StoreBackend)
		assert.Equal(t, "scans", config.FirestoreCollection)
	})
}
