package scanstore

import (
	"context"
	"errors"

	"github.com/purescan/purescan/models"
)

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("scanstore: record not found")

	// ErrDuplicateID is returned by Create when a record with the same id
	// already exists. Ids are never reused, so this indicates caller misuse.
	ErrDuplicateID = errors.New("scanstore: duplicate record id")

	// ErrCorrupt is reported when previously persisted data cannot be parsed.
	// The store recovers by starting from an empty collection.
	ErrCorrupt = errors.New("scanstore: persisted data is corrupt")
)

// Store is the keyed collection of scan records shared by the pipeline
// (writer) and the history/detail views (readers). Readers must tolerate
// records mid-pipeline: partial fields, non-terminal stage.
type Store interface {
	// Create inserts a new record, failing with ErrDuplicateID if the id
	// is already taken.
	Create(ctx context.Context, rec models.ScanRecord) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (models.ScanRecord, error)

	// List returns all records ordered by creation time, newest first.
	// An empty collection yields an empty slice, not an error.
	List(ctx context.Context) ([]models.ScanRecord, error)

	// Update applies mutate to the record for id and persists the result,
	// atomically with respect to other updates on the same id. It returns
	// the updated record, or ErrNotFound if the id is absent. An error
	// from mutate aborts the update and leaves the record unchanged.
	Update(ctx context.Context, id string, mutate func(*models.ScanRecord) error) (models.ScanRecord, error)
}
