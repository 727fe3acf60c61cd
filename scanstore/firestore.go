package scanstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/purescan/purescan/models"
)

// FirestoreStore keeps the scan collection in Firestore, keyed by record id.
// It satisfies the same Store contract as FileStore and lets a deployment
// share history across devices. The local file store remains the default.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a store backed by the given Firestore collection.
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore store")
	}
	if collection == "" {
		collection = "scans"
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Create implements Store.
func (s *FirestoreStore) Create(ctx context.Context, rec models.ScanRecord) error {
	_, err := s.client.Collection(s.collection).Doc(rec.ID).Create(ctx, rec)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create scan record %s: %w", rec.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, id string) (models.ScanRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.ScanRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("failed to get scan record %s: %w", id, err)
	}

	var rec models.ScanRecord
	if err := snap.DataTo(&rec); err != nil {
		return models.ScanRecord{}, fmt.Errorf("%w: record %s: %v", ErrCorrupt, id, err)
	}
	return rec, nil
}

// List implements Store. Ordering is delegated to Firestore.
func (s *FirestoreStore) List(ctx context.Context) ([]models.ScanRecord, error) {
	iter := s.client.Collection(s.collection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	recs := []models.ScanRecord{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list scan records: %w", err)
		}
		var rec models.ScanRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrCorrupt, snap.Ref.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Update implements Store. The read-mutate-write runs inside a Firestore
// transaction, so interleaved writers on the same id cannot lose updates.
func (s *FirestoreStore) Update(ctx context.Context, id string, mutate func(*models.ScanRecord) error) (models.ScanRecord, error) {
	docRef := s.client.Collection(s.collection).Doc(id)

	var updated models.ScanRecord
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		var rec models.ScanRecord
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("%w: record %s: %v", ErrCorrupt, id, err)
		}
		prev := rec
		if err := mutate(&rec); err != nil {
			return err
		}
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt

		if err := tx.Set(docRef, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return models.ScanRecord{}, err
	}
	return updated, nil
}
