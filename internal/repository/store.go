package repository

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// AnalysisRecordStore owns durable storage and id assignment for analysis records.
type AnalysisRecordStore interface {
	// Create assigns an id, stores the record and returns the id.
	Create(ctx context.Context, rec *entity.AnalysisRecord) (string, error)
	// GetByID returns common.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*entity.AnalysisRecord, error)
	// List returns one page (1-based) and the total record count.
	List(ctx context.Context, page, perPage int) ([]*entity.AnalysisRecord, int, error)
}

// Store is a record store with a connection lifecycle.
type Store interface {
	AnalysisRecordStore
	Ping(ctx context.Context) error
	Close() error
}

func checkPage(page, perPage int) error {
	if page < 1 || perPage < 1 {
		return common.InvalidInputErrorf("page and per_page must be positive (got %d, %d)", page, perPage)
	}
	return nil
}

// prepare assigns the id, normalizes the timestamp and returns the validated encoding.
func prepare(rec *entity.AnalysisRecord, id string) ([]byte, error) {
	rec.ID = id
	rec.UploadedAt = rec.UploadedAt.UTC()
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, common.PersistenceError("encode record", err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, common.PersistenceError("invalid record", err)
	}
	return doc, nil
}

func decode(doc []byte) (*entity.AnalysisRecord, error) {
	var rec entity.AnalysisRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, common.PersistenceError("decode record", err)
	}
	return &rec, nil
}
