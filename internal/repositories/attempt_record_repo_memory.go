package repositories

import (
	"context"
	"sync"

	"github.com/BradenHooton/portfolio-gate/internal/models"
)

// MemoryAttemptRecordRepository keeps attempt records in process memory.
// Records do not survive a restart and are not shared between instances.
type MemoryAttemptRecordRepository struct {
	mu      sync.Mutex
	records map[string]models.AttemptRecord
}

// NewMemoryAttemptRecordRepository creates an empty in-memory repository
func NewMemoryAttemptRecordRepository() *MemoryAttemptRecordRepository {
	return &MemoryAttemptRecordRepository{
		records: make(map[string]models.AttemptRecord),
	}
}

func (r *MemoryAttemptRecordRepository) Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[clientAddress]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (r *MemoryAttemptRecordRepository) Upsert(ctx context.Context, rec *models.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.ClientAddress] = *copyRecord(*rec)
	return nil
}

func (r *MemoryAttemptRecordRepository) Delete(ctx context.Context, clientAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, clientAddress)
	return nil
}

func (r *MemoryAttemptRecordRepository) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of tracked addresses
func (r *MemoryAttemptRecordRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// copyRecord detaches the lock timestamp so callers cannot mutate stored state
func copyRecord(rec models.AttemptRecord) *models.AttemptRecord {
	if rec.LockedUntil != nil {
		lockedUntil := *rec.LockedUntil
		rec.LockedUntil = &lockedUntil
	}
	return &rec
}
