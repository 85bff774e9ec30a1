package repositories

import (
	"context"

	"github.com/BradenHooton/portfolio-gate/internal/database"
	"github.com/BradenHooton/portfolio-gate/internal/models"
)

// AttemptRecordRepository stores attempt records in Postgres
type AttemptRecordRepository struct {
	db *database.DB
}

// NewAttemptRecordRepository creates a new AttemptRecordRepository
func NewAttemptRecordRepository(db *database.DB) *AttemptRecordRepository {
	return &AttemptRecordRepository{db: db}
}

// Get returns the record for an address or models.ErrNotFound
func (r *AttemptRecordRepository) Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error) {
	query := `
		SELECT client_address, attempt_count, last_attempt_at, locked_until
		FROM attempt_records
		WHERE client_address = $1
	`

	var rec models.AttemptRecord
	err := r.db.Pool.QueryRow(ctx, query, clientAddress).Scan(
		&rec.ClientAddress,
		&rec.AttemptCount,
		&rec.LastAttemptAt,
		&rec.LockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &rec, nil
}

// Upsert inserts the record or replaces the stored one for the same address
func (r *AttemptRecordRepository) Upsert(ctx context.Context, rec *models.AttemptRecord) error {
	query := `
		INSERT INTO attempt_records (client_address, attempt_count, last_attempt_at, locked_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_address) DO UPDATE SET
			attempt_count = EXCLUDED.attempt_count,
			last_attempt_at = EXCLUDED.last_attempt_at,
			locked_until = EXCLUDED.locked_until
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.ClientAddress,
		rec.AttemptCount,
		rec.LastAttemptAt,
		rec.LockedUntil,
	)

	return err
}

// Delete removes the record for an address; deleting a missing record is not an error
func (r *AttemptRecordRepository) Delete(ctx context.Context, clientAddress string) error {
	query := `DELETE FROM attempt_records WHERE client_address = $1`
	_, err := r.db.Pool.Exec(ctx, query, clientAddress)
	return err
}

// Ping checks the database is reachable
func (r *AttemptRecordRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
