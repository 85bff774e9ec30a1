package database

import (
	"errors"

	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/jackc/pgx/v5"
)

// MapPostgresError translates driver errors into model sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	return err
}
