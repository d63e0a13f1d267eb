package repository

import (
	"errors"
	"fmt"

	"farmfeed/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translateError maps driver errors onto the feed's error taxonomy.
// AppErrors raised inside a transaction pass through unchanged.
func translateError(err error, resource string, id string) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return models.NewStorageError(fmt.Errorf("postgres %s: %w", pgErr.Code, err))
	}
	return models.NewStorageError(err)
}
