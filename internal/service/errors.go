package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("service unavailable")
)

// translate maps storage errors onto service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: record is still referenced", ErrConflict)
	case errors.Is(err, repository.ErrStaleState):
		return ErrConflict
	default:
		return err
	}
}
