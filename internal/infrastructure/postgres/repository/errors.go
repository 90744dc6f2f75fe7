package repository

import (
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"gorm.io/gorm"
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
