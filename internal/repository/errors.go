package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConcurrentUpdate = errors.New("concurrent update - record was modified by another request")
	ErrDuplicate        = errors.New("duplicate record")
	ErrCacheDisabled    = errors.New("redis not configured")
	// ErrStorage marks infrastructure failures; callers may retry these
	ErrStorage = errors.New("storage failure")
)

// storageErr wraps a database error so both ErrStorage and the cause stay matchable
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// translate maps gorm errors onto the repository sentinels
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return storageErr(op, err)
	}
}
