package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrSource     = errors.New("source error")
	ErrRepository = errors.New("repository error")
	ErrNoEncoding = errors.New("no usable encoding")
)

func wrapSource(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSource, err)
}
