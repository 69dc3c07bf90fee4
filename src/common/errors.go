package common

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrSlotTaken         = errors.New("this time slot is already booked, please choose another")
	ErrInvalidTransition = errors.New("invalid status change")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
