package profile

import "errors"

var (
	ErrInvalidDirection = errors.New("invalid distribution direction")
	ErrProfileNotFound  = errors.New("profile not found")
)
