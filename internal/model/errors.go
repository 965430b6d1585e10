package model

import "errors"

// Domain error categories. Callers wrap these with fmt.Errorf("%w: ...") so
// the message carries detail while errors.Is still selects the category.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("not authenticated")
)
