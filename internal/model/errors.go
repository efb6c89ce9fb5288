package model

import "errors"

// Callers test for these with errors.Is; every domain failure wraps exactly one.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
