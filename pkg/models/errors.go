package models

import "errors"

var (
	ErrValidation  = errors.New("invalid input")
	ErrStorage     = errors.New("artifact not persisted")
	ErrPersistence = errors.New("catalog store failure")
	ErrNotFound    = errors.New("not found")
)
