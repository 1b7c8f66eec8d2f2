package service

import "errors"

var (
	ErrEmptyName     = errors.New("display name is required")
	ErrEmptyGallery  = errors.New("no enrolled identities")
	ErrInvalidFormat = errors.New("invalid exchange document")
)
