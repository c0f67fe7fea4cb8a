package core

import "github.com/pkg/errors"

// errors
var (
	ErrNilCore          = errors.New("rolegate core is nil")
	ErrNilStore         = errors.New("store is nil")
	ErrNilRegistry      = errors.New("role registry is nil")
	ErrAlreadyInitiated = errors.New("core is already initialized")
)
