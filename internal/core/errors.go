package core

import "errors"

// Sentinel errors for the core package.
var (
	ErrUnknownModule   = errors.New("unknown module")
	ErrServiceNotFound = errors.New("service not registered")
	ErrServiceType     = errors.New("service has unexpected type")
)
