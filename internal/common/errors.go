package common

import "errors"

var (
	// Session errors.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Credential errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrSealedValue  = errors.New("sealed value cannot be opened")
)
