// Package common contains shared constants and sentinel errors used across
// the obyektivka client packages.
package common

// Outbound request headers.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerPrefix            = "Bearer "
)

// Keys under which persisted credentials live in the local metadata store.
const (
	TokenMetadataKey = "token"
	UserMetadataKey  = "user"
)

// Route paths shared by the guard and the CLI.
const (
	HomePath       = "/"
	LoginPath      = "/login"
	RegisterPath   = "/register"
	DocumentsPath  = "/documents"
	ReferencesPath = "/references"
)
