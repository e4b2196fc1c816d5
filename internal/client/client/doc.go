// Package client talks to the obyektivka REST backend.
//
// # Overview
//
// HTTPClient wraps net/http with the behavior every call shares:
//  1. A base URL, default headers (Accept: application/json) and a 15 second
//     timeout.
//  2. Request middleware that attaches the session's bearer token and a fresh
//     X-Request-ID.
//  3. Response middleware that invalidates the session on 401 and reports the
//     login path through the OnUnauthorized hook, then normalizes every other
//     failure into *APIError.
//
// Endpoint methods cover session lifecycle (Login, Register, Logout, Me),
// documents (list, detail, multipart create/update, delete, PDF download,
// delivery through the Telegram bot) and references.
//
// # Error Handling
//
// Non-2xx responses become *APIError carrying the status, the backend
// message and the field errors of a validation failure. Requests that got no
// response at all fail with an error matching ErrUnavailable. Match the
// conditions with errors.Is: ErrUnauthorized, ErrUnavailable, ErrNotFound,
// ErrConflict, ErrValidation.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor its cancellation.
package client
