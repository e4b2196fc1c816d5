// Package models holds the wire types exchanged with the obyektivka backend
// and the input types the client assembles before sending them.
package models

import (
	"strings"
	"time"
)

const RoleAdmin = "admin"

// User is the backend's account record. The client only keeps a cached copy.
type User struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Username       string    `json:"username,omitempty"`
	Email          string    `json:"email,omitempty"`
	TelegramUserID int64     `json:"telegram_user_id"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user may use the "all documents" view.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type LoginRequest struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
}

type RegisterRequest struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
}

// LoginRequest returns the login payload for the same identity.
func (r RegisterRequest) LoginRequest() LoginRequest {
	return LoginRequest{TelegramUserID: r.TelegramUserID, FirstName: r.FirstName, LastName: r.LastName}
}

// AuthPayload is the data part of a successful login or register response.
type AuthPayload struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
