// Package host abstracts the environment the client runs in: how the user
// is notified, asked for confirmation, handed downloaded files and
// identified. One implementation is selected at start-up.
package host

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

// Host is the set of capabilities commands may use.
type Host interface {
	// Notify shows a short message to the user.
	Notify(ctx context.Context, msg string) error
	// Confirm asks a yes/no question. A host that cannot ask declines.
	Confirm(ctx context.Context, msg string) (bool, error)
	// Download hands data to the user and returns where it ended up.
	Download(ctx context.Context, filename string, data []byte) (string, error)
	// IdentityProvider returns the user the host vouches for, if any.
	IdentityProvider() (*TelegramUser, bool)
}

// TelegramUser is the identity a Telegram host provides.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// DevUser is the identity used in development mode when no real Telegram
// user is configured.
func DevUser() TelegramUser {
	return TelegramUser{
		ID:           893968025265,
		FirstName:    "Test",
		LastName:     "User",
		Username:     "test_user",
		LanguageCode: "uz",
	}
}

// RegisterRequest builds the registration payload for u.
func (u TelegramUser) RegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
		TelegramUserID: u.ID,
	}
}

func (u TelegramUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "@" + u.Username
	}
	return name
}

// identity is embedded by hosts to answer IdentityProvider.
type identity struct {
	user *TelegramUser
}

func (i identity) IdentityProvider() (*TelegramUser, bool) {
	if i.user == nil {
		return nil, false
	}
	u := *i.user
	return &u, true
}

// IdentityFunc adapts h to the shape the bootstrapper expects.
func IdentityFunc(h Host) func() (models.RegisterRequest, bool) {
	return func() (models.RegisterRequest, bool) {
		u, ok := h.IdentityProvider()
		if !ok {
			return models.RegisterRequest{}, false
		}
		return u.RegisterRequest(), true
	}
}
