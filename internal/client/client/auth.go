package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (models.AuthPayload, error) {
	var env models.Envelope[models.AuthPayload]
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, req, &env); err != nil {
		return models.AuthPayload{}, err
	}
	return env.Data, nil
}

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (models.AuthPayload, error) {
	var env models.Envelope[models.AuthPayload]
	if err := c.doJSON(ctx, http.MethodPost, "/register", nil, req, &env); err != nil {
		return models.AuthPayload{}, err
	}
	return env.Data, nil
}

// Logout invalidates the current token on the backend.
func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// Me fetches the profile of the token's owner. The backend answers either
// with an envelope or with the bare user object.
func (c *HTTPClient) Me(ctx context.Context) (models.User, error) {
	var raw envelopeOrValue[models.User]
	if err := c.doJSON(ctx, http.MethodGet, "/user", nil, nil, &raw); err != nil {
		return models.User{}, err
	}
	return raw.value, nil
}
