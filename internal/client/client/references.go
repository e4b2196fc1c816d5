package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

func referencePath(id int64) string {
	return "/references/" + strconv.FormatInt(id, 10)
}

func (c *HTTPClient) ListReferences(ctx context.Context) ([]models.Reference, error) {
	var body listBody[models.Reference]
	if err := c.doJSON(ctx, http.MethodGet, "/references", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.page.Data, nil
}

func (c *HTTPClient) GetReference(ctx context.Context, id int64) (models.Reference, error) {
	var env envelopeOrValue[models.Reference]
	if err := c.doJSON(ctx, http.MethodGet, referencePath(id), nil, nil, &env); err != nil {
		return models.Reference{}, err
	}
	return env.value, nil
}

func (c *HTTPClient) CreateReference(ctx context.Context, in models.ReferenceInput) (models.Reference, error) {
	var env envelopeOrValue[models.Reference]
	if err := c.doJSON(ctx, http.MethodPost, "/references", nil, in, &env); err != nil {
		return models.Reference{}, err
	}
	return env.value, nil
}

func (c *HTTPClient) UpdateReference(ctx context.Context, id int64, patch models.ReferencePatch) (models.Reference, error) {
	var env envelopeOrValue[models.Reference]
	if err := c.doJSON(ctx, http.MethodPut, referencePath(id), nil, patch, &env); err != nil {
		return models.Reference{}, err
	}
	return env.value, nil
}

func (c *HTTPClient) DeleteReference(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, referencePath(id), nil, nil, nil)
}
