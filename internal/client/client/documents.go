package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/formdata"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/imagex"
)

// Document list filters understood by the backend.
const (
	FilterAll  = "all"
	FilterMine = "mine"
)

// ListParams narrows a document list. Zero fields are not sent.
type ListParams struct {
	Filter string
	Search string
	Page   int
}

func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Filter != "" {
		v.Set("filter", p.Filter)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

// Key is a stable string form of p, used as a cache key component.
func (p ListParams) Key() string {
	return p.Values().Encode()
}

// PDF is a downloaded document rendering.
type PDF struct {
	Filename string
	Data     []byte
}

func documentPath(id int64) string {
	return "/documents/" + strconv.FormatInt(id, 10)
}

func (c *HTTPClient) ListDocuments(ctx context.Context, p ListParams) (models.Paginated[models.Document], error) {
	var body listBody[models.Document]
	if err := c.doJSON(ctx, http.MethodGet, "/documents", p.Values(), nil, &body); err != nil {
		return models.Paginated[models.Document]{}, err
	}
	return body.page, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, id int64) (models.Document, error) {
	var env envelopeOrValue[models.Document]
	if err := c.doJSON(ctx, http.MethodGet, documentPath(id), nil, nil, &env); err != nil {
		return models.Document{}, err
	}
	return env.value, nil
}

func (c *HTTPClient) CreateDocument(ctx context.Context, in models.DocumentInput) (models.Document, error) {
	return c.sendForm(ctx, http.MethodPost, "/documents", formdata.Create(in))
}

// UpdateDocument sends a multipart PUT with only the parts present in in.
func (c *HTTPClient) UpdateDocument(ctx context.Context, id int64, in models.UpdateDocumentInput) (models.Document, error) {
	return c.sendForm(ctx, http.MethodPut, documentPath(id), formdata.Update(in))
}

func (c *HTTPClient) sendForm(ctx context.Context, method, path string, f formdata.Form) (models.Document, error) {
	width := c.maxPhotoWidth
	if width == 0 {
		width = imagex.DefaultMaxWidth
	}
	body, ctype, err := f.Encode(width)
	if err != nil {
		return models.Document{}, err
	}

	var env envelopeOrValue[models.Document]
	err = c.send(ctx, request{method: method, path: path, body: body, contentType: ctype}, &env)
	if err != nil {
		return models.Document{}, err
	}
	return env.value, nil
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, documentPath(id), nil, nil, nil)
}

// DownloadDocument fetches the generated PDF. While the backend is still
// rendering it (404, 409 or 202) the error matches ErrPDFNotReady.
func (c *HTTPClient) DownloadDocument(ctx context.Context, id int64) (*PDF, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: documentPath(id) + "/download", accept: contentTypePDF})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusConflict) {
			return nil, fmt.Errorf("%w: %s", ErrPDFNotReady, apiErr.Message)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil, ErrPDFNotReady
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrPDFNotReady
	}

	return &PDF{Filename: pdfFilename(resp.Header.Get("Content-Disposition"), id), Data: data}, nil
}

func pdfFilename(disposition string, id int64) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return fmt.Sprintf("document_%d.pdf", id)
}

// SendDocumentViaBot asks the backend to deliver the generated PDF through the
// Telegram bot and returns the backend's confirmation message.
func (c *HTTPClient) SendDocumentViaBot(ctx context.Context, id int64) (string, error) {
	var env models.Envelope[any]
	if err := c.doJSON(ctx, http.MethodPost, documentPath(id)+"/send-via-bot", nil, nil, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}
