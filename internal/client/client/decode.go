package client

import (
	"bytes"
	"encoding/json"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

// envelopeOrValue decodes either {"data": {...}, ...} or a bare T. A "data"
// key holding an object is always the payload, with or without "success".
type envelopeOrValue[T any] struct {
	value T
}

func (e *envelopeOrValue[T]) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err == nil {
		if data := bytes.TrimSpace(fields["data"]); len(data) > 0 && data[0] == '{' {
			return json.Unmarshal(data, &e.value)
		}
	}
	return json.Unmarshal(b, &e.value)
}

// listBody decodes the shapes list endpoints answer with: an envelope around
// a plain array, an envelope around a page, or a bare page.
type listBody[T any] struct {
	page models.Paginated[T]
}

func (l *listBody[T]) UnmarshalJSON(b []byte) error {
	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &outer); err != nil {
		return err
	}

	data := bytes.TrimSpace(outer.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		l.page = models.Paginated[T]{Data: []T{}, CurrentPage: 1, LastPage: 1}
		return nil
	case data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		var meta models.Paginated[T]
		if err := json.Unmarshal(b, &meta); err != nil {
			return err
		}
		if meta.CurrentPage == 0 {
			meta = models.Paginated[T]{CurrentPage: 1, LastPage: 1, PerPage: len(items), Total: len(items)}
		}
		meta.Data = items
		l.page = meta
		return nil
	default:
		return json.Unmarshal(data, &l.page)
	}
}
