// Package services contains the cached resource services used by the CLI.
// Reads go through the query cache, writes go to the backend and then
// update or invalidate the affected cache entries.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

// DocumentAPI is the subset of the HTTP client used for documents.
type DocumentAPI interface {
	ListDocuments(ctx context.Context, p client.ListParams) (models.Paginated[models.Document], error)
	GetDocument(ctx context.Context, id int64) (models.Document, error)
	CreateDocument(ctx context.Context, in models.DocumentInput) (models.Document, error)
	UpdateDocument(ctx context.Context, id int64, in models.UpdateDocumentInput) (models.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	DownloadDocument(ctx context.Context, id int64) (*client.PDF, error)
	SendDocumentViaBot(ctx context.Context, id int64) (string, error)
}

// DocumentService defines document operations for the CLI.
//
// Contract:
//   - List, Get: cached reads.
//   - Create: invalidates every cached list.
//   - Update: invalidates lists and stores the returned document as detail.
//   - Delete: invalidates lists and drops the detail.
//   - Download: waits until the PDF has been generated.
//   - SendViaBot: asks the backend to deliver the PDF over Telegram.
//
// Concurrent mutations are not serialized; the last response wins.
type DocumentService interface {
	List(ctx context.Context, p client.ListParams) (models.Paginated[models.Document], error)
	Get(ctx context.Context, id int64) (models.Document, error)
	Create(ctx context.Context, in models.DocumentInput) (models.Document, error)
	Update(ctx context.Context, id int64, in models.UpdateDocumentInput) (models.Document, error)
	Delete(ctx context.Context, id int64) error
	Download(ctx context.Context, id int64) (*client.PDF, error)
	SendViaBot(ctx context.Context, id int64) (string, error)
}

type documentService struct {
	api    DocumentAPI
	cache  *query.Cache
	policy waitx.Policy
	log    logging.Logger
}

// NewDocumentService constructs a DocumentService. A zero policy means
// waitx.DefaultPolicy.
func NewDocumentService(api DocumentAPI, cache *query.Cache, policy waitx.Policy, log logging.Logger) DocumentService {
	if policy.MaxAttempts == 0 {
		policy = waitx.DefaultPolicy
	}
	if log == nil {
		log = logging.Nop()
	}
	return &documentService{api: api, cache: cache, policy: policy, log: log}
}

func documentKey(id int64) query.Key {
	return query.DetailKey(query.KindDocuments, strconv.FormatInt(id, 10))
}

func (s *documentService) List(ctx context.Context, p client.ListParams) (models.Paginated[models.Document], error) {
	return query.Fetch(ctx, s.cache, query.ListKey(query.KindDocuments, p.Key()),
		func(ctx context.Context) (models.Paginated[models.Document], error) {
			return s.api.ListDocuments(ctx, p)
		})
}

func (s *documentService) Get(ctx context.Context, id int64) (models.Document, error) {
	return query.Fetch(ctx, s.cache, documentKey(id), func(ctx context.Context) (models.Document, error) {
		return s.api.GetDocument(ctx, id)
	})
}

func (s *documentService) Create(ctx context.Context, in models.DocumentInput) (models.Document, error) {
	doc, err := s.api.CreateDocument(ctx, in)
	if err != nil {
		return models.Document{}, err
	}
	s.invalidateLists(ctx)
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, id int64, in models.UpdateDocumentInput) (models.Document, error) {
	doc, err := s.api.UpdateDocument(ctx, id, in)
	if err != nil {
		return models.Document{}, err
	}
	s.invalidateLists(ctx)
	if err := query.Set(ctx, s.cache, documentKey(id), doc); err != nil {
		s.log.Warn(ctx, "failed to seed document cache", "id", id, "error", err)
	}
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	if err := s.cache.Remove(ctx, documentKey(id)); err != nil {
		s.log.Warn(ctx, "failed to drop document cache", "id", id, "error", err)
	}
	return nil
}

// Download polls the backend until the PDF is available or the policy runs
// out, in which case the returned error matches both
// waitx.ErrAttemptsExhausted and client.ErrPDFNotReady.
func (s *documentService) Download(ctx context.Context, id int64) (*client.PDF, error) {
	var pdf *client.PDF
	err := waitx.Poll(ctx, s.policy, func(ctx context.Context) (bool, error) {
		p, err := s.api.DownloadDocument(ctx, id)
		if err != nil {
			if errors.Is(err, client.ErrPDFNotReady) {
				s.log.Debug(ctx, "pdf not generated yet", "id", id)
			}
			return false, err
		}
		pdf = p
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("download document %d: %w", id, err)
	}
	return pdf, nil
}

func (s *documentService) SendViaBot(ctx context.Context, id int64) (string, error) {
	return s.api.SendDocumentViaBot(ctx, id)
}

func (s *documentService) invalidateLists(ctx context.Context) {
	if err := s.cache.InvalidatePrefix(ctx, query.ListsOf(query.KindDocuments)); err != nil {
		s.log.Warn(ctx, "failed to invalidate document lists", "error", err)
	}
}
