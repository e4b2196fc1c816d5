package services

import (
	"context"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

// ReferenceAPI is the subset of the HTTP client used for references.
type ReferenceAPI interface {
	ListReferences(ctx context.Context) ([]models.Reference, error)
	GetReference(ctx context.Context, id int64) (models.Reference, error)
	CreateReference(ctx context.Context, in models.ReferenceInput) (models.Reference, error)
	UpdateReference(ctx context.Context, id int64, patch models.ReferencePatch) (models.Reference, error)
	DeleteReference(ctx context.Context, id int64) error
}

// ReferenceService defines reference operations with the same cache rules
// as DocumentService.
type ReferenceService interface {
	List(ctx context.Context) ([]models.Reference, error)
	Get(ctx context.Context, id int64) (models.Reference, error)
	Create(ctx context.Context, in models.ReferenceInput) (models.Reference, error)
	Update(ctx context.Context, id int64, patch models.ReferencePatch) (models.Reference, error)
	Delete(ctx context.Context, id int64) error
}

type referenceService struct {
	api   ReferenceAPI
	cache *query.Cache
	log   logging.Logger
}

func NewReferenceService(api ReferenceAPI, cache *query.Cache, log logging.Logger) ReferenceService {
	if log == nil {
		log = logging.Nop()
	}
	return &referenceService{api: api, cache: cache, log: log}
}

// The reference list takes no parameters, so it has a single list key.
var referenceListKey = query.ListKey(query.KindReferences, "")

func referenceKey(id int64) query.Key {
	return query.DetailKey(query.KindReferences, strconv.FormatInt(id, 10))
}

func (s *referenceService) List(ctx context.Context) ([]models.Reference, error) {
	return query.Fetch(ctx, s.cache, referenceListKey, s.api.ListReferences)
}

func (s *referenceService) Get(ctx context.Context, id int64) (models.Reference, error) {
	return query.Fetch(ctx, s.cache, referenceKey(id), func(ctx context.Context) (models.Reference, error) {
		return s.api.GetReference(ctx, id)
	})
}

func (s *referenceService) Create(ctx context.Context, in models.ReferenceInput) (models.Reference, error) {
	if err := in.Validate(); err != nil {
		return models.Reference{}, err
	}
	ref, err := s.api.CreateReference(ctx, in)
	if err != nil {
		return models.Reference{}, err
	}
	s.invalidateLists(ctx)
	return ref, nil
}

func (s *referenceService) Update(ctx context.Context, id int64, patch models.ReferencePatch) (models.Reference, error) {
	ref, err := s.api.UpdateReference(ctx, id, patch)
	if err != nil {
		return models.Reference{}, err
	}
	s.invalidateLists(ctx)
	if err := query.Set(ctx, s.cache, referenceKey(id), ref); err != nil {
		s.log.Warn(ctx, "failed to seed reference cache", "id", id, "error", err)
	}
	return ref, nil
}

func (s *referenceService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteReference(ctx, id); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	if err := s.cache.Remove(ctx, referenceKey(id)); err != nil {
		s.log.Warn(ctx, "failed to drop reference cache", "id", id, "error", err)
	}
	return nil
}

func (s *referenceService) invalidateLists(ctx context.Context) {
	if err := s.cache.InvalidatePrefix(ctx, query.ListsOf(query.KindReferences)); err != nil {
		s.log.Warn(ctx, "failed to invalidate reference lists", "error", err)
	}
}
