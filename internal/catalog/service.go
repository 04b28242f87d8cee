// Package catalog выполняет поиск, сортировку и пагинацию работ каталога.
package catalog

import (
	"context"
	"errors"

	"github.com/UkralStul/fanfic-archive-service/internal/dataloader"
	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ErrWorkNotFound - работа с таким id отсутствует.
var ErrWorkNotFound = domain.NotFoundError("Work not found", storage.ErrNotFound)

// ListWorksParams - параметры выборки каталога.
type ListWorksParams struct {
	Filters   search.Filters
	SortBy    storage.WorkSort
	SortOrder domain.SortOrder
	Page      int
	PageSize  int
}

// WorksPage - страница каталога.
type WorksPage struct {
	Works      []*domain.FlattenedWork `json:"works"`
	Pagination domain.Pagination       `json:"pagination"`
}

// Service - движок запросов к каталогу.
type Service struct {
	store storage.Storage
	log   logrus.FieldLogger
}

func NewService(store storage.Storage, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

// ListWorks возвращает страницу работ и общее число совпадений по тому же предикату.
func (s *Service) ListWorks(ctx context.Context, params ListWorksParams) (*WorksPage, error) {
	params, err := normalizeListParams(params)
	if err != nil {
		return nil, err
	}

	predicate := search.Build(params.Filters)
	works := []*domain.Work{}
	if offset, ok := domain.PageOffset(params.Page, params.PageSize); ok {
		works, err = s.store.ListWorks(ctx, storage.WorkQuery{
			Predicate: predicate,
			SortBy:    params.SortBy,
			SortOrder: params.SortOrder,
			Limit:     params.PageSize,
			Offset:    offset,
		})
		if err != nil {
			return nil, s.queryFailed(err, "list works")
		}
	}

	total, err := s.store.CountWorks(ctx, predicate)
	if err != nil {
		return nil, s.queryFailed(err, "count works")
	}

	flattened, err := s.flatten(ctx, works)
	if err != nil {
		return nil, s.queryFailed(err, "load work metadata")
	}

	return &WorksPage{
		Works:      flattened,
		Pagination: domain.NewPagination(params.Page, params.PageSize, total),
	}, nil
}

// GetWorkByID возвращает работу со всеми шестью видами метаданных.
// Отсутствие работы - ErrWorkNotFound, а не работа с пустыми массивами.
func (s *Service) GetWorkByID(ctx context.Context, id int64) (*domain.FlattenedWork, error) {
	if id <= 0 {
		return nil, domain.ValidationError("Invalid work ID")
	}

	work, err := s.store.GetWorkByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWorkNotFound
		}
		return nil, s.queryFailed(err, "get work")
	}

	rows, err := s.store.GetWorkMetadata(ctx, []int64{work.ID})
	if err != nil {
		return nil, s.queryFailed(err, "load work metadata")
	}
	return Flatten([]*domain.Work{work}, rows)[0], nil
}

func (s *Service) flatten(ctx context.Context, works []*domain.Work) ([]*domain.FlattenedWork, error) {
	if len(works) == 0 {
		return []*domain.FlattenedWork{}, nil
	}
	ids := make([]int64, len(works))
	for i, w := range works {
		ids[i] = w.ID
	}

	var (
		rows []domain.MetadataRow
		err  error
	)
	if loaders := dataloader.For(ctx); loaders != nil {
		rows, err = loaders.LoadMetadata(ctx, ids)
	} else {
		rows, err = s.store.GetWorkMetadata(ctx, ids)
	}
	if err != nil {
		return nil, err
	}
	return Flatten(works, rows), nil
}

func (s *Service) queryFailed(err error, op string) error {
	s.log.WithError(err).WithField("op", op).Error("catalog query failed")
	return domain.StorageError("query failed", err)
}

func normalizeListParams(p ListWorksParams) (ListWorksParams, error) {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.SortBy == "" {
		p.SortBy = storage.SortKudos
	}
	if p.SortOrder == "" {
		p.SortOrder = domain.SortDesc
	}

	if p.Page < 1 {
		return p, domain.ValidationError("page must be at least 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return p, domain.ValidationError("pageSize must be between 1 and %d", MaxPageSize)
	}
	switch p.SortBy {
	case storage.SortKudos, storage.SortComments, storage.SortWords, storage.SortHits:
	default:
		return p, domain.ValidationError("sortBy must be one of kudos, comments, words, hits")
	}
	if p.SortOrder != domain.SortAsc && p.SortOrder != domain.SortDesc {
		return p, domain.ValidationError("sortOrder must be asc or desc")
	}
	if p.Filters.Rating != nil && *p.Filters.Rating != "" && !validRating(*p.Filters.Rating) {
		return p, domain.ValidationError("rating must be one of the archive ratings")
	}
	return p, nil
}

func validRating(r string) bool {
	for _, known := range domain.Ratings {
		if string(known) == r {
			return true
		}
	}
	return false
}
