package catalog

import (
	"context"
	"errors"
	"math"
	"fmt"
	"testing"

	"github.com/UkralStul/fanfic-archive-service/internal/dataloader"
	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/UkralStul/fanfic-archive-service/internal/storage/inmemory"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// newTestService создает каталог из 8 работ с "Dragon" в названии и 2 без.
func newTestService(t *testing.T) (*Service, *inmemory.Store) {
	store := inmemory.New()
	for i := 1; i <= 10; i++ {
		title := fmt.Sprintf("Dragon Tale %d", i)
		if i > 8 {
			title = fmt.Sprintf("Quiet Story %d", i)
		}
		err := store.AddWork(domain.Work{
			ID:       int64(i),
			Title:    title,
			Author:   "author",
			Chapters: i,
			Kudos:    100 - i*5,
			Hits:     i % 3, // много равных значений
			Words:    1000 * i,
			Language: "English",
			Rating:   domain.RatingGeneral,
		}, map[domain.MetadataKind][]string{
			domain.KindWarning: {"No Archive Warnings Apply"},
			domain.KindFandom:  {fmt.Sprintf("Fandom %d", i%2)},
		})
		require.NoError(t, err)
	}
	log, _ := logtest.NewNullLogger()
	return NewService(store, log), store
}

func workIDs(works []*domain.FlattenedWork) []int64 {
	ids := make([]int64, 0, len(works))
	for _, w := range works {
		ids = append(ids, w.ID)
	}
	return ids
}

func TestListWorks_PaginationTotalsIndependentOfWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	filters := search.Filters{Title: strPtr("dragon")}

	first, err := svc.ListWorks(ctx, ListWorksParams{Filters: filters, Page: 1, PageSize: 5})
	require.NoError(t, err)
	second, err := svc.ListWorks(ctx, ListWorksParams{Filters: filters, Page: 2, PageSize: 5})
	require.NoError(t, err)

	for _, page := range []*WorksPage{first, second} {
		assert.Equal(t, int64(8), page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	}
	assert.Len(t, first.Works, 5)
	assert.Len(t, second.Works, 3)

	seen := make(map[int64]bool)
	for _, id := range append(workIDs(first.Works), workIDs(second.Works)...) {
		assert.False(t, seen[id], "work %d returned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 8)
}

func TestListWorks_DefaultsSortByKudosDesc(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.PageSize)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, workIDs(page.Works))
}

func TestListWorks_TiesBrokenByID(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{SortBy: storage.SortHits, SortOrder: domain.SortAsc})
	require.NoError(t, err)

	// hits = i % 3: 0 -> 3,6,9; 1 -> 1,4,7,10; 2 -> 2,5,8
	assert.Equal(t, []int64{3, 6, 9, 1, 4, 7, 10, 2, 5, 8}, workIDs(page.Works))
}

func TestListWorks_PageBeyondEnd(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{Page: 5, PageSize: 5})
	require.NoError(t, err)
	assert.NotNil(t, page.Works)
	assert.Empty(t, page.Works)
	assert.Equal(t, int64(10), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestListWorks_HugePageDoesNotOverflow(t *testing.T) {
	svc, _ := newTestService(t)

	var page *WorksPage
	var err error
	require.NotPanics(t, func() {
		page, err = svc.ListWorks(context.Background(), ListWorksParams{Page: math.MaxInt64 / 5, PageSize: 10})
	})
	require.NoError(t, err)
	assert.NotNil(t, page.Works)
	assert.Empty(t, page.Works)
	assert.Equal(t, int64(10), page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	assert.Equal(t, math.MaxInt64/5, page.Pagination.Page)
}

func TestListWorks_NoMatches(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{Filters: search.Filters{Keyword: strPtr("nothing-like-this")}})
	require.NoError(t, err)
	assert.Empty(t, page.Works)
	assert.Equal(t, int64(0), page.Pagination.Total)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}

func TestListWorks_FlattensMetadata(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Works, 2)

	assert.Equal(t, []string{"No Archive Warnings Apply"}, page.Works[0].Warnings)
	assert.Equal(t, []string{"Fandom 1"}, page.Works[0].Fandoms)
	assert.Equal(t, []string{"Fandom 0"}, page.Works[1].Fandoms)
	assert.NotNil(t, page.Works[0].Tags)
}

func TestListWorks_UsesRequestDataloader(t *testing.T) {
	svc, store := newTestService(t)
	counting := &countingStore{Storage: store}
	svc.store = counting
	ctx := dataloader.WithLoaders(context.Background(), dataloader.NewLoaders(counting))

	page, err := svc.ListWorks(ctx, ListWorksParams{PageSize: 4})
	require.NoError(t, err)
	assert.Len(t, page.Works, 4)
	assert.Equal(t, 1, counting.metadataCalls)
	assert.Equal(t, []string{"No Archive Warnings Apply"}, page.Works[3].Warnings)
}

func TestListWorks_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []ListWorksParams{
		{Page: -1},
		{PageSize: MaxPageSize + 1},
		{SortBy: "title"},
		{SortOrder: "sideways"},
		{Filters: search.Filters{Rating: strPtr("PG-13")}},
	}
	for _, p := range cases {
		_, err := svc.ListWorks(ctx, p)
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestListWorks_StorageFailurePropagates(t *testing.T) {
	_, store := newTestService(t)
	log, hook := logtest.NewNullLogger()
	cause := errors.New("connection reset")
	svc := NewService(&failingStore{Storage: store, err: cause}, log)

	page, err := svc.ListWorks(context.Background(), ListWorksParams{})
	assert.Nil(t, page)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.Contains(t, err.Error(), "query failed")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestGetWorkByID_NotFoundVsEmptyMetadata(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.AddWork(domain.Work{ID: 42, Title: "Bare", Rating: domain.RatingNotRated}, nil))

	_, err := svc.GetWorkByID(ctx, 4242)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	bare, err := svc.GetWorkByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Bare", bare.Title)
	assert.Empty(t, bare.Tags)
	assert.NotNil(t, bare.Categories)

	full, err := svc.GetWorkByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fandom 1"}, full.Fandoms)
	assert.Equal(t, []string{"No Archive Warnings Apply"}, full.Warnings)
}

func TestGetWorkByID_InvalidID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetWorkByID(context.Background(), 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

type countingStore struct {
	storage.Storage
	metadataCalls int
}

func (c *countingStore) GetWorkMetadata(ctx context.Context, ids []int64) ([]domain.MetadataRow, error) {
	c.metadataCalls++
	return c.Storage.GetWorkMetadata(ctx, ids)
}

type failingStore struct {
	storage.Storage
	err error
}

func (f *failingStore) ListWorks(ctx context.Context, q storage.WorkQuery) ([]*domain.Work, error) {
	return nil, f.err
}
