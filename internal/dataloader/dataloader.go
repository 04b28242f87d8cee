package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	MetadataByWorkID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища. Живут в пределах одного запроса.
func NewLoaders(store storage.Storage) *Loaders {
	// Батч-функция: один запрос к хранилищу на все ключи
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		workIDs := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(keys, fmt.Errorf("invalid work id key %q: %w", k.String(), err))
			}
			workIDs[i] = id
		}

		rows, err := store.GetWorkMetadata(ctx, workIDs)
		if err != nil {
			return failAll(keys, err)
		}

		byWork := make(map[int64][]domain.MetadataRow, len(workIDs))
		for _, r := range rows {
			byWork[r.WorkID] = append(byWork[r.WorkID], r)
		}

		// Результаты в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, id := range workIDs {
			results[i] = &dataloader.Result{Data: byWork[id]}
		}
		return results
	}

	return &Loaders{
		MetadataByWorkID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

func failAll(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLoaders кладет лоадеры в контекст.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For извлекает лоадеры из контекста; nil, если их нет.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// LoadMetadata загружает строки метаданных для работ через батч-лоадер.
func (l *Loaders) LoadMetadata(ctx context.Context, workIDs []int64) ([]domain.MetadataRow, error) {
	// Сначала ставим все ключи в очередь, чтобы они попали в один батч
	thunks := make([]dataloader.Thunk, len(workIDs))
	for i, id := range workIDs {
		thunks[i] = l.MetadataByWorkID.Load(ctx, dataloader.StringKey(strconv.FormatInt(id, 10)))
	}

	var rows []domain.MetadataRow
	for _, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		if part, ok := data.([]domain.MetadataRow); ok {
			rows = append(rows, part...)
		}
	}
	return rows, nil
}
