package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/UkralStul/fanfic-archive-service/internal/catalog"
	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

type listWorksQuery struct {
	Title             string `json:"title"`
	Author            string `json:"author"`
	IsSingleCharacter string `json:"isSingleCharacter" validate:"omitempty,boolean"`
	Rating            string `json:"rating"`
	Keyword           string `json:"keyword"`
	SortBy            string `json:"sortBy" validate:"omitempty,oneof=kudos comments words hits"`
	SortOrder         string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page              string `json:"page" validate:"omitempty,number"`
	PageSize          string `json:"pageSize" validate:"omitempty,number"`
}

func (q listWorksQuery) params() (catalog.ListWorksParams, bool) {
	p := catalog.ListWorksParams{
		Filters: search.Filters{
			Title:   optional(q.Title),
			Author:  optional(q.Author),
			Rating:  optional(q.Rating),
			Keyword: optional(q.Keyword),
		},
		SortBy:    storage.WorkSort(q.SortBy),
		SortOrder: domain.SortOrder(q.SortOrder),
	}
	if q.IsSingleCharacter != "" {
		single, _ := strconv.ParseBool(q.IsSingleCharacter)
		p.Filters.IsSingleChapter = &single
	}
	var ok bool
	p.Page, p.PageSize, ok = pageParams(q.Page, q.PageSize)
	return p, ok
}

func (h *Handler) listWorks(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := listWorksQuery{
		Title:             values.Get("title"),
		Author:            values.Get("author"),
		IsSingleCharacter: values.Get("isSingleCharacter"),
		Rating:            values.Get("rating"),
		Keyword:           values.Get("keyword"),
		SortBy:            values.Get("sortBy"),
		SortOrder:         values.Get("sortOrder"),
		Page:              values.Get("page"),
		PageSize:          values.Get("pageSize"),
	}
	if msg := h.validator.Struct(q); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}

	params, ok := q.params()
	if !ok {
		writeFail(w, http.StatusBadRequest, "page and pageSize must be integers")
		return
	}

	page, err := h.catalog.ListWorks(r.Context(), params)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	message := "success"
	if page.Pagination.Total == 0 {
		message = "No works found"
	}
	writeOK(w, http.StatusOK, message, page)
}

func (h *Handler) getWork(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid work ID")
		return
	}

	work, err := h.catalog.GetWorkByID(r.Context(), id)
	if err != nil {
		// отсутствие работы - не ошибка запроса
		if errors.Is(err, catalog.ErrWorkNotFound) {
			writeOK(w, http.StatusOK, "Work not found", nil)
			return
		}
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "success", work)
}

// pageParams разбирает page и pageSize; пустое значение - 0 (значение по умолчанию).
// Число, не помещающееся в int, считается ошибкой запроса.
func pageParams(page, pageSize string) (int, int, bool) {
	var p, size int
	var err error
	if page != "" {
		if p, err = strconv.Atoi(page); err != nil {
			return 0, 0, false
		}
	}
	if pageSize != "" {
		if size, err = strconv.Atoi(pageSize); err != nil {
			return 0, 0, false
		}
	}
	return p, size, true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
