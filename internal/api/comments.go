package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/UkralStul/fanfic-archive-service/internal/comments"
	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

// VoterHeader - необязательный UUID клиента для журнала голосов.
const VoterHeader = "X-Voter-ID"

type listCommentsQuery struct {
	SortBy    string `json:"sortBy" validate:"omitempty,oneof=createdAt upvotes"`
	SortOrder string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      string `json:"page" validate:"omitempty,number"`
	PageSize  string `json:"pageSize" validate:"omitempty,number"`
}

type createCommentRequest struct {
	WorkID     int64  `json:"workId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
	AuthorName string `json:"authorName"`
}

type voteRequest struct {
	WorkID       int64 `json:"workId" validate:"required,gt=0"`
	CommentID    int64 `json:"commentId" validate:"required,gt=0"`
	NewVoteType  *int  `json:"newVoteType" validate:"required,oneof=-1 0 1"`
	PrevVoteType *int  `json:"prevVoteType" validate:"omitempty,oneof=-1 0 1"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}

	values := r.URL.Query()
	q := listCommentsQuery{
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
		Page:      values.Get("page"),
		PageSize:  values.Get("pageSize"),
	}
	if msg := h.validator.Struct(q); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}
	params := comments.ListCommentsParams{
		WorkID:    workID,
		SortBy:    storage.CommentSort(q.SortBy),
		SortOrder: domain.SortOrder(q.SortOrder),
	}
	params.Page, params.PageSize, ok = pageParams(q.Page, q.PageSize)
	if !ok {
		writeFail(w, http.StatusBadRequest, "page and pageSize must be integers")
		return
	}

	page, err := h.comments.ListComments(r.Context(), params)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	message := "success"
	if page.Pagination.Total == 0 {
		message = "No comments found"
	}
	writeOK(w, http.StatusOK, message, page)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}

	comment, err := h.comments.CreateComment(r.Context(), comments.CreateCommentInput{
		WorkID:     req.WorkID,
		Content:    req.Content,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, "Comment created successfully", comment)
}

func (h *Handler) voteComment(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}

	in := comments.VoteInput{
		WorkID:    req.WorkID,
		CommentID: req.CommentID,
		NewVote:   domain.VoteType(*req.NewVoteType),
		VoterID:   r.Header.Get(VoterHeader),
	}
	if req.PrevVoteType != nil {
		prev := domain.VoteType(*req.PrevVoteType)
		in.PrevVote = &prev
	}

	res, err := h.comments.Vote(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, res.Message, res.Comment)
}

func workIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "workId"), 10, 64)
	if err != nil || id <= 0 {
		writeFail(w, http.StatusBadRequest, "Invalid work ID")
		return 0, false
	}
	return id, true
}
