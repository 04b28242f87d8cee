// Package comments реализует комментарии к работам, голосование и автомодерацию.
package comments

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxContentLength = 1000
	MaxAuthorLength  = 50
	AnonymousAuthor  = "Anonymous"

	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrCommentNotFound = domain.NotFoundError("Comment not found", storage.ErrNotFound)
	ErrWorkNotFound    = domain.NotFoundError("Work not found", storage.ErrNotFound)
)

// CreateCommentInput - данные нового комментария.
type CreateCommentInput struct {
	WorkID     int64
	Content    string
	AuthorName string
}

// ListCommentsParams - параметры выборки комментариев.
type ListCommentsParams struct {
	WorkID    int64
	Page      int
	PageSize  int
	SortBy    storage.CommentSort
	SortOrder domain.SortOrder
}

// CommentsPage - страница видимых комментариев.
type CommentsPage struct {
	Comments   []*domain.Comment `json:"comments"`
	Pagination domain.Pagination `json:"pagination"`
}

// VoteInput - переход голоса клиента. PrevVote используется, только если
// VoterID пуст; иначе предыдущий голос берется из журнала.
type VoteInput struct {
	WorkID    int64
	CommentID int64
	NewVote   domain.VoteType
	PrevVote  *domain.VoteType
	VoterID   string
}

// VoteResult - итог голосования.
type VoteResult struct {
	Message string          `json:"message"`
	Comment *domain.Comment `json:"comment"`
}

// Service - хранилище комментариев и машина состояний голосования.
type Service struct {
	store    storage.Storage
	observer *Observer
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store storage.Storage, observer *Observer, log logrus.FieldLogger) *Service {
	if observer == nil {
		observer = NewObserver()
	}
	return &Service{
		store:    store,
		observer: observer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateComment проверяет и сохраняет комментарий, затем уведомляет подписчиков.
func (s *Service) CreateComment(ctx context.Context, in CreateCommentInput) (*domain.Comment, error) {
	if in.WorkID <= 0 {
		return nil, domain.ValidationError("Invalid work ID")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ValidationError("comment content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, domain.ValidationError("comment content is too long")
	}
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = AnonymousAuthor
	}
	if utf8.RuneCountInString(author) > MaxAuthorLength {
		return nil, domain.ValidationError("author name is too long")
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		WorkID:     in.WorkID,
		Content:    content,
		AuthorName: author,
		CreatedAt:  s.now(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWorkNotFound
		}
		s.log.WithError(err).WithField("work_id", in.WorkID).Error("failed to create comment")
		return nil, domain.StorageError("failed to create comment", err)
	}

	s.observer.Publish(comment)
	return comment, nil
}

// ListComments возвращает страницу видимых комментариев работы.
// Скрытые комментарии не попадают ни в выборку, ни в total.
func (s *Service) ListComments(ctx context.Context, params ListCommentsParams) (*CommentsPage, error) {
	params, err := normalizeListParams(params)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountVisibleComments(ctx, params.WorkID)
	if err != nil {
		return nil, s.queryFailed(err, params.WorkID)
	}

	var comments []*domain.Comment
	if offset, ok := domain.PageOffset(params.Page, params.PageSize); ok {
		comments, err = s.store.ListVisibleComments(ctx, storage.CommentQuery{
			WorkID:    params.WorkID,
			SortBy:    params.SortBy,
			SortOrder: params.SortOrder,
			Limit:     params.PageSize,
			Offset:    offset,
		})
		if err != nil {
			return nil, s.queryFailed(err, params.WorkID)
		}
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}

	return &CommentsPage{
		Comments:   comments,
		Pagination: domain.NewPagination(params.Page, params.PageSize, total),
	}, nil
}

// Vote применяет переход голоса атомарно относительно других голосов за тот же комментарий.
func (s *Service) Vote(ctx context.Context, in VoteInput) (*VoteResult, error) {
	if in.WorkID <= 0 || in.CommentID <= 0 {
		return nil, domain.ValidationError("workId and commentId must be positive")
	}
	if !in.NewVote.Valid() {
		return nil, domain.ValidationError("newVoteType must be one of -1, 0, 1")
	}
	if in.PrevVote != nil && !in.PrevVote.Valid() {
		return nil, domain.ValidationError("prevVoteType must be one of -1, 0, 1")
	}
	if in.VoterID != "" {
		if _, err := uuid.Parse(in.VoterID); err != nil {
			return nil, domain.ValidationError("voter id must be a UUID")
		}
	}

	comment, err := s.store.MutateCommentVotes(ctx, in.CommentID, in.WorkID, in.VoterID,
		func(c *domain.Comment, recorded domain.VoteType) (domain.VoteType, error) {
			prev := recorded
			if in.VoterID == "" && in.PrevVote != nil {
				prev = *in.PrevVote
			}

			before := countersOf(c)
			after := Transition(before, prev, in.NewVote)
			after.applyTo(c)

			if before.Hidden != after.Hidden {
				s.log.WithFields(logrus.Fields{
					"comment_id": c.ID,
					"work_id":    c.WorkID,
					"downvotes":  after.Downvotes,
					"hidden":     after.Hidden,
				}).Info("comment visibility changed")
			}
			return in.NewVote, nil
		})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		s.log.WithError(err).WithField("comment_id", in.CommentID).Error("failed to update vote")
		return nil, domain.StorageError("failed to update vote", err)
	}

	return &VoteResult{Message: "Vote updated successfully", Comment: comment}, nil
}

// Subscribe подписывает на новые комментарии работы.
func (s *Service) Subscribe(workID int64) (<-chan *domain.Comment, func()) {
	return s.observer.Subscribe(workID)
}

func (s *Service) queryFailed(err error, workID int64) error {
	s.log.WithError(err).WithField("work_id", workID).Error("comment query failed")
	return domain.StorageError("query failed", err)
}

func normalizeListParams(p ListCommentsParams) (ListCommentsParams, error) {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.SortBy == "" {
		p.SortBy = storage.SortCreatedAt
	}
	if p.SortOrder == "" {
		p.SortOrder = domain.SortDesc
	}

	if p.WorkID <= 0 {
		return p, domain.ValidationError("Invalid work ID")
	}
	if p.Page < 1 {
		return p, domain.ValidationError("page must be at least 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return p, domain.ValidationError("pageSize must be between 1 and %d", MaxPageSize)
	}
	if p.SortBy != storage.SortCreatedAt && p.SortBy != storage.SortUpvotes {
		return p, domain.ValidationError("sortBy must be createdAt or upvotes")
	}
	if p.SortOrder != domain.SortAsc && p.SortOrder != domain.SortDesc {
		return p, domain.ValidationError("sortOrder must be asc or desc")
	}
	return p, nil
}
