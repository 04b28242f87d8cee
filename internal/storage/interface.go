package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
)

// ErrNotFound возвращается, когда запись отсутствует.
var ErrNotFound = errors.New("record not found")

// WorkSort - колонка сортировки каталога.
type WorkSort string

const (
	SortKudos    WorkSort = "kudos"
	SortComments WorkSort = "comments"
	SortWords    WorkSort = "words"
	SortHits     WorkSort = "hits"
)

// CommentSort - колонка сортировки комментариев.
type CommentSort string

const (
	SortCreatedAt CommentSort = "createdAt"
	SortUpvotes   CommentSort = "upvotes"
)

// WorkQuery - аргументы выборки страницы работ.
type WorkQuery struct {
	Predicate search.Predicate
	SortBy    WorkSort
	SortOrder domain.SortOrder
	Limit     int
	Offset    int
}

// CommentQuery - аргументы выборки видимых комментариев работы.
type CommentQuery struct {
	WorkID    int64
	SortBy    CommentSort
	SortOrder domain.SortOrder
	Limit     int
	Offset    int
}

// VoteMutation выполняется, пока строка комментария заблокирована.
// recorded - голос из журнала (VoteNone, если записи нет или voterID пуст).
// Возвращает голос, который нужно сохранить в журнал.
type VoteMutation func(comment *domain.Comment, recorded domain.VoteType) (domain.VoteType, error)

// Storage определяет контракт для хранилищ.
type Storage interface {
	Ping(ctx context.Context) error

	// Каталог
	ListWorks(ctx context.Context, q WorkQuery) ([]*domain.Work, error)
	CountWorks(ctx context.Context, p search.Predicate) (int64, error)
	GetWorkByID(ctx context.Context, id int64) (*domain.Work, error)
	GetWorkMetadata(ctx context.Context, workIDs []int64) ([]domain.MetadataRow, error)

	// Комментарии
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	ListVisibleComments(ctx context.Context, q CommentQuery) ([]*domain.Comment, error)
	CountVisibleComments(ctx context.Context, workID int64) (int64, error)
	GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error)

	// MutateCommentVotes атомарно читает комментарий (id, workID) и запись
	// журнала для voterID, вызывает fn и сохраняет счетчики и голос.
	MutateCommentVotes(ctx context.Context, commentID, workID int64, voterID string, fn VoteMutation) (*domain.Comment, error)
}
