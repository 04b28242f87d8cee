package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu            sync.RWMutex
	works         map[int64]*domain.Work
	workOrder     []int64 // id в порядке добавления
	metadata      map[int64][]domain.MetadataRow
	comments      map[int64]*domain.Comment
	commentsByWrk map[int64][]int64
	votes         map[int64]map[string]domain.VoteType // map[commentID]map[voterID]vote
	nextCommentID int64
	now           func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		works:         make(map[int64]*domain.Work),
		metadata:      make(map[int64][]domain.MetadataRow),
		comments:      make(map[int64]*domain.Comment),
		commentsByWrk: make(map[int64][]int64),
		votes:         make(map[int64]map[string]domain.VoteType),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// AddWork добавляет работу и ее метаданные. Используется для демо-данных и тестов:
// работы в каталог попадают извне.
func (s *Store) AddWork(w domain.Work, meta map[domain.MetadataKind][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.works[w.ID]; ok {
		return fmt.Errorf("work with id %d already exists", w.ID)
	}
	work := w
	s.works[w.ID] = &work
	s.workOrder = append(s.workOrder, w.ID)

	for _, kind := range domain.MetadataKinds {
		seen := make(map[string]struct{})
		for _, name := range meta[kind] {
			// пара (work_id, attribute) уникальна
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			s.metadata[w.ID] = append(s.metadata[w.ID], domain.MetadataRow{WorkID: w.ID, Kind: kind, Name: name})
		}
	}
	return nil
}

// === Work Methods ===

func (s *Store) ListWorks(ctx context.Context, q storage.WorkQuery) ([]*domain.Work, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchWorks(q.Predicate)
	sortWorks(matched, q.SortBy, q.SortOrder)

	start := q.Offset
	if start < 0 || q.Limit <= 0 || start >= len(matched) {
		return []*domain.Work{}, nil
	}
	end := start + q.Limit
	if end < start || end > len(matched) {
		end = len(matched)
	}

	// отдаем копии, чтобы вызывающий код не менял состояние хранилища
	page := make([]*domain.Work, 0, end-start)
	for _, w := range matched[start:end] {
		cp := *w
		page = append(page, &cp)
	}
	return page, nil
}

func (s *Store) CountWorks(ctx context.Context, p search.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchWorks(p))), nil
}

func (s *Store) GetWorkByID(ctx context.Context, id int64) (*domain.Work, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.works[id]
	if !ok {
		return nil, fmt.Errorf("work with id %d: %w", id, storage.ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (s *Store) GetWorkMetadata(ctx context.Context, workIDs []int64) ([]domain.MetadataRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []domain.MetadataRow
	for _, id := range workIDs {
		rows = append(rows, s.metadata[id]...)
	}
	return rows, nil
}

func (s *Store) matchWorks(p search.Predicate) []*domain.Work {
	matched := make([]*domain.Work, 0, len(s.workOrder))
	for _, id := range s.workOrder {
		if w := s.works[id]; p.Match(w) {
			matched = append(matched, w)
		}
	}
	return matched
}

func sortWorks(works []*domain.Work, by storage.WorkSort, order domain.SortOrder) {
	key := func(w *domain.Work) int {
		switch by {
		case storage.SortComments:
			return w.Comments
		case storage.SortWords:
			return w.Words
		case storage.SortHits:
			return w.Hits
		default:
			return w.Kudos
		}
	}
	// при равенстве ключей порядок по id по возрастанию
	sort.SliceStable(works, func(i, j int) bool {
		a, b := key(works[i]), key(works[j])
		if a != b {
			if order == domain.SortAsc {
				return a < b
			}
			return a > b
		}
		return works[i].ID < works[j].ID
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.works[comment.WorkID]; !ok {
		return nil, fmt.Errorf("work with id %d: %w", comment.WorkID, storage.ErrNotFound)
	}

	s.nextCommentID++
	comment.ID = s.nextCommentID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	stored := *comment
	s.comments[comment.ID] = &stored
	s.commentsByWrk[comment.WorkID] = append(s.commentsByWrk[comment.WorkID], comment.ID)

	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with id %d: %w", id, storage.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListVisibleComments(ctx context.Context, q storage.CommentQuery) ([]*domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := s.visibleComments(q.WorkID)
	sortComments(visible, q.SortBy, q.SortOrder)

	start := q.Offset
	if start < 0 || q.Limit <= 0 || start >= len(visible) {
		return []*domain.Comment{}, nil
	}
	end := start + q.Limit
	if end < start || end > len(visible) {
		end = len(visible)
	}

	page := make([]*domain.Comment, 0, end-start)
	for _, c := range visible[start:end] {
		cp := *c
		page = append(page, &cp)
	}
	return page, nil
}

func (s *Store) CountVisibleComments(ctx context.Context, workID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.visibleComments(workID))), nil
}

func (s *Store) visibleComments(workID int64) []*domain.Comment {
	ids := s.commentsByWrk[workID]
	visible := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c := s.comments[id]; c != nil && !c.IsHidden {
			visible = append(visible, c)
		}
	}
	return visible
}

func sortComments(comments []*domain.Comment, by storage.CommentSort, order domain.SortOrder) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		var cmp int
		if by == storage.SortUpvotes {
			cmp = a.Upvotes - b.Upvotes
		} else {
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp != 0 {
			if order == domain.SortAsc {
				return cmp < 0
			}
			return cmp > 0
		}
		return a.ID < b.ID
	})
}

// === Vote Methods ===

func (s *Store) MutateCommentVotes(ctx context.Context, commentID, workID int64, voterID string, fn storage.VoteMutation) (*domain.Comment, error) {
	// весь read-modify-write под одной блокировкой
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, ok := s.comments[commentID]
	if !ok || current.WorkID != workID {
		return nil, fmt.Errorf("comment with id %d: %w", commentID, storage.ErrNotFound)
	}

	recorded := domain.VoteNone
	if voterID != "" {
		recorded = s.votes[commentID][voterID]
	}

	// работаем с копией: при ошибке fn состояние не меняется
	next := *current
	vote, err := fn(&next, recorded)
	if err != nil {
		return nil, err
	}

	s.comments[commentID] = &next
	if voterID != "" {
		if vote == domain.VoteNone {
			delete(s.votes[commentID], voterID)
		} else {
			if s.votes[commentID] == nil {
				s.votes[commentID] = make(map[string]domain.VoteType)
			}
			s.votes[commentID][voterID] = vote
		}
	}

	result := next
	return &result, nil
}

// RecordedVote возвращает голос voterID из журнала.
func (s *Store) RecordedVote(commentID int64, voterID string) domain.VoteType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes[commentID][voterID]
}
