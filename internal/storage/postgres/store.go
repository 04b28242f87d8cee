package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/search"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// код ошибки postgres: foreign_key_violation
const fkViolation = "23503"

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL и мигрирует схему.
func New(dsn string, logLevel logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB оборачивает готовое подключение без миграции.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Work Methods ===

func (s *Store) ListWorks(ctx context.Context, q storage.WorkQuery) ([]*domain.Work, error) {
	var works []*domain.Work
	err := s.worksQuery(ctx, q).Find(&works).Error
	if err != nil {
		return nil, err
	}
	return works, nil
}

// worksQuery собирает запрос страницы; вынесен отдельно для проверки SQL в DryRun.
func (s *Store) worksQuery(ctx context.Context, q storage.WorkQuery) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&domain.Work{})
	if expr := predicateExpr(q.Predicate); expr != nil {
		tx = tx.Where(expr)
	}
	return tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: workSortColumn(q.SortBy)}, Desc: q.SortOrder != domain.SortAsc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(q.Limit).
		Offset(q.Offset)
}

func (s *Store) CountWorks(ctx context.Context, p search.Predicate) (int64, error) {
	var total int64
	tx := s.db.WithContext(ctx).Model(&domain.Work{})
	if expr := predicateExpr(p); expr != nil {
		tx = tx.Where(expr)
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetWorkByID(ctx context.Context, id int64) (*domain.Work, error) {
	var work domain.Work
	if err := s.db.WithContext(ctx).First(&work, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("work with id %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	return &work, nil
}

// GetWorkMetadata одним запросом (UNION ALL по шести связям) достает строки
// метаданных для переданных работ.
func (s *Store) GetWorkMetadata(ctx context.Context, workIDs []int64) ([]domain.MetadataRow, error) {
	if len(workIDs) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(relations))
	args := make([]any, 0, len(relations))
	for _, r := range relations {
		parts = append(parts, fmt.Sprintf(
			"SELECT j.work_id AS work_id, '%s' AS kind, m.name AS name FROM %s j JOIN %s m ON m.id = j.%s WHERE j.work_id IN ?",
			r.kind, r.joinTable, r.table, r.column,
		))
		args = append(args, workIDs)
	}
	query := strings.Join(parts, " UNION ALL ") + " ORDER BY work_id, kind, name"

	var rows []domain.MetadataRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func workSortColumn(by storage.WorkSort) string {
	switch by {
	case storage.SortComments, storage.SortWords, storage.SortHits:
		return string(by)
	default:
		return string(storage.SortKudos)
	}
}

// predicateExpr переводит предикат в выражение gorm; nil - без фильтра.
func predicateExpr(p search.Predicate) clause.Expression {
	switch p.Op {
	case search.OpAnd, search.OpOr:
		exprs := make([]clause.Expression, 0, len(p.Children))
		for _, c := range p.Children {
			if e := predicateExpr(c); e != nil {
				exprs = append(exprs, e)
			}
		}
		if len(exprs) == 0 {
			return nil
		}
		if p.Op == search.OpOr {
			return clause.Or(exprs...)
		}
		return clause.And(exprs...)
	case search.OpContains:
		value, _ := p.Value.(string)
		return clause.Expr{
			SQL:  `? ILIKE ?`,
			Vars: []any{clause.Column{Name: string(p.Field)}, search.LikePattern(value)},
		}
	case search.OpEquals:
		return clause.Eq{Column: clause.Column{Name: string(p.Field)}, Value: p.Value}
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return nil, fmt.Errorf("work with id %d: %w", comment.WorkID, storage.ErrNotFound)
		}
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment with id %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (s *Store) ListVisibleComments(ctx context.Context, q storage.CommentQuery) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := s.commentsQuery(ctx, q).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) commentsQuery(ctx context.Context, q storage.CommentQuery) *gorm.DB {
	column := "created_at"
	if q.SortBy == storage.SortUpvotes {
		column = "upvotes"
	}
	return s.db.WithContext(ctx).
		Where("work_id = ? AND is_hidden = ?", q.WorkID, false).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: q.SortOrder != domain.SortAsc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(q.Limit).
		Offset(q.Offset)
}

func (s *Store) CountVisibleComments(ctx context.Context, workID int64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("work_id = ? AND is_hidden = ?", workID, false).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// === Vote Methods ===

// MutateCommentVotes блокирует строку комментария (SELECT ... FOR UPDATE),
// чтобы параллельные голоса за один комментарий не терялись.
func (s *Store) MutateCommentVotes(ctx context.Context, commentID, workID int64, voterID string, fn storage.VoteMutation) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockComment(tx, commentID, workID).First(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("comment with id %d: %w", commentID, storage.ErrNotFound)
			}
			return err
		}

		recorded := domain.VoteNone
		if voterID != "" {
			var entry domain.CommentVote
			err := tx.Where("comment_id = ? AND voter_id = ?", commentID, voterID).Take(&entry).Error
			switch {
			case err == nil:
				recorded = entry.VoteType
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return err
			}
		}

		vote, err := fn(&comment, recorded)
		if err != nil {
			return err
		}

		// map, чтобы gorm записал и нулевые значения
		err = tx.Model(&domain.Comment{}).Where("id = ?", comment.ID).Updates(map[string]any{
			"upvotes":   comment.Upvotes,
			"downvotes": comment.Downvotes,
			"is_hidden": comment.IsHidden,
		}).Error
		if err != nil {
			return err
		}

		if voterID == "" {
			return nil
		}
		if vote == domain.VoteNone {
			return deleteLedgerEntry(tx, commentID, voterID).Error
		}
		return upsertLedgerEntry(tx, &domain.CommentVote{
			CommentID: commentID,
			VoterID:   voterID,
			VoteType:  vote,
			UpdatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// lockComment - SELECT ... FOR UPDATE по комментарию конкретной работы.
func lockComment(tx *gorm.DB, commentID, workID int64) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND work_id = ?", commentID, workID)
}

func upsertLedgerEntry(tx *gorm.DB, entry *domain.CommentVote) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comment_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
	}).Create(entry)
}

func deleteLedgerEntry(tx *gorm.DB, commentID int64, voterID string) *gorm.DB {
	return tx.Where("comment_id = ? AND voter_id = ?", commentID, voterID).Delete(&domain.CommentVote{})
}
