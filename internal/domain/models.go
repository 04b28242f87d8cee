package domain

import (
	"math"
	"time"
)

// Rating - возрастной рейтинг работы.
type Rating string

const (
	RatingGeneral  Rating = "General Audiences"
	RatingTeen     Rating = "Teen And Up Audiences"
	RatingMature   Rating = "Mature"
	RatingExplicit Rating = "Explicit"
	RatingNotRated Rating = "Not Rated"
)

// Ratings перечисляет допустимые значения рейтинга.
var Ratings = []Rating{RatingGeneral, RatingTeen, RatingMature, RatingExplicit, RatingNotRated}

// Work представляет работу из каталога. Создается внешним импортом,
// сервис ее только читает.
type Work struct {
	ID         int64   `json:"id" gorm:"primaryKey"`
	Title      string  `json:"title" gorm:"type:text;not null"`
	Author     string  `json:"author" gorm:"type:text;not null"`
	Chapters   int     `json:"chapters" gorm:"not null"`
	Kudos      int     `json:"kudos" gorm:"not null;default:0;index"`
	Comments   int     `json:"comments" gorm:"not null;default:0;index"`
	Hits       int     `json:"hits" gorm:"not null;default:0;index"`
	Words      int     `json:"words" gorm:"not null;default:0;index"`
	Language   string  `json:"language" gorm:"type:varchar(64);not null"`
	Summary    *string `json:"summary" gorm:"type:text"`
	Rating     Rating  `json:"rating" gorm:"type:varchar(32);not null;index"`
	IsComplete bool    `json:"isComplete" gorm:"not null;default:false"`
}

// MetadataKind - вид many-to-many метаданных работы.
type MetadataKind string

const (
	KindTag          MetadataKind = "tags"
	KindCharacter    MetadataKind = "characters"
	KindFandom       MetadataKind = "fandoms"
	KindRelationship MetadataKind = "relationships"
	KindWarning      MetadataKind = "warnings"
	KindCategory     MetadataKind = "categories"
)

// MetadataKinds в фиксированном порядке.
var MetadataKinds = []MetadataKind{KindTag, KindCharacter, KindFandom, KindRelationship, KindWarning, KindCategory}

// MetadataRow - одна строка join-а (работа, вид, имя) до группировки.
type MetadataRow struct {
	WorkID int64        `json:"workId"`
	Kind   MetadataKind `json:"kind"`
	Name   string       `json:"name"`
}

// FlattenedWork - работа с метаданными, свернутыми в массивы строк.
type FlattenedWork struct {
	Work
	Tags          []string `json:"tags"`
	Characters    []string `json:"characters"`
	Fandoms       []string `json:"fandoms"`
	Relationships []string `json:"relationships"`
	Warnings      []string `json:"warnings"`
	Categories    []string `json:"categories"`
}

// Comment - комментарий к работе.
type Comment struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkID     int64     `json:"workId" gorm:"not null;index:idx_comments_listing,priority:1"`
	Work       *Work     `json:"-" gorm:"foreignKey:WorkID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Content    string    `json:"content" gorm:"type:varchar(1000);not null"`
	AuthorName string    `json:"authorName" gorm:"type:varchar(50);not null"`
	Upvotes    int       `json:"upvotes" gorm:"not null;default:0;check:upvotes >= 0"`
	Downvotes  int       `json:"downvotes" gorm:"not null;default:0;check:downvotes >= 0"`
	IsHidden   bool      `json:"isHidden" gorm:"not null;default:false;index:idx_comments_listing,priority:2"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// VoteType - голос одного клиента за комментарий.
type VoteType int

const (
	VoteDown VoteType = -1
	VoteNone VoteType = 0
	VoteUp   VoteType = 1
)

// Valid сообщает, является ли значение допустимым голосом.
func (v VoteType) Valid() bool {
	return v == VoteDown || v == VoteNone || v == VoteUp
}

// CommentVote - запись журнала голосов (comment_id, voter_id) -> vote_type.
type CommentVote struct {
	CommentID int64     `gorm:"primaryKey"`
	VoterID   string    `gorm:"primaryKey;type:uuid"`
	VoteType  VoteType  `gorm:"type:smallint;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Pagination - блок пагинации в ответах.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination считает totalPages; при total == 0 страниц тоже 0.
func NewPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 && total > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}

// PageOffset считает смещение страницы. ok == false, если смещение
// не помещается в int: такая страница заведомо за концом выборки.
func PageOffset(page, pageSize int) (offset int, ok bool) {
	if page < 1 || pageSize < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}

// SortOrder - направление сортировки.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
