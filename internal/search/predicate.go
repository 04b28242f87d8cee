// Package search строит предикаты фильтрации каталога работ.
package search

import (
	"strings"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
)

// Field - колонка работы, по которой строится условие.
type Field string

const (
	FieldTitle    Field = "title"
	FieldAuthor   Field = "author"
	FieldChapters Field = "chapters"
	FieldRating   Field = "rating"
	FieldSummary  Field = "summary"
)

// Op - вид узла предиката.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpContains
	OpEquals
)

// Predicate - дерево условий над строками works.
// Пустой AND (без детей) означает отсутствие фильтра.
type Predicate struct {
	Op       Op
	Field    Field
	Value    any
	Children []Predicate
}

// Filters - необязательные параметры поиска.
type Filters struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	IsSingleChapter *bool   `json:"isSingleCharacter,omitempty"`
	Rating          *string `json:"rating,omitempty"`
	Keyword         *string `json:"keyword,omitempty"`
}

// condition добавляет не более одного фрагмента предиката.
type condition func(f Filters) (Predicate, bool)

// порядок фиксирован, чтобы результат был детерминированным
var conditions = []condition{
	func(f Filters) (Predicate, bool) {
		if f.Title == nil || *f.Title == "" {
			return Predicate{}, false
		}
		return Contains(FieldTitle, *f.Title), true
	},
	func(f Filters) (Predicate, bool) {
		if f.Author == nil || *f.Author == "" {
			return Predicate{}, false
		}
		return Contains(FieldAuthor, *f.Author), true
	},
	func(f Filters) (Predicate, bool) {
		if f.IsSingleChapter == nil || !*f.IsSingleChapter {
			return Predicate{}, false
		}
		return Equals(FieldChapters, 1), true
	},
	func(f Filters) (Predicate, bool) {
		if f.Rating == nil || *f.Rating == "" {
			return Predicate{}, false
		}
		return Equals(FieldRating, *f.Rating), true
	},
	func(f Filters) (Predicate, bool) {
		if f.Keyword == nil || *f.Keyword == "" {
			return Predicate{}, false
		}
		return Or(Contains(FieldTitle, *f.Keyword), Contains(FieldSummary, *f.Keyword)), true
	},
}

// Build сворачивает фильтры в одну конъюнкцию.
// Без фильтров возвращает предикат, которому соответствует любая работа.
func Build(f Filters) Predicate {
	var parts []Predicate
	for _, cond := range conditions {
		if p, ok := cond(f); ok {
			parts = append(parts, p)
		}
	}
	return And(parts...)
}

// Contains - регистронезависимое вхождение подстроки.
func Contains(field Field, value string) Predicate {
	return Predicate{Op: OpContains, Field: field, Value: value}
}

// Equals - точное совпадение.
func Equals(field Field, value any) Predicate {
	return Predicate{Op: OpEquals, Field: field, Value: value}
}

func And(children ...Predicate) Predicate {
	return Predicate{Op: OpAnd, Children: children}
}

func Or(children ...Predicate) Predicate {
	return Predicate{Op: OpOr, Children: children}
}

// IsEmpty сообщает, что предикат ничего не ограничивает.
func (p Predicate) IsEmpty() bool {
	return p.Op == OpAnd && len(p.Children) == 0
}

// Match вычисляет предикат над работой в памяти.
func (p Predicate) Match(w *domain.Work) bool {
	switch p.Op {
	case OpAnd:
		for _, c := range p.Children {
			if !c.Match(w) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Match(w) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := stringField(w, p.Field)
		if !ok {
			return false
		}
		needle, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case OpEquals:
		switch p.Field {
		case FieldChapters:
			n, ok := p.Value.(int)
			return ok && w.Chapters == n
		default:
			s, ok := stringField(w, p.Field)
			v, _ := p.Value.(string)
			return ok && s == v
		}
	}
	return false
}

func stringField(w *domain.Work, f Field) (string, bool) {
	switch f {
	case FieldTitle:
		return w.Title, true
	case FieldAuthor:
		return w.Author, true
	case FieldRating:
		return string(w.Rating), true
	case FieldSummary:
		if w.Summary == nil {
			return "", false
		}
		return *w.Summary, true
	}
	return "", false
}

// LikePattern экранирует спецсимволы LIKE и оборачивает значение в %.
func LikePattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(value) + "%"
}
