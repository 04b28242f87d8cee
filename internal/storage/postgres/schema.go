package postgres

import "github.com/UkralStul/fanfic-archive-service/internal/domain"

// Справочники метаданных. Имена таблиц берутся из соглашений gorm:
// Tag -> tags, WorkTag -> work_tags и т.д.

type Tag struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

type Character struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

type Fandom struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

type Relationship struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

type Warning struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

type Category struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex"`
}

// Таблицы связей: составной первичный ключ обеспечивает уникальность пары.

type WorkTag struct {
	WorkID int64 `gorm:"primaryKey;autoIncrement:false"`
	TagID  int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type WorkCharacter struct {
	WorkID      int64 `gorm:"primaryKey;autoIncrement:false"`
	CharacterID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type WorkFandom struct {
	WorkID   int64 `gorm:"primaryKey;autoIncrement:false"`
	FandomID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type WorkRelationship struct {
	WorkID         int64 `gorm:"primaryKey;autoIncrement:false"`
	RelationshipID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type WorkWarning struct {
	WorkID    int64 `gorm:"primaryKey;autoIncrement:false"`
	WarningID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type WorkCategory struct {
	WorkID     int64 `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

// relation описывает, как собрать строки одного вида метаданных.
type relation struct {
	kind      domain.MetadataKind
	table     string
	joinTable string
	column    string
}

var relations = []relation{
	{kind: domain.KindTag, table: "tags", joinTable: "work_tags", column: "tag_id"},
	{kind: domain.KindCharacter, table: "characters", joinTable: "work_characters", column: "character_id"},
	{kind: domain.KindFandom, table: "fandoms", joinTable: "work_fandoms", column: "fandom_id"},
	{kind: domain.KindRelationship, table: "relationships", joinTable: "work_relationships", column: "relationship_id"},
	{kind: domain.KindWarning, table: "warnings", joinTable: "work_warnings", column: "warning_id"},
	{kind: domain.KindCategory, table: "categories", joinTable: "work_categories", column: "category_id"},
}

func models() []any {
	return []any{
		&domain.Work{},
		&Tag{}, &Character{}, &Fandom{}, &Relationship{}, &Warning{}, &Category{},
		&WorkTag{}, &WorkCharacter{}, &WorkFandom{}, &WorkRelationship{}, &WorkWarning{}, &WorkCategory{},
		&domain.Comment{},
		&domain.CommentVote{},
	}
}
