// Package catalog holds the read-only book catalog seeded by the ingestion job.
package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrBookNotFound indicates that no catalog book matched the lookup.
	ErrBookNotFound = errors.New("catalog: book not found")
	// ErrDuplicateBook indicates that a catalog book with the same external id already exists.
	ErrDuplicateBook = errors.New("catalog: duplicate external id")
)

// Book is a catalog entry sourced from the volume-search API.
type Book struct {
	ID            string    `gorm:"column:id;primaryKey;size:64" bson:"_id" json:"id"`
	ExternalID    *string   `gorm:"column:external_id;size:190;uniqueIndex:idx_catalog_books_external_id" bson:"externalId,omitempty" json:"externalId,omitempty"`
	Title         string    `gorm:"column:title;not null" bson:"title" json:"title"`
	Description   string    `gorm:"column:description;type:text;not null;default:''" bson:"description" json:"description"`
	Authors       []string  `gorm:"column:authors;type:text;serializer:json" bson:"authors" json:"authors"`
	Publisher     string    `gorm:"column:publisher;not null;default:''" bson:"publisher,omitempty" json:"publisher,omitempty"`
	PublishedDate string    `gorm:"column:published_date;not null;default:''" bson:"publishedDate" json:"publishedDate"`
	PageCount     *int      `gorm:"column:page_count" bson:"pageCount" json:"pageCount"`
	Categories    []string  `gorm:"column:categories;type:text;serializer:json" bson:"categories" json:"categories"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" bson:"createdAt" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Book) TableName() string {
	return "catalog_books"
}

// normalize trims identifiers and guarantees list fields are never nil.
func (b *Book) normalize() {
	if b.ExternalID != nil {
		trimmed := strings.TrimSpace(*b.ExternalID)
		if trimmed == "" {
			b.ExternalID = nil
		} else {
			b.ExternalID = &trimmed
		}
	}
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
}

// searchTerms splits a free-text query into terms; a book matches when any term matches.
func searchTerms(query string) []string {
	return strings.Fields(query)
}

// asciiLower folds only A-Z, the same folding SQLite's LOWER applies.
func asciiLower(term string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, term)
}
