// Package library manages the user's personal book collection and serves catalog reads.
package library

import (
	"errors"
	"time"
)

var (
	// ErrBookNotFound indicates that no user book matched the identifier.
	ErrBookNotFound = errors.New("library: book not found")
	// ErrDuplicateBook indicates that the store rejected a second book with the same external id.
	ErrDuplicateBook = errors.New("library: duplicate external id")
	// ErrPredefinedBook indicates an attempt to edit a book linked to a catalog entry.
	ErrPredefinedBook = errors.New("library: predefined book can not be updated")
	// ErrInvalidBookID indicates that a book identifier is malformed.
	ErrInvalidBookID = errors.New("library: invalid book id")
)

// UserBook is a book in the user's personal library.
type UserBook struct {
	ID            string    `gorm:"column:id;primaryKey;size:64" bson:"_id" json:"id"`
	ExternalID    *string   `gorm:"column:external_id;size:190;uniqueIndex:idx_user_books_external_id" bson:"externalId,omitempty" json:"externalId,omitempty"`
	Title         string    `gorm:"column:title;not null;index:idx_user_books_title" bson:"title" json:"title"`
	Description   string    `gorm:"column:description;type:text;not null;default:''" bson:"description" json:"description"`
	Authors       []string  `gorm:"column:authors;type:text;not null;serializer:json" bson:"authors" json:"authors"`
	Publisher     string    `gorm:"column:publisher;not null;default:''" bson:"publisher" json:"publisher"`
	PublishedDate string    `gorm:"column:published_date;not null;default:''" bson:"publishedDate" json:"publishedDate"`
	PageCount     int       `gorm:"column:page_count;not null;default:0" bson:"pageCount" json:"pageCount"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;autoCreateTime:false" bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" bson:"updatedAt" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (UserBook) TableName() string {
	return "user_books"
}

// Origin reports whether the book is linked to a catalog entry.
func (b UserBook) Origin() Origin {
	if b.ExternalID == nil || *b.ExternalID == "" {
		return Unlinked()
	}
	return Linked(*b.ExternalID)
}

// Origin is either Linked to a catalog entry by external id or Unlinked (entered manually).
// Linked books are immutable through the update path.
type Origin struct {
	externalID string
}

// Linked returns the origin of a book copied from the catalog.
func Linked(externalID string) Origin {
	return Origin{externalID: externalID}
}

// Unlinked returns the origin of a manually entered book.
func Unlinked() Origin {
	return Origin{}
}

// IsLinked reports whether the origin carries an external id.
func (o Origin) IsLinked() bool {
	return o.externalID != ""
}

// ExternalID returns the catalog identifier of a linked origin.
func (o Origin) ExternalID() (string, bool) {
	return o.externalID, o.externalID != ""
}

func (o Origin) externalIDPointer() *string {
	if !o.IsLinked() {
		return nil
	}
	value := o.externalID
	return &value
}

// Stats summarizes the user library in one aggregate pass.
type Stats struct {
	TotalBooks      int64   `bson:"totalBooks" json:"totalBooks"`
	TotalPages      int64   `bson:"totalPages" json:"totalPages"`
	AvgPages        float64 `bson:"avgPages" json:"avgPages"`
	PredefinedCount int64   `bson:"predefinedCount" json:"predefinedCount"`
	ManualCount     int64   `bson:"manualCount" json:"manualCount"`
}
