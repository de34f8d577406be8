package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"gorm.io/gorm"
)

var _ Store = (*GormStore)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GormStore keeps catalog books in a SQL table through GORM.
type GormStore struct {
	db  *gorm.DB
	ids ids.Provider
}

// NewGormStore wraps a migrated database handle.
func NewGormStore(db *gorm.DB, idProvider ids.Provider) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog: database connection required")
	}
	if idProvider == nil {
		return nil, fmt.Errorf("catalog: id provider required")
	}
	return &GormStore{db: db, ids: idProvider}, nil
}

func (s *GormStore) List(ctx context.Context) ([]Book, error) {
	books := make([]Book, 0)
	err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&books).Error
	return books, err
}

func (s *GormStore) ListByCategory(ctx context.Context, category string) ([]Book, error) {
	books := make([]Book, 0)
	err := s.db.WithContext(ctx).
		Where("EXISTS (SELECT 1 FROM json_each(catalog_books.categories) WHERE json_each.value = ?)", category).
		Order("created_at ASC, id ASC").
		Find(&books).Error
	return books, err
}

// Search matches any query term against title, description, each author and
// publisher. Case folding is ASCII-only, so "émile" does not find "Émile".
func (s *GormStore) Search(ctx context.Context, query string) ([]Book, error) {
	books := make([]Book, 0)
	terms := searchTerms(query)
	if len(terms) == 0 {
		return books, nil
	}

	// Authors are matched per element so JSON punctuation in the column never matches.
	const fieldMatch = `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR ` +
		`EXISTS (SELECT 1 FROM json_each(catalog_books.authors) WHERE LOWER(json_each.value) LIKE ? ESCAPE '\') OR ` +
		`LOWER(publisher) LIKE ? ESCAPE '\')`
	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*4)
	for _, term := range terms {
		pattern := "%" + likeEscaper.Replace(asciiLower(term)) + "%"
		clauses = append(clauses, fieldMatch)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	err := s.db.WithContext(ctx).
		Where(strings.Join(clauses, " OR "), args...).
		Order("created_at ASC, id ASC").
		Find(&books).Error
	return books, err
}

func (s *GormStore) FindByExternalID(ctx context.Context, externalID string) (Book, error) {
	var book Book
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

func (s *GormStore) Insert(ctx context.Context, book *Book) error {
	if book.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return err
		}
		book.ID = id
	}
	book.normalize()
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateBook, err)
		}
		return err
	}
	return nil
}
