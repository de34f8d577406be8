package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"gorm.io/gorm"
)

var _ Store = (*GormStore)(nil)

// GormStore keeps user books in a SQL table through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a migrated database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("library: database connection required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) List(ctx context.Context) ([]UserBook, error) {
	books := make([]UserBook, 0)
	err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&books).Error
	return books, err
}

func (s *GormStore) Get(ctx context.Context, id string) (UserBook, error) {
	return s.take(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) FindByExternalID(ctx context.Context, externalID string) (UserBook, error) {
	return s.take(s.db.WithContext(ctx).Where("external_id = ?", externalID))
}

// FindByTitleAndAuthors compares authors through their stored JSON encoding, which keeps order significant.
func (s *GormStore) FindByTitleAndAuthors(ctx context.Context, title string, authors []string) (UserBook, error) {
	encodedAuthors, err := json.Marshal(authors)
	if err != nil {
		return UserBook{}, err
	}
	return s.take(s.db.WithContext(ctx).
		Where("title = ? AND authors = ?", title, string(encodedAuthors)).
		Order("created_at ASC"))
}

func (s *GormStore) Insert(ctx context.Context, book *UserBook) error {
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateBook, err)
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateUnlinked(ctx context.Context, book UserBook) error {
	result := s.db.WithContext(ctx).
		Model(&book).
		Where("external_id IS NULL").
		Select(updatableColumns).
		Updates(&book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (UserBook, error) {
	var deleted UserBook
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.take(tx.Where("id = ?", id))
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&UserBook{}).Error; err != nil {
			return err
		}
		deleted = book
		return nil
	})
	if err != nil {
		return UserBook{}, err
	}
	return deleted, nil
}

type statsRow struct {
	TotalBooks      int64
	TotalPages      int64
	AvgPages        *float64
	PredefinedCount int64
	ManualCount     int64
}

func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	var row statsRow
	err := s.db.WithContext(ctx).
		Model(&UserBook{}).
		Select(`COUNT(*) AS total_books,
			COALESCE(SUM(page_count), 0) AS total_pages,
			AVG(page_count) AS avg_pages,
			COALESCE(SUM(CASE WHEN external_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS predefined_count,
			COALESCE(SUM(CASE WHEN external_id IS NULL THEN 1 ELSE 0 END), 0) AS manual_count`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.TotalBooks == 0 {
		return nil, nil
	}
	stats := &Stats{
		TotalBooks:      row.TotalBooks,
		TotalPages:      row.TotalPages,
		PredefinedCount: row.PredefinedCount,
		ManualCount:     row.ManualCount,
	}
	if row.AvgPages != nil {
		stats.AvgPages = *row.AvgPages
	}
	return stats, nil
}

func (s *GormStore) take(query *gorm.DB) (UserBook, error) {
	var book UserBook
	err := query.Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserBook{}, ErrBookNotFound
	}
	if err != nil {
		return UserBook{}, err
	}
	return book, nil
}
