package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"go.uber.org/zap"
)

func stringPtr(value string) *string {
	return &value
}

func floatPtr(value float64) *float64 {
	return &value
}

type testEnv struct {
	service *Service
	books   *GormStore
	catalog *catalog.GormStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "library.db"), zap.NewNop(), &UserBook{}, &catalog.Book{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	books, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("failed to build library store: %v", err)
	}
	catalogStore, err := catalog.NewGormStore(db, ids.NewUUIDProvider())
	if err != nil {
		t.Fatalf("failed to build catalog store: %v", err)
	}

	current := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	service, err := NewService(ServiceConfig{
		Books:      books,
		Catalog:    catalogStore,
		IDProvider: ids.NewUUIDProvider(),
		Clock: func() time.Time {
			current = current.Add(time.Second)
			return current
		},
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return testEnv{service: service, books: books, catalog: catalogStore}
}

func mustCreate(t *testing.T, service *Service, input BookInput) UserBook {
	t.Helper()
	result, err := service.CreateBook(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if result.Existing {
		t.Fatalf("expected a new book, got existing %q", result.Book.ID)
	}
	return result.Book
}
