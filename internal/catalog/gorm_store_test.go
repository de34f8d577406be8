package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"go.uber.org/zap"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"), zap.NewNop(), &Book{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	store, err := NewGormStore(db, ids.NewUUIDProvider())
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

func seedCatalog(t *testing.T, store Store) {
	t.Helper()
	pages := 320
	books := []Book{
		{ExternalID: stringPtr("vol-hp"), Title: "Harry Potter and the Philosopher's Stone", Authors: []string{"J. K. Rowling"}, Publisher: "Bloomsbury", PageCount: &pages, Categories: []string{"harry potter"}},
		{ExternalID: stringPtr("vol-dune"), Title: "Dune", Description: "Desert planet epic.", Authors: []string{"Frank Herbert"}, Publisher: "Chilton", Categories: []string{"fantasy adventure"}},
		{ExternalID: stringPtr("vol-sapiens"), Title: "Sapiens", Description: "A brief history of humankind.", Authors: []string{"Yuval Noah Harari"}, Categories: []string{"history world"}},
		{ExternalID: stringPtr("vol-hp-guide"), Title: "Potter Guide", Authors: []string{"S. Gunelius"}, Publisher: "Springer", Categories: []string{"harry potter"}},
	}
	for index := range books {
		if err := store.Insert(context.Background(), &books[index]); err != nil {
			t.Fatalf("failed to seed %q: %v", books[index].Title, err)
		}
	}
}

func stringPtr(value string) *string {
	return &value
}

func TestGormStoreListByCategoryReturnsExactMatches(t *testing.T) {
	store := newTestGormStore(t)
	seedCatalog(t, store)

	books, err := store.ListByCategory(context.Background(), "harry potter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	for _, book := range books {
		if book.Categories[0] != "harry potter" {
			t.Fatalf("unexpected category %v on %q", book.Categories, book.Title)
		}
	}

	partial, err := store.ListByCategory(context.Background(), "harry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(partial) != 0 {
		t.Fatalf("expected partial category to match nothing, got %d", len(partial))
	}
}

func TestGormStoreSearchMatchesAuthorOnlyTerm(t *testing.T) {
	store := newTestGormStore(t)
	seedCatalog(t, store)

	books, err := store.Search(context.Background(), "herbert")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Dune" {
		t.Fatalf("expected only Dune, got %#v", books)
	}
}

func TestGormStoreSearchMatchesAnyTerm(t *testing.T) {
	store := newTestGormStore(t)
	seedCatalog(t, store)

	testCases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "description", query: "humankind", want: 1},
		{name: "publisher", query: "SPRINGER", want: 1},
		{name: "title-shared", query: "potter", want: 2},
		{name: "either-term", query: "dune sapiens", want: 2},
		{name: "wildcard-literal", query: "100%", want: 0},
		{name: "blank", query: "   ", want: 0},
		{name: "json-quote", query: `"`, want: 0},
		{name: "json-comma", query: ",", want: 0},
		{name: "json-bracket", query: "[", want: 0},
		{name: "author-mixed-case", query: "ROWLING", want: 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			books, err := store.Search(context.Background(), testCase.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(books) != testCase.want {
				t.Fatalf("query %q: expected %d books, got %d", testCase.query, testCase.want, len(books))
			}
		})
	}
}

func TestGormStoreSearchFoldsASCIIOnly(t *testing.T) {
	store := newTestGormStore(t)
	if err := store.Insert(context.Background(), &Book{ExternalID: stringPtr("vol-germinal"), Title: "Germinal", Authors: []string{"Émile Zola"}}); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	testCases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "exact-accent", query: "Émile", want: 1},
		{name: "ascii-upper", query: "ZOLA", want: 1},
		{name: "accent-lowercase", query: "émile", want: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			books, err := store.Search(context.Background(), testCase.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(books) != testCase.want {
				t.Fatalf("query %q: expected %d books, got %d", testCase.query, testCase.want, len(books))
			}
		})
	}
}

func TestASCIILowerLeavesNonASCIIUntouched(t *testing.T) {
	if got := asciiLower("ÉMILE Zola"); got != "Émile zola" {
		t.Fatalf("unexpected fold %q", got)
	}
}

func TestGormStoreInsertRejectsDuplicateExternalID(t *testing.T) {
	store := newTestGormStore(t)
	first := Book{ExternalID: stringPtr("vol-1"), Title: "First"}
	if err := store.Insert(context.Background(), &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := Book{ExternalID: stringPtr("vol-1"), Title: "Second"}
	if err := store.Insert(context.Background(), &second); !errors.Is(err, ErrDuplicateBook) {
		t.Fatalf("expected ErrDuplicateBook, got %v", err)
	}

	withoutID := []Book{{Title: "Loose one"}, {Title: "Loose two", ExternalID: stringPtr(" ")}}
	for index := range withoutID {
		if err := store.Insert(context.Background(), &withoutID[index]); err != nil {
			t.Fatalf("expected books without external id to coexist: %v", err)
		}
	}

	found, err := store.FindByExternalID(context.Background(), "vol-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Title != "First" {
		t.Fatalf("expected first insert to win, got %q", found.Title)
	}
	if _, err := store.FindByExternalID(context.Background(), "vol-missing"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestGormStoreListReturnsEmptySlice(t *testing.T) {
	store := newTestGormStore(t)
	books, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", books)
	}
}
