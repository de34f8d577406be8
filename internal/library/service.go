package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("book store is required")
	errMissingCatalog    = errors.New("catalog reader is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable code of the form library.<operation>.<reason>.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "library.service.new"
	opListCatalog    = "library.list_catalog"
	opListByCategory = "library.list_catalog_by_category"
	opSearchCatalog  = "library.search_catalog"
	opListBooks      = "library.list_books"
	opGetBook        = "library.get_book"
	opCreateBook     = "library.create_book"
	opUpdateBook     = "library.update_book"
	opDeleteBook     = "library.delete_book"
	opStats          = "library.stats"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Books      Store
	Catalog    catalog.Reader
	Clock      func() time.Time
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service implements the library operations over the user-book store and the catalog.
type Service struct {
	books      Store
	catalog    catalog.Reader
	clock      func() time.Time
	idProvider ids.Provider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Books == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Catalog == nil {
		return nil, newServiceError(opServiceNew, "missing_catalog", errMissingCatalog)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		books:      cfg.Books,
		catalog:    cfg.Catalog,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// SearchResult pairs the query term with the matching catalog books.
type SearchResult struct {
	QueryTerm string
	Books     []catalog.Book
}

// CreateResult reports the stored book and whether it already existed.
type CreateResult struct {
	Book     UserBook
	Existing bool
}

func (s *Service) ListCatalog(ctx context.Context) ([]catalog.Book, error) {
	if s.catalog == nil {
		return nil, s.fail(opListCatalog, "missing_catalog", errMissingCatalog)
	}
	books, err := s.catalog.List(ctx)
	if err != nil {
		return nil, s.fail(opListCatalog, "query_failed", err)
	}
	return books, nil
}

func (s *Service) ListCatalogByCategory(ctx context.Context, category string) ([]catalog.Book, error) {
	if s.catalog == nil {
		return nil, s.fail(opListByCategory, "missing_catalog", errMissingCatalog)
	}
	books, err := s.catalog.ListByCategory(ctx, category)
	if err != nil {
		return nil, s.fail(opListByCategory, "query_failed", err, zap.String("category", category))
	}
	return books, nil
}

func (s *Service) SearchCatalog(ctx context.Context, rawTerm string) (SearchResult, error) {
	term, err := validateSearchTerm(rawTerm)
	if err != nil {
		return SearchResult{}, newServiceError(opSearchCatalog, "invalid_term", err)
	}
	if s.catalog == nil {
		return SearchResult{}, s.fail(opSearchCatalog, "missing_catalog", errMissingCatalog)
	}
	books, err := s.catalog.Search(ctx, term)
	if err != nil {
		return SearchResult{}, s.fail(opSearchCatalog, "query_failed", err, zap.String("term", term))
	}
	return SearchResult{QueryTerm: term, Books: books}, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]UserBook, error) {
	if s.books == nil {
		return nil, s.fail(opListBooks, "missing_store", errMissingStore)
	}
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, s.fail(opListBooks, "query_failed", err)
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, rawID string) (UserBook, error) {
	id, err := parseBookID(rawID)
	if err != nil {
		return UserBook{}, newServiceError(opGetBook, "invalid_id", err)
	}
	if s.books == nil {
		return UserBook{}, s.fail(opGetBook, "missing_store", errMissingStore)
	}
	book, err := s.books.Get(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return UserBook{}, newServiceError(opGetBook, "not_found", err)
	}
	if err != nil {
		return UserBook{}, s.fail(opGetBook, "query_failed", err, zap.String("book_id", id))
	}
	return book, nil
}

// CreateBook validates the payload and stores it unless an equivalent book exists.
// A linked book is equivalent when its external id matches; an unlinked one when
// title and authors match exactly.
func (s *Service) CreateBook(ctx context.Context, input BookInput) (CreateResult, error) {
	draft, err := Validate(input)
	if err != nil {
		return CreateResult{}, newServiceError(opCreateBook, "invalid_book", err)
	}
	if s.books == nil {
		return CreateResult{}, s.fail(opCreateBook, "missing_store", errMissingStore)
	}
	if s.idProvider == nil {
		return CreateResult{}, s.fail(opCreateBook, "missing_id_provider", errMissingIDProvider)
	}

	existing, found, err := s.findEquivalent(ctx, draft)
	if err != nil {
		return CreateResult{}, s.fail(opCreateBook, "duplicate_lookup_failed", err)
	}
	if found {
		return CreateResult{Book: existing, Existing: true}, nil
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return CreateResult{}, s.fail(opCreateBook, "id_generation_failed", err)
	}
	now := s.clock().UTC()
	book := UserBook{
		ID:            id,
		ExternalID:    draft.Origin.externalIDPointer(),
		Title:         draft.Title,
		Description:   draft.Description,
		Authors:       draft.Authors,
		Publisher:     draft.Publisher,
		PublishedDate: draft.PublishedDate,
		PageCount:     draft.PageCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.books.Insert(ctx, &book); err != nil {
		if !errors.Is(err, ErrDuplicateBook) {
			return CreateResult{}, s.fail(opCreateBook, "insert_failed", err, zap.String("book_id", id))
		}
		// A concurrent create won the unique index; report its record.
		existing, found, lookupErr := s.findEquivalent(ctx, draft)
		if lookupErr != nil || !found {
			return CreateResult{}, s.fail(opCreateBook, "duplicate_lookup_failed", errors.Join(err, lookupErr))
		}
		return CreateResult{Book: existing, Existing: true}, nil
	}

	s.logger.Info("library book created",
		zap.String("book_id", book.ID),
		zap.Bool("linked", draft.Origin.IsLinked()))
	return CreateResult{Book: book}, nil
}

// UpdateBook applies a partial update to an unlinked book. For a linked book it
// returns the stored record together with ErrPredefinedBook.
func (s *Service) UpdateBook(ctx context.Context, rawID string, patch BookInput) (UserBook, error) {
	id, err := parseBookID(rawID)
	if err != nil {
		return UserBook{}, newServiceError(opUpdateBook, "invalid_id", err)
	}
	if s.books == nil {
		return UserBook{}, s.fail(opUpdateBook, "missing_store", errMissingStore)
	}

	existing, err := s.books.Get(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return UserBook{}, newServiceError(opUpdateBook, "not_found", err)
	}
	if err != nil {
		return UserBook{}, s.fail(opUpdateBook, "query_failed", err, zap.String("book_id", id))
	}
	if existing.Origin().IsLinked() {
		return existing, newServiceError(opUpdateBook, "predefined_book", ErrPredefinedBook)
	}

	draft, err := ApplyPatch(existing, patch)
	if err != nil {
		return UserBook{}, newServiceError(opUpdateBook, "invalid_book", err)
	}

	updated := existing
	updated.Title = draft.Title
	updated.Description = draft.Description
	updated.Authors = draft.Authors
	updated.Publisher = draft.Publisher
	updated.PublishedDate = draft.PublishedDate
	updated.PageCount = draft.PageCount
	updated.UpdatedAt = s.clock().UTC()

	if err := s.books.UpdateUnlinked(ctx, updated); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return UserBook{}, newServiceError(opUpdateBook, "not_found", err)
		}
		return UserBook{}, s.fail(opUpdateBook, "update_failed", err, zap.String("book_id", id))
	}
	return updated, nil
}

func (s *Service) DeleteBook(ctx context.Context, rawID string) (UserBook, error) {
	id, err := parseBookID(rawID)
	if err != nil {
		return UserBook{}, newServiceError(opDeleteBook, "invalid_id", err)
	}
	if s.books == nil {
		return UserBook{}, s.fail(opDeleteBook, "missing_store", errMissingStore)
	}
	book, err := s.books.Delete(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return UserBook{}, newServiceError(opDeleteBook, "not_found", err)
	}
	if err != nil {
		return UserBook{}, s.fail(opDeleteBook, "delete_failed", err, zap.String("book_id", id))
	}
	s.logger.Info("library book deleted", zap.String("book_id", id))
	return book, nil
}

// Stats returns nil when the library is empty.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.books == nil {
		return nil, s.fail(opStats, "missing_store", errMissingStore)
	}
	stats, err := s.books.Stats(ctx)
	if err != nil {
		return nil, s.fail(opStats, "aggregate_failed", err)
	}
	return stats, nil
}

func (s *Service) findEquivalent(ctx context.Context, draft Draft) (UserBook, bool, error) {
	var (
		book UserBook
		err  error
	)
	if externalID, linked := draft.Origin.ExternalID(); linked {
		book, err = s.books.FindByExternalID(ctx, externalID)
	} else {
		book, err = s.books.FindByTitleAndAuthors(ctx, draft.Title, draft.Authors)
	}
	if errors.Is(err, ErrBookNotFound) {
		return UserBook{}, false, nil
	}
	if err != nil {
		return UserBook{}, false, err
	}
	return book, true, nil
}

func parseBookID(rawID string) (string, error) {
	id, err := ids.Parse(rawID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBookID, err)
	}
	return id, nil
}

func (s *Service) fail(operation, reason string, err error, fields ...zap.Field) error {
	s.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, err)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("library service error", attrs...)
}
