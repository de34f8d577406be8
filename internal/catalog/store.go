package catalog

import "context"

// Reader exposes the catalog queries served over HTTP.
type Reader interface {
	List(ctx context.Context) ([]Book, error)
	ListByCategory(ctx context.Context, category string) ([]Book, error)
	Search(ctx context.Context, query string) ([]Book, error)
}

// Writer exposes the operations the ingestion job needs.
type Writer interface {
	FindByExternalID(ctx context.Context, externalID string) (Book, error)
	Insert(ctx context.Context, book *Book) error
}

// Store is implemented by every catalog backend.
type Store interface {
	Reader
	Writer
}
