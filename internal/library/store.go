package library

import "context"

// Store is implemented by every user-book backend.
type Store interface {
	List(ctx context.Context) ([]UserBook, error)
	Get(ctx context.Context, id string) (UserBook, error)
	FindByExternalID(ctx context.Context, externalID string) (UserBook, error)
	FindByTitleAndAuthors(ctx context.Context, title string, authors []string) (UserBook, error)
	// Insert returns ErrDuplicateBook when the external id is already taken.
	Insert(ctx context.Context, book *UserBook) error
	// UpdateUnlinked persists editable fields of an unlinked book and returns
	// ErrBookNotFound when no unlinked book has the id.
	UpdateUnlinked(ctx context.Context, book UserBook) error
	Delete(ctx context.Context, id string) (UserBook, error)
	// Stats returns nil when the library is empty.
	Stats(ctx context.Context) (*Stats, error)
}

// updatableColumns lists the columns the update path may touch.
var updatableColumns = []string{"title", "description", "authors", "publisher", "published_date", "page_count", "updated_at"}
