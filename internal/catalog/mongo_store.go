package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding catalog books.
const CollectionName = "initialbooks"

var _ Store = (*MongoStore)(nil)

// MongoStore keeps catalog books in a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
	ids        ids.Provider
	clock      func() time.Time
}

// NewMongoStore binds the catalog collection and ensures its indexes exist.
func NewMongoStore(ctx context.Context, db *mongo.Database, idProvider ids.Provider) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog: mongo database required")
	}
	if idProvider == nil {
		return nil, fmt.Errorf("catalog: id provider required")
	}
	collection := db.Collection(CollectionName)
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetName("externalId_unique").SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "categories", Value: 1}},
			Options: options.Index().SetName("categories"),
		},
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "authors", Value: "text"},
				{Key: "publisher", Value: "text"},
			},
			Options: options.Index().SetName("catalog_text"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: ensure indexes: %w", err)
	}
	return &MongoStore{collection: collection, ids: idProvider, clock: time.Now}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Book, error) {
	return s.find(ctx, bson.D{})
}

func (s *MongoStore) ListByCategory(ctx context.Context, category string) ([]Book, error) {
	return s.find(ctx, bson.D{{Key: "categories", Value: category}})
}

func (s *MongoStore) Search(ctx context.Context, query string) ([]Book, error) {
	if len(searchTerms(query)) == 0 {
		return make([]Book, 0), nil
	}
	return s.find(ctx, bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}})
}

func (s *MongoStore) FindByExternalID(ctx context.Context, externalID string) (Book, error) {
	var book Book
	err := s.collection.FindOne(ctx, bson.D{{Key: "externalId", Value: externalID}}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

func (s *MongoStore) Insert(ctx context.Context, book *Book) error {
	if book.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return err
		}
		book.ID = id
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = s.clock().UTC()
	}
	book.normalize()
	if _, err := s.collection.InsertOne(ctx, book); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateBook, err)
		}
		return err
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.D) ([]Book, error) {
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0)
	if err := cursor.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}
