package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding user books.
const CollectionName = "userbooks"

var _ Store = (*MongoStore)(nil)

// MongoStore keeps user books in a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore binds the user-book collection and ensures its indexes exist.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("library: mongo database required")
	}
	collection := db.Collection(CollectionName)
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetName("externalId_unique").SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "title", Value: 1}, {Key: "authors", Value: 1}},
			Options: options.Index().SetName("title_authors"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("library: ensure indexes: %w", err)
	}
	return &MongoStore{collection: collection}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]UserBook, error) {
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	books := make([]UserBook, 0)
	if err := cursor.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (UserBook, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) FindByExternalID(ctx context.Context, externalID string) (UserBook, error) {
	return s.findOne(ctx, bson.D{{Key: "externalId", Value: externalID}})
}

// FindByTitleAndAuthors relies on MongoDB exact array equality, so author order matters.
func (s *MongoStore) FindByTitleAndAuthors(ctx context.Context, title string, authors []string) (UserBook, error) {
	return s.findOne(ctx, bson.D{{Key: "title", Value: title}, {Key: "authors", Value: authors}})
}

func (s *MongoStore) Insert(ctx context.Context, book *UserBook) error {
	if _, err := s.collection.InsertOne(ctx, book); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateBook, err)
		}
		return err
	}
	return nil
}

func (s *MongoStore) UpdateUnlinked(ctx context.Context, book UserBook) error {
	filter := bson.D{{Key: "_id", Value: book.ID}, {Key: "externalId", Value: nil}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: book.Title},
		{Key: "description", Value: book.Description},
		{Key: "authors", Value: book.Authors},
		{Key: "publisher", Value: book.Publisher},
		{Key: "publishedDate", Value: book.PublishedDate},
		{Key: "pageCount", Value: book.PageCount},
		{Key: "updatedAt", Value: book.UpdatedAt},
	}}}
	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (UserBook, error) {
	var book UserBook
	err := s.collection.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return UserBook{}, ErrBookNotFound
	}
	if err != nil {
		return UserBook{}, err
	}
	return book, nil
}

// statsPipeline groups the whole collection; a book counts as predefined when externalId is non-null.
func statsPipeline() mongo.Pipeline {
	hasExternalID := bson.D{{Key: "$ifNull", Value: bson.A{"$externalId", false}}}
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalBooks", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalPages", Value: bson.D{{Key: "$sum", Value: "$pageCount"}}},
			{Key: "avgPages", Value: bson.D{{Key: "$avg", Value: "$pageCount"}}},
			{Key: "predefinedCount", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{hasExternalID, 1, 0}}}}}},
			{Key: "manualCount", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{hasExternalID, 0, 1}}}}}},
		}}},
	}
}

func (s *MongoStore) Stats(ctx context.Context) (*Stats, error) {
	cursor, err := s.collection.Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, err
	}
	var results []Stats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].TotalBooks == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (UserBook, error) {
	var book UserBook
	err := s.collection.FindOne(ctx, filter).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return UserBook{}, ErrBookNotFound
	}
	if err != nil {
		return UserBook{}, err
	}
	return book, nil
}
