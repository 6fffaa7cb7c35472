package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduplatform/internal/model"
)

// TestRepo persists test definitions
type TestRepo interface {
	Create(ctx context.Context, test *model.Test) error
	GetByID(ctx context.Context, id string) (*model.Test, error)
	List(ctx context.Context) ([]*model.Test, error)
	Update(ctx context.Context, test *model.Test) error
	Delete(ctx context.Context, id string) error
}

type docTestRepo struct {
	store *DocStore
}

// NewTestRepo creates a test repository over the document store
func NewTestRepo(store *DocStore) TestRepo {
	return &docTestRepo{store: store}
}

func (r *docTestRepo) Create(ctx context.Context, test *model.Test) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for _, t := range doc.Tests {
			if t.ID == test.ID {
				return errors.Errorf("test %s already exists", test.ID)
			}
		}
		doc.Tests = append(doc.Tests, *test)
		return nil
	})
}

func (r *docTestRepo) GetByID(ctx context.Context, id string) (*model.Test, error) {
	var found *model.Test
	err := r.store.View(ctx, func(doc *Document) error {
		for i := range doc.Tests {
			if doc.Tests[i].ID == id {
				t := doc.Tests[i]
				found = &t
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *docTestRepo) List(ctx context.Context) ([]*model.Test, error) {
	var tests []*model.Test
	err := r.store.View(ctx, func(doc *Document) error {
		tests = make([]*model.Test, 0, len(doc.Tests))
		for i := range doc.Tests {
			t := doc.Tests[i]
			tests = append(tests, &t)
		}
		return nil
	})
	return tests, err
}

func (r *docTestRepo) Update(ctx context.Context, test *model.Test) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Tests {
			if doc.Tests[i].ID == test.ID {
				doc.Tests[i] = *test
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r *docTestRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Tests {
			if doc.Tests[i].ID == id {
				doc.Tests = append(doc.Tests[:i], doc.Tests[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

type mongoTestRepo struct {
	collection *mongo.Collection
}

// NewMongoTestRepo creates a test repository backed by MongoDB
func NewMongoTestRepo(db *mongo.Database) TestRepo {
	return &mongoTestRepo{
		collection: db.Collection("tests"),
	}
}

func (r *mongoTestRepo) Create(ctx context.Context, test *model.Test) error {
	_, err := r.collection.InsertOne(ctx, test)
	return err
}

func (r *mongoTestRepo) GetByID(ctx context.Context, id string) (*model.Test, error) {
	var test model.Test
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&test)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *mongoTestRepo) List(ctx context.Context) ([]*model.Test, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tests []*model.Test
	if err := cursor.All(ctx, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *mongoTestRepo) Update(ctx context.Context, test *model.Test) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": test.ID}, test)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTestRepo) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
