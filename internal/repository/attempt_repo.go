package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduplatform/internal/model"
)

// AttemptRepo persists attempts. Update is optimistic: it succeeds only
// when the stored version equals attempt.Version, then bumps it.
type AttemptRepo interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	GetByID(ctx context.Context, id string) (*model.Attempt, error)
	ListByTest(ctx context.Context, testID string) ([]*model.Attempt, error)
	CountByUserAndTest(ctx context.Context, userID, testID string) (int, error)
	Update(ctx context.Context, attempt *model.Attempt) error
}

type docAttemptRepo struct {
	store *DocStore
}

// NewAttemptRepo creates an attempt repository over the document store
func NewAttemptRepo(store *DocStore) AttemptRepo {
	return &docAttemptRepo{store: store}
}

func (r *docAttemptRepo) Create(ctx context.Context, attempt *model.Attempt) error {
	if attempt.Version == 0 {
		attempt.Version = 1
	}
	return r.store.Update(ctx, func(doc *Document) error {
		for _, a := range doc.Attempts {
			if a.ID == attempt.ID {
				return errors.Errorf("attempt %s already exists", attempt.ID)
			}
		}
		doc.Attempts = append(doc.Attempts, *attempt)
		return nil
	})
}

func (r *docAttemptRepo) GetByID(ctx context.Context, id string) (*model.Attempt, error) {
	var found *model.Attempt
	err := r.store.View(ctx, func(doc *Document) error {
		for i := range doc.Attempts {
			if doc.Attempts[i].ID == id {
				a := doc.Attempts[i]
				found = &a
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *docAttemptRepo) ListByTest(ctx context.Context, testID string) ([]*model.Attempt, error) {
	var attempts []*model.Attempt
	err := r.store.View(ctx, func(doc *Document) error {
		attempts = make([]*model.Attempt, 0)
		for i := range doc.Attempts {
			if doc.Attempts[i].TestID == testID {
				a := doc.Attempts[i]
				attempts = append(attempts, &a)
			}
		}
		return nil
	})
	return attempts, err
}

func (r *docAttemptRepo) CountByUserAndTest(ctx context.Context, userID, testID string) (int, error) {
	count := 0
	err := r.store.View(ctx, func(doc *Document) error {
		for _, a := range doc.Attempts {
			if a.UserID == userID && a.TestID == testID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *docAttemptRepo) Update(ctx context.Context, attempt *model.Attempt) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Attempts {
			if doc.Attempts[i].ID != attempt.ID {
				continue
			}
			if doc.Attempts[i].Version != attempt.Version {
				return ErrVersionConflict
			}
			attempt.Version++
			doc.Attempts[i] = *attempt
			return nil
		}
		return ErrNotFound
	})
}

type mongoAttemptRepo struct {
	collection *mongo.Collection
}

// NewMongoAttemptRepo creates an attempt repository backed by MongoDB
func NewMongoAttemptRepo(db *mongo.Database) AttemptRepo {
	return &mongoAttemptRepo{
		collection: db.Collection("attempts"),
	}
}

func (r *mongoAttemptRepo) Create(ctx context.Context, attempt *model.Attempt) error {
	if attempt.Version == 0 {
		attempt.Version = 1
	}
	_, err := r.collection.InsertOne(ctx, attempt)
	return err
}

func (r *mongoAttemptRepo) GetByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *mongoAttemptRepo) ListByTest(ctx context.Context, testID string) ([]*model.Attempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"testId": testID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	attempts := make([]*model.Attempt, 0)
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *mongoAttemptRepo) CountByUserAndTest(ctx context.Context, userID, testID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "testId": testID})
	return int(n), err
}

func (r *mongoAttemptRepo) Update(ctx context.Context, attempt *model.Attempt) error {
	expected := attempt.Version
	next := *attempt
	next.Version = expected + 1

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": attempt.ID, "version": expected}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": attempt.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	attempt.Version = next.Version
	return nil
}
