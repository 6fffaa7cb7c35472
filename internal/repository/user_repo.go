package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform/internal/model"
)

// UserRepo reads account records owned by the account service
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	Upsert(ctx context.Context, user *model.User) error
}

type docUserRepo struct {
	store *DocStore
}

func NewUserRepo(store *DocStore) UserRepo {
	return &docUserRepo{store: store}
}

func (r *docUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var found *model.User
	err := r.store.View(ctx, func(doc *Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == id {
				u := doc.Users[i]
				found = &u
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *docUserRepo) Upsert(ctx context.Context, user *model.User) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == user.ID {
				doc.Users[i] = *user
				return nil
			}
		}
		doc.Users = append(doc.Users, *user)
		return nil
	})
}

type mongoUserRepo struct {
	collection *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) UserRepo {
	return &mongoUserRepo{
		collection: db.Collection("users"),
	}
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepo) Upsert(ctx context.Context, user *model.User) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, upsertOpts())
	return err
}
