package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform/internal/model"
)

// ErrInviteExhausted is returned by Consume when no uses remain
var ErrInviteExhausted = errors.New("invite has no uses left")

type InviteRepo interface {
	Create(ctx context.Context, invite *model.Invite) error
	GetByID(ctx context.Context, id string) (*model.Invite, error)
	List(ctx context.Context) ([]*model.Invite, error)
	// Consume atomically increments Used if the invite is not exhausted
	Consume(ctx context.Context, id string) (*model.Invite, error)
	Delete(ctx context.Context, id string) error
}

type docInviteRepo struct {
	store *DocStore
}

func NewInviteRepo(store *DocStore) InviteRepo {
	return &docInviteRepo{store: store}
}

func (r *docInviteRepo) Create(ctx context.Context, invite *model.Invite) error {
	return r.store.Update(ctx, func(doc *Document) error {
		doc.Invites = append(doc.Invites, *invite)
		return nil
	})
}

func (r *docInviteRepo) GetByID(ctx context.Context, id string) (*model.Invite, error) {
	var found *model.Invite
	err := r.store.View(ctx, func(doc *Document) error {
		for i := range doc.Invites {
			if doc.Invites[i].ID == id {
				inv := doc.Invites[i]
				found = &inv
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *docInviteRepo) List(ctx context.Context) ([]*model.Invite, error) {
	var invites []*model.Invite
	err := r.store.View(ctx, func(doc *Document) error {
		invites = make([]*model.Invite, 0, len(doc.Invites))
		for i := range doc.Invites {
			inv := doc.Invites[i]
			invites = append(invites, &inv)
		}
		return nil
	})
	return invites, err
}

func (r *docInviteRepo) Consume(ctx context.Context, id string) (*model.Invite, error) {
	var consumed *model.Invite
	err := r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Invites {
			if doc.Invites[i].ID != id {
				continue
			}
			if doc.Invites[i].Exhausted() {
				return ErrInviteExhausted
			}
			doc.Invites[i].Used++
			inv := doc.Invites[i]
			consumed = &inv
			return nil
		}
		return ErrNotFound
	})
	return consumed, err
}

func (r *docInviteRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Invites {
			if doc.Invites[i].ID == id {
				doc.Invites = append(doc.Invites[:i], doc.Invites[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

type mongoInviteRepo struct {
	collection *mongo.Collection
}

func NewMongoInviteRepo(db *mongo.Database) InviteRepo {
	return &mongoInviteRepo{
		collection: db.Collection("invites"),
	}
}

func (r *mongoInviteRepo) Create(ctx context.Context, invite *model.Invite) error {
	_, err := r.collection.InsertOne(ctx, invite)
	return err
}

func (r *mongoInviteRepo) GetByID(ctx context.Context, id string) (*model.Invite, error) {
	var invite model.Invite
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&invite)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *mongoInviteRepo) List(ctx context.Context) ([]*model.Invite, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	invites := make([]*model.Invite, 0)
	if err := cursor.All(ctx, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *mongoInviteRepo) Consume(ctx context.Context, id string) (*model.Invite, error) {
	var invite model.Invite
	filter := bson.M{"_id": id, "$expr": bson.M{"$lt": bson.A{"$used", "$maxUses"}}}
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"used": 1}}).Decode(&invite)
	if err == mongo.ErrNoDocuments {
		existing, gerr := r.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return nil, ErrInviteExhausted
	}
	if err != nil {
		return nil, err
	}
	invite.Used++
	return &invite, nil
}

func (r *mongoInviteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
