package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduplatform/internal/model"
)

type MeetingRepo interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	List(ctx context.Context) ([]*model.Meeting, error)
	AddParticipant(ctx context.Context, meetingID, userID string) error
	RemoveParticipant(ctx context.Context, meetingID, userID string) error
	Delete(ctx context.Context, id string) error
}

type docMeetingRepo struct {
	store *DocStore
}

func NewMeetingRepo(store *DocStore) MeetingRepo {
	return &docMeetingRepo{store: store}
}

func (r *docMeetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for _, m := range doc.Meetings {
			if m.ID == meeting.ID {
				return errors.Errorf("meeting %s already exists", meeting.ID)
			}
		}
		doc.Meetings = append(doc.Meetings, *meeting)
		return nil
	})
}

func (r *docMeetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	var found *model.Meeting
	err := r.store.View(ctx, func(doc *Document) error {
		for i := range doc.Meetings {
			if doc.Meetings[i].ID == id {
				m := doc.Meetings[i]
				found = &m
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *docMeetingRepo) List(ctx context.Context) ([]*model.Meeting, error) {
	var meetings []*model.Meeting
	err := r.store.View(ctx, func(doc *Document) error {
		meetings = make([]*model.Meeting, 0, len(doc.Meetings))
		for i := range doc.Meetings {
			m := doc.Meetings[i]
			meetings = append(meetings, &m)
		}
		return nil
	})
	return meetings, err
}

func (r *docMeetingRepo) AddParticipant(ctx context.Context, meetingID, userID string) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Meetings {
			if doc.Meetings[i].ID != meetingID {
				continue
			}
			if !doc.Meetings[i].HasParticipant(userID) {
				doc.Meetings[i].Participants = append(doc.Meetings[i].Participants, userID)
			}
			return nil
		}
		return ErrNotFound
	})
}

func (r *docMeetingRepo) RemoveParticipant(ctx context.Context, meetingID, userID string) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Meetings {
			if doc.Meetings[i].ID != meetingID {
				continue
			}
			kept := doc.Meetings[i].Participants[:0]
			for _, id := range doc.Meetings[i].Participants {
				if id != userID {
					kept = append(kept, id)
				}
			}
			doc.Meetings[i].Participants = kept
			return nil
		}
		return ErrNotFound
	})
}

func (r *docMeetingRepo) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(doc *Document) error {
		for i := range doc.Meetings {
			if doc.Meetings[i].ID == id {
				doc.Meetings = append(doc.Meetings[:i], doc.Meetings[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

type mongoMeetingRepo struct {
	collection *mongo.Collection
}

func NewMongoMeetingRepo(db *mongo.Database) MeetingRepo {
	return &mongoMeetingRepo{
		collection: db.Collection("meetings"),
	}
}

func (r *mongoMeetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	_, err := r.collection.InsertOne(ctx, meeting)
	return err
}

func (r *mongoMeetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&meeting)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *mongoMeetingRepo) List(ctx context.Context) ([]*model.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	meetings := make([]*model.Meeting, 0)
	if err := cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *mongoMeetingRepo) AddParticipant(ctx context.Context, meetingID, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": meetingID},
		bson.M{"$addToSet": bson.M{"participants": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMeetingRepo) RemoveParticipant(ctx context.Context, meetingID, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": meetingID},
		bson.M{"$pull": bson.M{"participants": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMeetingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
