package model

import "time"

// Meeting is a scheduled session; its id doubles as the signaling room id
type Meeting struct {
	ID           string    `json:"id" bson:"_id"`
	CreatorID    string    `json:"creatorId" bson:"creatorId"`
	Name         string    `json:"name" bson:"name" validate:"max=200"`
	Participants []string  `json:"participants" bson:"participants"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// HasParticipant reports whether the user was invited
func (m *Meeting) HasParticipant(userID string) bool {
	for _, id := range m.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Invite lets a bounded number of users join a meeting
type Invite struct {
	ID        string    `json:"id" bson:"_id"`
	MeetingID string    `json:"meetingId" bson:"meetingId" validate:"required"`
	MaxUses   int       `json:"maxUses" bson:"maxUses" validate:"min=1"`
	Used      int       `json:"used" bson:"used"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Exhausted reports whether the invite has no uses left
func (i *Invite) Exhausted() bool {
	return i.Used >= i.MaxUses
}
