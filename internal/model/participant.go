package model

// Participant is a user's live connection state inside a meeting room
type Participant struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	AvatarURL    string `json:"avatarUrl"`
	MicOn        bool   `json:"micOn"`
	JoinSeq      uint64 `json:"joinSeq"` // Per-room join order, higher joined later
}

// ParticipantInfo is the join-room payload sent by a client
type ParticipantInfo struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	MicOn     bool   `json:"micOn"`
}

// Settings is the mutable part of a participant
type Settings struct {
	MicOn bool `json:"micOn"`
}

// RoomInfo summarizes a live room
type RoomInfo struct {
	ID               string `json:"id"`
	ParticipantCount int    `json:"participantCount"`
}

// ShouldInitiate reports whether self sends the offer to peer.
// The later joiner initiates so each pair has exactly one offerer.
func ShouldInitiate(self, peer Participant) bool {
	if self.JoinSeq != peer.JoinSeq {
		return self.JoinSeq > peer.JoinSeq
	}
	return self.ConnectionID > peer.ConnectionID
}
