package model

import "time"

// AttemptState is the lifecycle position of an attempt
type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
)

// Attempt is one user's pass at a test
type Attempt struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"userId" bson:"userId"`
	TestID      string     `json:"testId" bson:"testId"`
	Answers     []Answer   `json:"answers" bson:"answers"`
	Score       *int       `json:"score" bson:"score"`
	Completed   bool       `json:"completed" bson:"completed"`
	Timestamp   time.Time  `json:"timestamp" bson:"timestamp"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Version     int        `json:"version" bson:"version"` // Optimistic concurrency counter
}

// State derives the lifecycle state from the stored flags
func (a *Attempt) State() AttemptState {
	if a == nil {
		return AttemptNotStarted
	}
	if a.Completed {
		return AttemptCompleted
	}
	return AttemptInProgress
}

// AttemptStatus is an attempt without its answers
type AttemptStatus struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	TestID      string       `json:"testId"`
	State       AttemptState `json:"state"`
	Score       *int         `json:"score"`
	Completed   bool         `json:"completed"`
	Timestamp   time.Time    `json:"timestamp"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Status builds the answer-free view
func (a *Attempt) Status() AttemptStatus {
	return AttemptStatus{
		ID:          a.ID,
		UserID:      a.UserID,
		TestID:      a.TestID,
		State:       a.State(),
		Score:       a.Score,
		Completed:   a.Completed,
		Timestamp:   a.Timestamp,
		CompletedAt: a.CompletedAt,
	}
}

// Result is one completed attempt in a results listing
type Result struct {
	AttemptID string    `json:"attemptId"`
	UserID    string    `json:"userId,omitempty"`
	Username  string    `json:"username,omitempty"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	Answers   []Answer  `json:"answers,omitempty"`
}

// TestResults groups results of one test
type TestResults struct {
	TestID    string   `json:"testId"`
	TestTitle string   `json:"testTitle"`
	Results   []Result `json:"results"`
}

// LeaderboardEntry is a user's best score on a test
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}
