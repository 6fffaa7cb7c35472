package model

import "time"

// Visibility controls who may see and attempt a test
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPassword Visibility = "password"
	VisibilityPrivate  Visibility = "private"
)

// Test is a quiz definition owned by its creator
type Test struct {
	ID              string     `json:"id" bson:"_id"`
	Title           string     `json:"title" bson:"title" validate:"required,max=200"`
	Description     string     `json:"description" bson:"description"`
	AttemptsAllowed int        `json:"attemptsAllowed" bson:"attemptsAllowed" validate:"min=1"`
	CreatorID       string     `json:"creatorId" bson:"creatorId"`
	Visibility      Visibility `json:"visibility" bson:"visibility" validate:"oneof=public unlisted password private"`
	Password        string     `json:"password,omitempty" bson:"password"`
	Questions       []Question `json:"questions" bson:"questions" validate:"required,min=1,dive"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// TestSummary is the list view of a test (no questions, no password)
type TestSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AttemptsAllowed int        `json:"attemptsAllowed"`
	CreatorID       string     `json:"creatorId"`
	Visibility      Visibility `json:"visibility"`
	QuestionCount   int        `json:"questionCount"`
}

// Summary builds the list view
func (t *Test) Summary() TestSummary {
	return TestSummary{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		AttemptsAllowed: t.AttemptsAllowed,
		CreatorID:       t.CreatorID,
		Visibility:      t.Visibility,
		QuestionCount:   len(t.Questions),
	}
}

// StudentView returns a copy safe to show to someone taking the test
func (t Test) StudentView() Test {
	questions := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = q.Redacted()
	}
	t.Questions = questions
	t.Password = ""
	return t
}
