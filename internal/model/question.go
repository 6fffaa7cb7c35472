package model

// QuestionType defines how a question is answered and graded
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"   // One option, exact text match
	QuestionTypeMultiple QuestionType = "multiple" // Set of options, exact set match
	QuestionTypeText     QuestionType = "text"     // Free text, trimmed and case-folded
)

// Option is a selectable answer of a single/multiple question
type Option struct {
	Text      string `json:"text" bson:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect,omitempty" bson:"isCorrect"`
}

// Question is one item of a test
type Question struct {
	ID            string       `json:"id" bson:"id"`
	Text          string       `json:"text" bson:"text" validate:"required"`
	Type          QuestionType `json:"type" bson:"type" validate:"oneof=single multiple text"`
	Options       []Option     `json:"options" bson:"options" validate:"dive"`
	CorrectAnswer string       `json:"correctAnswer,omitempty" bson:"correctAnswer,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	TimeLimit     int          `json:"timeLimit" bson:"timeLimit" validate:"min=0"` // Seconds, client-side countdown only
}

// CorrectOptions returns the texts of options flagged correct
func (q *Question) CorrectOptions() []string {
	var out []string
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o.Text)
		}
	}
	return out
}

// Redacted returns a copy without answer keys
func (q Question) Redacted() Question {
	options := make([]Option, len(q.Options))
	for i, o := range q.Options {
		options[i] = Option{Text: o.Text}
	}
	q.Options = options
	q.CorrectAnswer = ""
	return q
}
