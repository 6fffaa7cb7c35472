package service

import (
	"math"
	"strings"

	"eduplatform/internal/model"
)

// Grade scores answers against the test as a rounded 0-100 percentage.
// A test without questions scores 0.
func Grade(test *model.Test, answers []model.Answer) int {
	if test == nil || len(test.Questions) == 0 {
		return 0
	}

	byQuestion := make(map[string]model.AnswerValue, len(answers))
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a.Answer
		}
	}

	correct := 0
	for i := range test.Questions {
		q := &test.Questions[i]
		answer, ok := byQuestion[q.ID]
		if ok && gradeQuestion(q, answer) {
			correct++
		}
	}

	return int(math.Round(float64(correct) / float64(len(test.Questions)) * 100))
}

func gradeQuestion(q *model.Question, answer model.AnswerValue) bool {
	switch q.Type {
	case model.QuestionTypeSingle:
		text, ok := answer.Text()
		if !ok || text == "" {
			return false
		}
		for _, opt := range q.Options {
			if opt.IsCorrect && opt.Text == text {
				return true
			}
		}
		return false

	case model.QuestionTypeMultiple:
		want := toSet(q.CorrectOptions())
		got := toSet(answer.Choices())
		if len(want) == 0 || len(want) != len(got) {
			return false
		}
		for s := range got {
			if !want[s] {
				return false
			}
		}
		return true

	case model.QuestionTypeText:
		text, ok := answer.Text()
		if !ok {
			return false
		}
		expected := normalizeText(q.CorrectAnswer)
		return expected != "" && normalizeText(text) == expected

	default:
		return false
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
