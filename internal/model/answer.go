package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// AnswerValue is a submitted answer: a string for single/text questions
// or a list of option texts for multiple questions.
type AnswerValue struct {
	text   string
	list   []string
	isList bool
}

// TextAnswer builds a scalar answer
func TextAnswer(s string) AnswerValue {
	return AnswerValue{text: s}
}

// ChoiceAnswer builds a list answer
func ChoiceAnswer(choices ...string) AnswerValue {
	if choices == nil {
		choices = []string{}
	}
	return AnswerValue{list: choices, isList: true}
}

// Text returns the scalar value; ok is false for list answers
func (v AnswerValue) Text() (string, bool) {
	return v.text, !v.isList
}

// Choices returns the list value; a scalar becomes a one-element list
func (v AnswerValue) Choices() []string {
	if v.isList {
		return v.list
	}
	if v.text == "" {
		return nil
	}
	return []string{v.text}
}

// IsList reports whether the answer was submitted as a list
func (v AnswerValue) IsList() bool {
	return v.isList
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.text)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = AnswerValue{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &v.text)
	case data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*v = ChoiceAnswer(list...)
		return nil
	case data[0] == '{':
		return fmt.Errorf("answer must be a string or a list of strings")
	default:
		// numbers and booleans are kept as their literal text
		v.text = string(data)
		return nil
	}
}

func (v AnswerValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v.isList {
		return bson.MarshalValue(v.Choices())
	}
	return bson.MarshalValue(v.text)
}

func (v *AnswerValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	*v = AnswerValue{}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		return nil
	case bsontype.String:
		v.text = raw.StringValue()
		return nil
	case bsontype.Array:
		var list []string
		if err := raw.Unmarshal(&list); err != nil {
			return err
		}
		*v = ChoiceAnswer(list...)
		return nil
	default:
		return fmt.Errorf("unsupported answer bson type %s", t)
	}
}

// Answer pairs a question with the submitted value
type Answer struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Answer     AnswerValue `json:"answer" bson:"answer"`
}
