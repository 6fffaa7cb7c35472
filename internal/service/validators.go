package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"eduplatform/internal/model"
)

var (
	// custom validation tags
	needsOptionsTag   = "needs_options"
	needsCorrectTag   = "needs_correct"
	singleCorrectTag  = "single_correct"
	needsAnswerTag    = "needs_answer"
	duplicateIDTag    = "unique_id"
	needsPasswordTag  = "needs_password"
	errInvalidPayload = errors.New("invalid input")
)

// Validator checks inputs and renders failures as field errors
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a validator with English messages and JSON field names
func NewValidator() *Validator {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(questionStructValidation, model.Question{})
	validate.RegisterStructValidation(testStructValidation, model.Test{})

	v := &Validator{validate: validate, translator: translator}
	v.registerCustomTranslations(needsOptionsTag, needsCorrectTag, singleCorrectTag,
		needsAnswerTag, duplicateIDTag, needsPasswordTag)
	return v
}

// registerCustomTranslations binds messages for struct-level tags; the
// default translations are already registered so registration is a noop.
func (v *Validator) registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.validate.RegisterTranslation(tag, v.translator, registerFn, translateCustomErrs)
	}
}

func translateCustomErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case needsOptionsTag:
		return "choice questions need at least one option"
	case needsCorrectTag:
		return "at least one option must be marked correct"
	case singleCorrectTag:
		return "single choice questions allow exactly one correct option"
	case needsAnswerTag:
		return "text questions need a correct answer"
	case duplicateIDTag:
		return "question ids must be unique"
	case needsPasswordTag:
		return "password is required for password protected tests"
	default:
		return fe.Error()
	}
}

// Struct checks s and returns a *ValidationError listing every failed field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(v.translator),
		})
	}
	return NewValidationError(errInvalidPayload, fields...)
}

// fieldPath drops the root struct name: "Test.questions[0].text" -> "questions[0].text"
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(model.Question)
	if !ok {
		return
	}

	switch q.Type {
	case model.QuestionTypeSingle, model.QuestionTypeMultiple:
		if len(q.Options) == 0 {
			sl.ReportError(q.Options, "options", "Options", needsOptionsTag, "")
			return
		}
		correct := len(q.CorrectOptions())
		if correct == 0 {
			sl.ReportError(q.Options, "options", "Options", needsCorrectTag, "")
		} else if q.Type == model.QuestionTypeSingle && correct > 1 {
			sl.ReportError(q.Options, "options", "Options", singleCorrectTag, "")
		}
	case model.QuestionTypeText:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", needsAnswerTag, "")
		}
	}
}

func testStructValidation(sl validator.StructLevel) {
	t, ok := sl.Current().Interface().(model.Test)
	if !ok {
		return
	}

	if t.Visibility == model.VisibilityPassword && t.Password == "" {
		sl.ReportError(t.Password, "password", "Password", needsPasswordTag, "")
	}

	seen := make(map[string]bool, len(t.Questions))
	for _, q := range t.Questions {
		if q.ID == "" {
			continue
		}
		if seen[q.ID] {
			sl.ReportError(t.Questions, "questions", "Questions", duplicateIDTag, "")
			return
		}
		seen[q.ID] = true
	}
}
