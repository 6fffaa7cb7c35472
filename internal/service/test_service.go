package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"eduplatform/internal/model"
	"eduplatform/internal/repository"
)

// TestInput is the writable part of a test
type TestInput struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	AttemptsAllowed int              `json:"attemptsAllowed"`
	Visibility      model.Visibility `json:"visibility"`
	Password        string           `json:"password"`
	Questions       []model.Question `json:"questions"`
}

// TestService manages the test catalog
type TestService struct {
	testRepo  repository.TestRepo
	validator *Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewTestService creates a new test service
func NewTestService(testRepo repository.TestRepo, validator *Validator, logger *slog.Logger) *TestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestService{
		testRepo:  testRepo,
		validator: validator,
		logger:    logger.With("component", "tests"),
		now:       time.Now,
	}
}

func (s *TestService) load(ctx context.Context, id string) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get test")
	}
	if test == nil {
		return nil, errors.Wrap(ErrNotFound, "test not found")
	}
	return test, nil
}

// apply copies input onto test, filling question ids and defaults
func (s *TestService) apply(test *model.Test, in TestInput) {
	test.Title = in.Title
	test.Description = in.Description
	test.AttemptsAllowed = in.AttemptsAllowed
	test.Visibility = in.Visibility
	if test.Visibility == "" {
		test.Visibility = model.VisibilityPublic
	}
	test.Password = ""
	if test.Visibility == model.VisibilityPassword {
		test.Password = in.Password
	}

	test.Questions = make([]model.Question, len(in.Questions))
	for i, q := range in.Questions {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		if q.Type != model.QuestionTypeText {
			q.CorrectAnswer = ""
		} else {
			q.Options = nil
		}
		test.Questions[i] = q
	}
}

// Create stores a new test. Teachers and admins only.
func (s *TestService) Create(ctx context.Context, caller model.Identity, in TestInput) (*model.Test, error) {
	if !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "only teachers can create tests")
	}

	now := s.now().UTC()
	test := &model.Test{
		ID:        uuid.New().String(),
		CreatorID: caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.apply(test, in)
	if err := s.validator.Struct(test); err != nil {
		return nil, err
	}

	if err := s.testRepo.Create(ctx, test); err != nil {
		return nil, errors.Wrap(err, "failed to create test")
	}
	s.logger.Info("test created", "test", test.ID, "creator", caller.ID, "questions", len(test.Questions))
	return test, nil
}

// Update replaces a test's content. Creator or admin.
func (s *TestService) Update(ctx context.Context, caller model.Identity, id string, in TestInput) (*model.Test, error) {
	test, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, test.CreatorID) {
		return nil, errors.Wrap(ErrForbidden, "cannot edit this test")
	}

	s.apply(test, in)
	test.UpdatedAt = s.now().UTC()
	if err := s.validator.Struct(test); err != nil {
		return nil, err
	}

	if err := s.testRepo.Update(ctx, test); err != nil {
		return nil, translateRepoErr(err)
	}
	return test, nil
}

// Delete removes a test. Creator or admin.
func (s *TestService) Delete(ctx context.Context, caller model.Identity, id string) error {
	test, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(caller, test.CreatorID) {
		return errors.Wrap(ErrForbidden, "cannot delete this test")
	}
	if err := s.testRepo.Delete(ctx, id); err != nil {
		return translateRepoErr(err)
	}
	s.logger.Info("test deleted", "test", id, "by", caller.ID)
	return nil
}

// SetVisibility changes who can see a test. Creator or admin.
func (s *TestService) SetVisibility(ctx context.Context, caller model.Identity, id string, visibility model.Visibility, password string) (*model.Test, error) {
	test, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, test.CreatorID) {
		return nil, errors.Wrap(ErrForbidden, "cannot change this test")
	}

	test.Visibility = visibility
	if visibility == model.VisibilityPassword {
		test.Password = password
	} else {
		test.Password = ""
	}
	test.UpdatedAt = s.now().UTC()
	if err := s.validator.Struct(test); err != nil {
		return nil, err
	}

	if err := s.testRepo.Update(ctx, test); err != nil {
		return nil, translateRepoErr(err)
	}
	return test, nil
}

// VerifyPassword checks the password of a password protected test
func (s *TestService) VerifyPassword(ctx context.Context, id, password string) error {
	test, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if test.Visibility != model.VisibilityPassword {
		return NewValidationError(errors.New("test is not password protected"))
	}
	if test.Password != password {
		return ErrWrongPassword
	}
	return nil
}

// Get returns the test as the caller may see it: staff get the full
// record, everyone else the redacted student view.
func (s *TestService) Get(ctx context.Context, caller model.Identity, id string) (*model.Test, error) {
	test, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() {
		return test, nil
	}
	if test.Visibility == model.VisibilityPrivate {
		return nil, errors.Wrap(ErrNotFound, "test not found")
	}
	view := test.StudentView()
	return &view, nil
}

// List returns summaries; private tests are hidden from students
func (s *TestService) List(ctx context.Context, caller model.Identity) ([]model.TestSummary, error) {
	tests, err := s.testRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tests")
	}

	out := make([]model.TestSummary, 0, len(tests))
	for _, t := range tests {
		if t.Visibility == model.VisibilityPrivate && !caller.IsStaff() {
			continue
		}
		out = append(out, t.Summary())
	}
	return out, nil
}

func canManage(caller model.Identity, creatorID string) bool {
	return caller.IsAdmin() || caller.ID == creatorID
}
