package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"eduplatform/internal/cache"
	"eduplatform/internal/model"
	"eduplatform/internal/repository"
)

// AttemptService drives the attempt lifecycle:
// not started -> in progress -> completed (terminal)
type AttemptService struct {
	testRepo    repository.TestRepo
	attemptRepo repository.AttemptRepo
	userRepo    repository.UserRepo
	leaderboard cache.LeaderboardCache
	locks       *keyedMutex
	logger      *slog.Logger
	now         func() time.Time
}

// NewAttemptService creates a new attempt service
func NewAttemptService(
	testRepo repository.TestRepo,
	attemptRepo repository.AttemptRepo,
	userRepo repository.UserRepo,
	leaderboard cache.LeaderboardCache,
	logger *slog.Logger,
) *AttemptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttemptService{
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		userRepo:    userRepo,
		leaderboard: leaderboard,
		locks:       newKeyedMutex(),
		logger:      logger.With("component", "attempts"),
		now:         time.Now,
	}
}

func (s *AttemptService) loadTest(ctx context.Context, testID string) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get test")
	}
	if test == nil {
		return nil, errors.Wrap(ErrNotFound, "test not found")
	}
	return test, nil
}

// loadAttempt fetches an attempt; a non-empty testID must match
func (s *AttemptService) loadAttempt(ctx context.Context, testID, attemptID string) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get attempt")
	}
	if attempt == nil || (testID != "" && attempt.TestID != testID) {
		return nil, errors.Wrap(ErrNotFound, "attempt not found")
	}
	return attempt, nil
}

// Create starts a new attempt for the caller
func (s *AttemptService) Create(ctx context.Context, caller model.Identity, testID, password string) (*model.Attempt, error) {
	unlock := s.locks.Lock("create:" + caller.ID + ":" + testID)
	defer unlock()

	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	switch test.Visibility {
	case model.VisibilityPrivate:
		if !caller.IsStaff() {
			return nil, errors.Wrap(ErrForbidden, "test is private")
		}
	case model.VisibilityPassword:
		if password != test.Password {
			return nil, ErrWrongPassword
		}
	}

	// attemptsAllowed == 0 only appears on records saved before validation
	if test.AttemptsAllowed > 0 {
		count, err := s.attemptRepo.CountByUserAndTest(ctx, caller.ID, testID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count attempts")
		}
		if count >= test.AttemptsAllowed {
			return nil, ErrAttemptLimit
		}
	}

	attempt := &model.Attempt{
		ID:        uuid.New().String(),
		UserID:    caller.ID,
		TestID:    testID,
		Answers:   []model.Answer{},
		Timestamp: s.now().UTC(),
		Version:   1,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, errors.Wrap(err, "failed to create attempt")
	}

	s.logger.Info("attempt created", "attempt", attempt.ID, "test", testID, "user", caller.ID)
	return attempt, nil
}

// UpdateAnswers replaces the answers of an in-progress attempt. Owner only.
func (s *AttemptService) UpdateAnswers(ctx context.Context, caller model.Identity, attemptID string, answers []model.Answer) (*model.Attempt, error) {
	unlock := s.locks.Lock("attempt:" + attemptID)
	defer unlock()

	attempt, err := s.loadAttempt(ctx, "", attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != caller.ID {
		return nil, errors.Wrap(ErrForbidden, "only the owner may answer")
	}
	if attempt.Completed {
		return nil, ErrAlreadyCompleted
	}

	if answers == nil {
		answers = []model.Answer{}
	}
	attempt.Answers = answers
	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		return nil, translateRepoErr(err)
	}
	return attempt, nil
}

// Complete grades the attempt and closes it. A second call fails with
// ErrAlreadyCompleted and leaves the score untouched.
func (s *AttemptService) Complete(ctx context.Context, caller model.Identity, testID, attemptID string) (*model.Attempt, error) {
	unlock := s.locks.Lock("attempt:" + attemptID)
	defer unlock()

	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.loadAttempt(ctx, testID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != caller.ID && !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "not your attempt")
	}
	if attempt.Completed {
		return nil, ErrAlreadyCompleted
	}

	score := Grade(test, attempt.Answers)
	completedAt := s.now().UTC()
	attempt.Score = &score
	attempt.Completed = true
	attempt.CompletedAt = &completedAt

	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		return nil, translateRepoErr(err)
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.RecordScore(ctx, testID, attempt.UserID, score); err != nil {
			s.logger.Error("failed to update leaderboard", "test", testID, "user", attempt.UserID, "error", err)
		}
	}

	s.logger.Info("attempt completed", "attempt", attemptID, "test", testID, "score", score)
	return attempt, nil
}

// Status returns the attempt without answers. Owner or staff.
func (s *AttemptService) Status(ctx context.Context, caller model.Identity, testID, attemptID string) (*model.AttemptStatus, error) {
	attempt, err := s.loadAttempt(ctx, testID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != caller.ID && !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "not your attempt")
	}
	status := attempt.Status()
	return &status, nil
}

// ListForTest returns every attempt of a test. Staff only.
func (s *AttemptService) ListForTest(ctx context.Context, caller model.Identity, testID string) ([]*model.Attempt, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if _, err := s.loadTest(ctx, testID); err != nil {
		return nil, err
	}
	return s.attemptRepo.ListByTest(ctx, testID)
}

// MyResults lists the caller's completed attempts of a test
func (s *AttemptService) MyResults(ctx context.Context, caller model.Identity, testID string) (*model.TestResults, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list attempts")
	}

	out := &model.TestResults{TestID: test.ID, TestTitle: test.Title, Results: []model.Result{}}
	for _, a := range attempts {
		if a.UserID != caller.ID || !a.Completed || a.Score == nil {
			continue
		}
		out.Results = append(out.Results, model.Result{
			AttemptID: a.ID,
			Score:     *a.Score,
			Timestamp: a.Timestamp,
			Answers:   a.Answers,
		})
	}
	return out, nil
}

// AllResults lists completed attempts of every user with usernames. Staff only.
func (s *AttemptService) AllResults(ctx context.Context, caller model.Identity, testID string) (*model.TestResults, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list attempts")
	}

	names := make(map[string]string)
	out := &model.TestResults{TestID: test.ID, TestTitle: test.Title, Results: []model.Result{}}
	for _, a := range attempts {
		if !a.Completed || a.Score == nil {
			continue
		}
		out.Results = append(out.Results, model.Result{
			AttemptID: a.ID,
			UserID:    a.UserID,
			Username:  s.username(ctx, names, a.UserID),
			Score:     *a.Score,
			Timestamp: a.Timestamp,
		})
	}
	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].Timestamp.Before(out.Results[j].Timestamp)
	})
	return out, nil
}

// Leaderboard returns the best score of the top users of a test
func (s *AttemptService) Leaderboard(ctx context.Context, testID string, limit int) ([]model.LeaderboardEntry, error) {
	if _, err := s.loadTest(ctx, testID); err != nil {
		return nil, err
	}
	if s.leaderboard == nil {
		return []model.LeaderboardEntry{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	entries, err := s.leaderboard.Top(ctx, testID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read leaderboard")
	}
	names := make(map[string]string)
	for i := range entries {
		entries[i].Username = s.username(ctx, names, entries[i].UserID)
	}
	return entries, nil
}

// Rank returns the user's 1-based leaderboard position, or 0 when the user
// has no completed attempt
func (s *AttemptService) Rank(ctx context.Context, testID, userID string) (int, error) {
	if s.leaderboard == nil {
		return 0, nil
	}
	rank, err := s.leaderboard.Rank(ctx, testID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read leaderboard rank")
	}
	if rank < 1 {
		return 0, nil
	}
	return int(rank), nil
}

// WarmLeaderboard records the best stored score of every user for every
// test. Run at startup so a process-local leaderboard matches the results.
func (s *AttemptService) WarmLeaderboard(ctx context.Context) error {
	if s.leaderboard == nil {
		return nil
	}
	tests, err := s.testRepo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list tests")
	}

	recorded := 0
	for _, test := range tests {
		attempts, err := s.attemptRepo.ListByTest(ctx, test.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to list attempts of test %s", test.ID)
		}
		for _, a := range attempts {
			if !a.Completed || a.Score == nil {
				continue
			}
			if err := s.leaderboard.RecordScore(ctx, test.ID, a.UserID, *a.Score); err != nil {
				return errors.Wrap(err, "failed to update leaderboard")
			}
			recorded++
		}
	}

	s.logger.Info("leaderboard warmed", "tests", len(tests), "scores", recorded)
	return nil
}

// username resolves a display name, memoized per call in names
func (s *AttemptService) username(ctx context.Context, names map[string]string, userID string) string {
	if name, ok := names[userID]; ok {
		return name
	}
	name := ""
	if s.userRepo != nil {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to resolve username", "user", userID, "error", err)
		} else if user != nil {
			name = user.Username
		}
	}
	names[userID] = name
	return name
}
