package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/cache"
	"eduplatform/internal/model"
)

func newAttemptFixture(t *testing.T, tests ...*model.Test) (*AttemptService, *testStores) {
	t.Helper()
	stores := newTestStores()
	ctx := context.Background()
	for _, test := range tests {
		require.NoError(t, stores.tests.Create(ctx, test))
	}
	require.NoError(t, stores.users.Upsert(ctx, &model.User{ID: student.ID, Username: "sam"}))
	require.NoError(t, stores.users.Upsert(ctx, &model.User{ID: student2.ID, Username: "kim"}))

	svc := NewAttemptService(stores.tests, stores.attempts, stores.users, stores.board, discardLogger())
	return svc, stores
}

func TestAttempt_HappyPath(t *testing.T) {
	svc, _ := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	attempt, err := svc.Create(ctx, student, "geo", "")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.State())
	assert.Nil(t, attempt.Score)
	assert.Empty(t, attempt.Answers)

	_, err = svc.UpdateAnswers(ctx, student, attempt.ID, []model.Answer{
		{QuestionID: "q1", Answer: model.TextAnswer("Paris")},
		{QuestionID: "q2", Answer: model.TextAnswer("Paris")},
	})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, student, "geo", attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Score)
	assert.Equal(t, 50, *done.Score)
	assert.True(t, done.Completed)
	assert.NotNil(t, done.CompletedAt)

	status, err := svc.Status(ctx, student, "geo", attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, status.State)
	assert.Equal(t, 50, *status.Score)
}

func TestAttempt_CompleteTwiceKeepsScore(t *testing.T) {
	svc, stores := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	attempt, err := svc.Create(ctx, student, "geo", "")
	require.NoError(t, err)
	_, err = svc.UpdateAnswers(ctx, student, attempt.ID, []model.Answer{
		{QuestionID: "q1", Answer: model.TextAnswer("Paris")},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, student, "geo", attempt.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, student, "geo", attempt.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, KindConflict, Kind(err))

	_, err = svc.UpdateAnswers(ctx, student, attempt.ID, []model.Answer{
		{QuestionID: "q2", Answer: model.TextAnswer("Rome")},
	})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	stored, err := stores.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 50, *stored.Score)
	assert.Len(t, stored.Answers, 1)
}

func TestAttempt_LimitReached(t *testing.T) {
	svc, _ := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, student, "geo", "")
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, student, "geo", "")
	assert.ErrorIs(t, err, ErrAttemptLimit)

	// other users have their own budget
	_, err = svc.Create(ctx, student2, "geo", "")
	assert.NoError(t, err)
}

func TestAttempt_ConcurrentCreateRespectsLimit(t *testing.T) {
	svc, stores := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Create(ctx, student, "geo", "")
		}()
	}
	wg.Wait()

	count, err := stores.attempts.CountByUserAndTest(ctx, student.ID, "geo")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAttempt_UnknownTest(t *testing.T) {
	svc, _ := newAttemptFixture(t)
	_, err := svc.Create(context.Background(), student, "missing", "")
	assert.Equal(t, KindNotFound, Kind(err))
}

func TestAttempt_Authorization(t *testing.T) {
	svc, _ := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	attempt, err := svc.Create(ctx, student, "geo", "")
	require.NoError(t, err)

	_, err = svc.UpdateAnswers(ctx, student2, attempt.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateAnswers(ctx, teacher, attempt.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden, "staff may not answer for a student")

	_, err = svc.Status(ctx, student2, "geo", attempt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Complete(ctx, student2, "geo", attempt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Complete(ctx, teacher, "geo", attempt.ID)
	assert.NoError(t, err, "staff may close an attempt")
}

func TestAttempt_WrongTestIDIsNotFound(t *testing.T) {
	other := twoSingleQuestions("other")
	svc, _ := newAttemptFixture(t, twoSingleQuestions("geo"), other)
	ctx := context.Background()

	attempt, err := svc.Create(ctx, student, "geo", "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, student, "other", attempt.ID)
	assert.Equal(t, KindNotFound, Kind(err))
}

func TestAttempt_PasswordAndPrivateTests(t *testing.T) {
	locked := twoSingleQuestions("locked")
	locked.Visibility = model.VisibilityPassword
	locked.Password = "s3cret"
	hidden := twoSingleQuestions("hidden")
	hidden.Visibility = model.VisibilityPrivate

	svc, _ := newAttemptFixture(t, locked, hidden)
	ctx := context.Background()

	_, err := svc.Create(ctx, student, "locked", "nope")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Equal(t, KindForbidden, Kind(err))

	_, err = svc.Create(ctx, student, "locked", "s3cret")
	assert.NoError(t, err)

	_, err = svc.Create(ctx, student, "hidden", "")
	assert.Equal(t, KindForbidden, Kind(err))

	_, err = svc.Create(ctx, teacher, "hidden", "")
	assert.NoError(t, err)
}

func TestAttempt_ZeroAttemptsAllowedIsUnlimited(t *testing.T) {
	legacy := twoSingleQuestions("legacy")
	legacy.AttemptsAllowed = 0
	svc, _ := newAttemptFixture(t, legacy)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), student, "legacy", "")
		require.NoError(t, err)
	}
}

func TestAttempt_ResultsAndLeaderboard(t *testing.T) {
	svc, _ := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	complete := func(who model.Identity, answers ...model.Answer) {
		a, err := svc.Create(ctx, who, "geo", "")
		require.NoError(t, err)
		_, err = svc.UpdateAnswers(ctx, who, a.ID, answers)
		require.NoError(t, err)
		_, err = svc.Complete(ctx, who, "geo", a.ID)
		require.NoError(t, err)
	}

	complete(student, model.Answer{QuestionID: "q1", Answer: model.TextAnswer("Paris")})
	complete(student2,
		model.Answer{QuestionID: "q1", Answer: model.TextAnswer("Paris")},
		model.Answer{QuestionID: "q2", Answer: model.TextAnswer("Rome")},
	)
	// in-progress attempts are not results
	_, err := svc.Create(ctx, student, "geo", "")
	require.NoError(t, err)

	mine, err := svc.MyResults(ctx, student, "geo")
	require.NoError(t, err)
	require.Len(t, mine.Results, 1)
	assert.Equal(t, 50, mine.Results[0].Score)
	assert.Equal(t, "Capitals", mine.TestTitle)

	_, err = svc.AllResults(ctx, student, "geo")
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := svc.AllResults(ctx, teacher, "geo")
	require.NoError(t, err)
	require.Len(t, all.Results, 2)
	names := []string{all.Results[0].Username, all.Results[1].Username}
	assert.ElementsMatch(t, []string{"sam", "kim"}, names)

	board, err := svc.Leaderboard(ctx, "geo", 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "kim", board[0].Username)
	assert.Equal(t, 100, board[0].Score)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 50, board[1].Score)

	list, err := svc.ListForTest(ctx, teacher, "geo")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = svc.ListForTest(ctx, student, "geo")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAttempt_WarmLeaderboardRestoresStoredScores(t *testing.T) {
	svc, stores := newAttemptFixture(t, twoSingleQuestions("geo"))
	ctx := context.Background()

	for _, who := range []model.Identity{student, student} {
		a, err := svc.Create(ctx, who, "geo", "")
		require.NoError(t, err)
		_, err = svc.UpdateAnswers(ctx, who, a.ID, []model.Answer{{QuestionID: "q1", Answer: model.TextAnswer("Paris")}})
		require.NoError(t, err)
		_, err = svc.Complete(ctx, who, "geo", a.ID)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, student2, "geo", "")
	require.NoError(t, err)

	// a new process starts with an empty in-memory board
	restarted := NewAttemptService(stores.tests, stores.attempts, stores.users, cache.NewMemoryLeaderboard(), discardLogger())
	board, err := restarted.Leaderboard(ctx, "geo", 10)
	require.NoError(t, err)
	assert.Empty(t, board)

	require.NoError(t, restarted.WarmLeaderboard(ctx))

	board, err = restarted.Leaderboard(ctx, "geo", 10)
	require.NoError(t, err)
	require.Len(t, board, 1, "only completed attempts count")
	assert.Equal(t, "s1", board[0].UserID)
	assert.Equal(t, "sam", board[0].Username)
	assert.Equal(t, 50, board[0].Score)

	results, err := restarted.AllResults(ctx, teacher, "geo")
	require.NoError(t, err)
	assert.Len(t, results.Results, 2)

	rank, err := restarted.Rank(ctx, "geo", student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = restarted.Rank(ctx, "geo", student2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
}
