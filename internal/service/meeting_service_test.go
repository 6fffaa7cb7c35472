package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/model"
	"eduplatform/internal/repository"
)

// flakyMeetingRepo fails AddParticipant while failAdd is set
type flakyMeetingRepo struct {
	repository.MeetingRepo
	failAdd bool
}

func (r *flakyMeetingRepo) AddParticipant(ctx context.Context, meetingID, userID string) error {
	if r.failAdd {
		return errors.New("disk full")
	}
	return r.MeetingRepo.AddParticipant(ctx, meetingID, userID)
}

// flakyInviteRepo fails Consume while failConsume is set
type flakyInviteRepo struct {
	repository.InviteRepo
	failConsume bool
}

func (r *flakyInviteRepo) Consume(ctx context.Context, id string) (*model.Invite, error) {
	if r.failConsume {
		return nil, errors.New("disk full")
	}
	return r.InviteRepo.Consume(ctx, id)
}

func newMeetingService(stores *testStores) *MeetingService {
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}
	return NewMeetingService(stores.meetings, stores.invites, NewValidator(), ice, discardLogger())
}

func TestMeetingService_CreateAndVisibility(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()

	_, err := svc.Create(ctx, student, "nope")
	assert.ErrorIs(t, err, ErrForbidden)

	meeting, err := svc.Create(ctx, teacher, "  Weekly review ")
	require.NoError(t, err)
	assert.Equal(t, "Weekly review", meeting.Name)
	assert.Equal(t, []string{teacher.ID}, meeting.Participants)

	_, err = svc.Get(ctx, student, meeting.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := svc.List(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, "stun:stun.example.org:3478", svc.ICEServers()[0].URLs[0])
}

func TestMeetingService_InviteFlow(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)

	_, err = svc.CreateInvite(ctx, student, meeting.ID, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateInvite(ctx, teacher, meeting.ID, 0)
	assert.Equal(t, KindValidation, Kind(err))

	_, err = svc.CreateInvite(ctx, teacher, "missing", 1)
	assert.Equal(t, KindNotFound, Kind(err))

	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 1)
	require.NoError(t, err)

	joined, err := svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)
	assert.Contains(t, joined.Participants, student.ID)

	got, err := svc.Get(ctx, student, meeting.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Participants, student.ID)

	_, err = svc.AcceptInvite(ctx, student2, invite.ID)
	assert.ErrorIs(t, err, ErrInviteExhausted)

	invites, err := svc.ListInvites(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, 1, invites[0].Used)
}

func TestMeetingService_AcceptTwiceIsConflict(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 5)
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	assert.ErrorIs(t, err, ErrAlreadyInvited)

	invites, _ := svc.ListInvites(ctx, teacher)
	assert.Equal(t, 1, invites[0].Used, "a rejected accept does not use a slot")
}

func TestMeetingService_ConcurrentAcceptNeverOverspends(t *testing.T) {
	stores := newTestStores()
	svc := newMeetingService(stores)
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 3)
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := model.Identity{ID: string(rune('a' + i)), Role: model.RoleStudent}
			if _, err := svc.AcceptInvite(ctx, caller, invite.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	stored, err := stores.invites.GetByID(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Used)
}

func TestMeetingService_DeleteRules(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()
	other := model.Identity{ID: "t2", Role: model.RoleTeacher}

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteInvite(ctx, student, invite.ID), ErrForbidden)
	require.NoError(t, svc.DeleteInvite(ctx, teacher, invite.ID))
	assert.Equal(t, KindNotFound, Kind(svc.DeleteInvite(ctx, teacher, invite.ID)))

	assert.ErrorIs(t, svc.Delete(ctx, other, meeting.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, teacher, meeting.ID))

	_, err = svc.Get(ctx, teacher, meeting.ID)
	assert.Equal(t, KindNotFound, Kind(err))
}

func TestMeetingService_FailedAddKeepsInviteSlot(t *testing.T) {
	stores := newTestStores()
	meetings := &flakyMeetingRepo{MeetingRepo: stores.meetings}
	stores.meetings = meetings
	svc := newMeetingService(stores)
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 1)
	require.NoError(t, err)

	meetings.failAdd = true
	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.Error(t, err)

	stored, err := stores.invites.GetByID(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Used)

	meetings.failAdd = false
	joined, err := svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)
	assert.Contains(t, joined.Participants, student.ID)
}

func TestMeetingService_FailedConsumeRemovesParticipant(t *testing.T) {
	stores := newTestStores()
	invites := &flakyInviteRepo{InviteRepo: stores.invites}
	stores.invites = invites
	svc := newMeetingService(stores)
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 1)
	require.NoError(t, err)

	invites.failConsume = true
	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.Error(t, err)

	got, err := svc.Get(ctx, teacher, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{teacher.ID}, got.Participants)

	invites.failConsume = false
	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)
}

func TestMeetingService_Join(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()
	other := model.Identity{ID: "t2", Role: model.RoleTeacher}

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)

	_, err = svc.Join(ctx, student, meeting.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	joined, err := svc.Join(ctx, other, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{teacher.ID, other.ID}, joined.Participants)

	again, err := svc.Join(ctx, other, meeting.ID)
	require.NoError(t, err)
	assert.Len(t, again.Participants, 2)

	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 1)
	require.NoError(t, err)
	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)

	_, err = svc.Join(ctx, student, meeting.ID)
	assert.NoError(t, err)

	_, err = svc.Join(ctx, teacher, "missing")
	assert.Equal(t, KindNotFound, Kind(err))
}

func TestMeetingService_RemoveParticipant(t *testing.T) {
	svc := newMeetingService(newTestStores())
	ctx := context.Background()

	meeting, err := svc.Create(ctx, teacher, "Lab")
	require.NoError(t, err)
	invite, err := svc.CreateInvite(ctx, teacher, meeting.ID, 2)
	require.NoError(t, err)
	_, err = svc.AcceptInvite(ctx, student, invite.ID)
	require.NoError(t, err)

	_, err = svc.RemoveParticipant(ctx, student2, meeting.ID, student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemoveParticipant(ctx, admin, meeting.ID, teacher.ID)
	assert.Equal(t, KindConflict, Kind(err))

	updated, err := svc.RemoveParticipant(ctx, admin, meeting.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{teacher.ID}, updated.Participants)

	_, err = svc.Get(ctx, student, meeting.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemoveParticipant(ctx, teacher, meeting.ID, student.ID)
	assert.Equal(t, KindNotFound, Kind(err))
}
