package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"

	"eduplatform/internal/model"
	"eduplatform/internal/repository"
)

// MeetingService manages meetings and their invites
type MeetingService struct {
	meetingRepo repository.MeetingRepo
	inviteRepo  repository.InviteRepo
	validator   *Validator
	iceServers  []webrtc.ICEServer
	locks       *keyedMutex
	logger      *slog.Logger
	now         func() time.Time
}

// NewMeetingService creates a new meeting service
func NewMeetingService(
	meetingRepo repository.MeetingRepo,
	inviteRepo repository.InviteRepo,
	validator *Validator,
	iceServers []webrtc.ICEServer,
	logger *slog.Logger,
) *MeetingService {
	if logger == nil {
		logger = slog.Default()
	}
	if iceServers == nil {
		iceServers = []webrtc.ICEServer{}
	}
	return &MeetingService{
		meetingRepo: meetingRepo,
		inviteRepo:  inviteRepo,
		validator:   validator,
		iceServers:  iceServers,
		locks:       newKeyedMutex(),
		logger:      logger.With("component", "meetings"),
		now:         time.Now,
	}
}

// ICEServers returns the STUN/TURN servers clients should use
func (s *MeetingService) ICEServers() []webrtc.ICEServer {
	return s.iceServers
}

// Create schedules a meeting. Teachers and admins only.
func (s *MeetingService) Create(ctx context.Context, caller model.Identity, name string) (*model.Meeting, error) {
	if !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "only teachers can create meetings")
	}

	meeting := &model.Meeting{
		ID:           uuid.New().String(),
		CreatorID:    caller.ID,
		Name:         strings.TrimSpace(name),
		Participants: []string{caller.ID},
		CreatedAt:    s.now().UTC(),
	}
	if err := s.validator.Struct(meeting); err != nil {
		return nil, err
	}
	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, errors.Wrap(err, "failed to create meeting")
	}

	s.logger.Info("meeting created", "meeting", meeting.ID, "creator", caller.ID)
	return meeting, nil
}

// Get returns a meeting; students must be participants
func (s *MeetingService) Get(ctx context.Context, caller model.Identity, id string) (*model.Meeting, error) {
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !meeting.HasParticipant(caller.ID) {
		return nil, errors.Wrap(ErrForbidden, "not a participant")
	}
	return meeting, nil
}

// List returns every meeting for staff and the caller's meetings otherwise
func (s *MeetingService) List(ctx context.Context, caller model.Identity) ([]*model.Meeting, error) {
	meetings, err := s.meetingRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list meetings")
	}
	if caller.IsStaff() {
		return meetings, nil
	}

	out := make([]*model.Meeting, 0, len(meetings))
	for _, m := range meetings {
		if m.HasParticipant(caller.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Delete removes a meeting. Creator or admin.
func (s *MeetingService) Delete(ctx context.Context, caller model.Identity, id string) error {
	meeting, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(caller, meeting.CreatorID) {
		return errors.Wrap(ErrForbidden, "cannot delete this meeting")
	}
	if err := s.meetingRepo.Delete(ctx, id); err != nil {
		return translateRepoErr(err)
	}
	return nil
}

// Join enters a meeting. Staff are added on demand; students must already
// be participants.
func (s *MeetingService) Join(ctx context.Context, caller model.Identity, id string) (*model.Meeting, error) {
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if meeting.HasParticipant(caller.ID) {
		return meeting, nil
	}
	if !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "not invited to this meeting")
	}

	if err := s.meetingRepo.AddParticipant(ctx, id, caller.ID); err != nil {
		return nil, translateRepoErr(err)
	}
	meeting.Participants = append(meeting.Participants, caller.ID)
	s.logger.Info("joined meeting", "meeting", id, "user", caller.ID)
	return meeting, nil
}

// RemoveParticipant takes a user out of a meeting. Staff only; the
// creator cannot be removed.
func (s *MeetingService) RemoveParticipant(ctx context.Context, caller model.Identity, id, userID string) (*model.Meeting, error) {
	if !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "only teachers can remove participants")
	}
	meeting, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !meeting.HasParticipant(userID) {
		return nil, errors.Wrap(ErrNotFound, "participant not found")
	}
	if userID == meeting.CreatorID {
		return nil, errors.Wrap(ErrConflict, "the meeting creator cannot be removed")
	}

	if err := s.meetingRepo.RemoveParticipant(ctx, id, userID); err != nil {
		return nil, translateRepoErr(err)
	}
	kept := make([]string, 0, len(meeting.Participants))
	for _, p := range meeting.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	meeting.Participants = kept

	s.logger.Info("participant removed", "meeting", id, "user", userID, "by", caller.ID)
	return meeting, nil
}

func (s *MeetingService) load(ctx context.Context, id string) (*model.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get meeting")
	}
	if meeting == nil {
		return nil, errors.Wrap(ErrNotFound, "meeting not found")
	}
	return meeting, nil
}

// CreateInvite issues an invite for maxUses users. Teachers and admins only.
func (s *MeetingService) CreateInvite(ctx context.Context, caller model.Identity, meetingID string, maxUses int) (*model.Invite, error) {
	if !caller.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "only teachers can invite")
	}

	invite := &model.Invite{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		MaxUses:   maxUses,
		CreatedAt: s.now().UTC(),
	}
	if err := s.validator.Struct(invite); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, meetingID); err != nil {
		return nil, err
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, errors.Wrap(err, "failed to create invite")
	}
	return invite, nil
}

// AcceptInvite adds the caller to the invite's meeting and uses up one slot
func (s *MeetingService) AcceptInvite(ctx context.Context, caller model.Identity, inviteID string) (*model.Meeting, error) {
	unlock := s.locks.Lock("invite:" + inviteID)
	defer unlock()

	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get invite")
	}
	if invite == nil {
		return nil, errors.Wrap(ErrNotFound, "invite not found")
	}
	if invite.Exhausted() {
		return nil, ErrInviteExhausted
	}

	meeting, err := s.load(ctx, invite.MeetingID)
	if err != nil {
		return nil, err
	}
	if meeting.HasParticipant(caller.ID) {
		return nil, ErrAlreadyInvited
	}

	// The slot is only spent once the user is in the meeting; a failed
	// consume takes the user back out.
	if err := s.meetingRepo.AddParticipant(ctx, meeting.ID, caller.ID); err != nil {
		return nil, translateRepoErr(err)
	}
	if _, err := s.inviteRepo.Consume(ctx, inviteID); err != nil {
		if rerr := s.meetingRepo.RemoveParticipant(ctx, meeting.ID, caller.ID); rerr != nil {
			s.logger.Error("failed to roll back invite accept",
				"invite", inviteID, "meeting", meeting.ID, "user", caller.ID, "error", rerr)
		}
		return nil, translateRepoErr(err)
	}
	meeting.Participants = append(meeting.Participants, caller.ID)

	s.logger.Info("invite accepted", "invite", inviteID, "meeting", meeting.ID, "user", caller.ID)
	return meeting, nil
}

// ListInvites returns all invites. Staff only.
func (s *MeetingService) ListInvites(ctx context.Context, caller model.Identity) ([]*model.Invite, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	return s.inviteRepo.List(ctx)
}

// DeleteInvite removes an invite. Meeting creator or staff.
func (s *MeetingService) DeleteInvite(ctx context.Context, caller model.Identity, inviteID string) error {
	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		return errors.Wrap(err, "failed to get invite")
	}
	if invite == nil {
		return errors.Wrap(ErrNotFound, "invite not found")
	}

	if !caller.IsStaff() {
		meeting, err := s.load(ctx, invite.MeetingID)
		if err != nil {
			return err
		}
		if meeting.CreatorID != caller.ID {
			return errors.Wrap(ErrForbidden, "cannot delete this invite")
		}
	}
	if err := s.inviteRepo.Delete(ctx, inviteID); err != nil {
		return translateRepoErr(err)
	}
	return nil
}
