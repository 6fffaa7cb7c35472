package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform/internal/service"
)

// MeetingHandler handles meeting, invite and live room endpoints
type MeetingHandler struct {
	meetingSvc  *service.MeetingService
	presenceSvc *service.PresenceService
	logger      *slog.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingSvc *service.MeetingService, presenceSvc *service.PresenceService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{
		meetingSvc:  meetingSvc,
		presenceSvc: presenceSvc,
		logger:      logger,
	}
}

// CreateMeetingRequest is the body of POST /v1/meetings
type CreateMeetingRequest struct {
	Name string `json:"name"`
}

// List handles GET /v1/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	meetings, err := h.meetingSvc.List(r.Context(), caller)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

// Create handles POST /v1/meetings
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	meeting, err := h.meetingSvc.Create(r.Context(), caller, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

// Get handles GET /v1/meetings/{meetingId}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	meeting, err := h.meetingSvc.Get(r.Context(), caller, mux.Vars(r)["meetingId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// Delete handles DELETE /v1/meetings/{meetingId}
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.meetingSvc.Delete(r.Context(), caller, mux.Vars(r)["meetingId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join handles POST /v1/meetings/{meetingId}/join
func (h *MeetingHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	meeting, err := h.meetingSvc.Join(r.Context(), caller, mux.Vars(r)["meetingId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// RemoveParticipant handles DELETE /v1/meetings/{meetingId}/participants/{userId}
func (h *MeetingHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	meeting, err := h.meetingSvc.RemoveParticipant(r.Context(), caller, vars["meetingId"], vars["userId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// ICEServers handles GET /v1/meetings/ice-servers
func (h *MeetingHandler) ICEServers(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"iceServers": h.meetingSvc.ICEServers(),
	})
}

// CreateInviteRequest is the body of POST /v1/invites
type CreateInviteRequest struct {
	MeetingID string `json:"meetingId"`
	MaxUses   int    `json:"maxUses"`
}

// ListInvites handles GET /v1/invites
func (h *MeetingHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	invites, err := h.meetingSvc.ListInvites(r.Context(), caller)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

// CreateInvite handles POST /v1/invites
func (h *MeetingHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	invite, err := h.meetingSvc.CreateInvite(r.Context(), caller, req.MeetingID, req.MaxUses)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

// AcceptInvite handles POST /v1/invites/{inviteId}/accept
func (h *MeetingHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	meeting, err := h.meetingSvc.AcceptInvite(r.Context(), caller, mux.Vars(r)["inviteId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// DeleteInvite handles DELETE /v1/invites/{inviteId}
func (h *MeetingHandler) DeleteInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.meetingSvc.DeleteInvite(r.Context(), caller, mux.Vars(r)["inviteId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rooms handles GET /v1/rooms
func (h *MeetingHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if !caller.IsStaff() {
		writeError(w, http.StatusForbidden, "permission denied")
		return
	}
	writeJSON(w, http.StatusOK, h.presenceSvc.Rooms())
}
