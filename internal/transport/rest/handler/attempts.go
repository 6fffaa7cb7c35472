package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform/internal/model"
	"eduplatform/internal/service"
)

// AttemptHandler handles attempt and result endpoints
type AttemptHandler struct {
	attemptSvc *service.AttemptService
	logger     *slog.Logger
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptSvc *service.AttemptService, logger *slog.Logger) *AttemptHandler {
	return &AttemptHandler{attemptSvc: attemptSvc, logger: logger}
}

// Create handles POST /v1/tests/{testId}/attempts. The body is optional
// and only carries the password of protected tests.
func (h *AttemptHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req PasswordRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := h.attemptSvc.Create(r.Context(), caller, mux.Vars(r)["testId"], req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

// List handles GET /v1/tests/{testId}/attempts
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	attempts, err := h.attemptSvc.ListForTest(r.Context(), caller, mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// Status handles GET /v1/tests/{testId}/attempts/{attemptId}/status
func (h *AttemptHandler) Status(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	status, err := h.attemptSvc.Status(r.Context(), caller, vars["testId"], vars["attemptId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// UpdateAnswersRequest is the body of PUT /v1/attempts/{attemptId}
type UpdateAnswersRequest struct {
	Answers []model.Answer `json:"answers"`
}

// UpdateAnswers handles PUT /v1/attempts/{attemptId}
func (h *AttemptHandler) UpdateAnswers(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdateAnswersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, err := h.attemptSvc.UpdateAnswers(r.Context(), caller, mux.Vars(r)["attemptId"], req.Answers)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Complete handles POST /v1/tests/{testId}/attempts/{attemptId}/complete
func (h *AttemptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	attempt, err := h.attemptSvc.Complete(r.Context(), caller, vars["testId"], vars["attemptId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":   attempt.Score,
		"attempt": attempt,
	})
}

// MyResults handles GET /v1/tests/{testId}/results
func (h *AttemptHandler) MyResults(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	results, err := h.attemptSvc.MyResults(r.Context(), caller, mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// AllResults handles GET /v1/tests/{testId}/user-results
func (h *AttemptHandler) AllResults(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	results, err := h.attemptSvc.AllResults(r.Context(), caller, mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Leaderboard handles GET /v1/tests/{testId}/leaderboard
func (h *AttemptHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	testID := mux.Vars(r)["testId"]
	entries, err := h.attemptSvc.Leaderboard(r.Context(), testID, parseLimit(r, 10))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	rank, err := h.attemptSvc.Rank(r.Context(), testID, caller.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"myRank":  rank,
	})
}
