package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"eduplatform/internal/model"
	"eduplatform/internal/service"
)

// TestHandler handles test catalog endpoints
type TestHandler struct {
	testSvc *service.TestService
	logger  *slog.Logger
}

// NewTestHandler creates a new test handler
func NewTestHandler(testSvc *service.TestService, logger *slog.Logger) *TestHandler {
	return &TestHandler{testSvc: testSvc, logger: logger}
}

// List handles GET /v1/tests
func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	tests, err := h.testSvc.List(r.Context(), caller)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// Create handles POST /v1/tests
func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var in service.TestInput
	if !decodeJSON(w, r, &in) {
		return
	}

	test, err := h.testSvc.Create(r.Context(), caller, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

// Get handles GET /v1/tests/{testId}
func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	test, err := h.testSvc.Get(r.Context(), caller, mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// Update handles PUT /v1/tests/{testId}
func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var in service.TestInput
	if !decodeJSON(w, r, &in) {
		return
	}

	test, err := h.testSvc.Update(r.Context(), caller, mux.Vars(r)["testId"], in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// Delete handles DELETE /v1/tests/{testId}
func (h *TestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.testSvc.Delete(r.Context(), caller, mux.Vars(r)["testId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VisibilityRequest is the body of PUT /v1/tests/{testId}/visibility
type VisibilityRequest struct {
	Visibility model.Visibility `json:"visibility"`
	Password   string           `json:"password"`
}

// SetVisibility handles PUT /v1/tests/{testId}/visibility
func (h *TestHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req VisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	test, err := h.testSvc.SetVisibility(r.Context(), caller, mux.Vars(r)["testId"], req.Visibility, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// PasswordRequest carries a test password
type PasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPassword handles POST /v1/tests/{testId}/verify-password
func (h *TestHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	var req PasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.testSvc.VerifyPassword(r.Context(), mux.Vars(r)["testId"], req.Password); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// parseLimit reads ?limit=, falling back to def
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return def
}
