package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"

	"eduplatform/internal/service"
	"eduplatform/internal/transport/rest/handler"
	"eduplatform/internal/transport/rest/middleware"
	"eduplatform/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	TestService     *service.TestService
	AttemptService  *service.AttemptService
	MeetingService  *service.MeetingService
	PresenceService *service.PresenceService
	SignalRelay     *service.SignalRelay
	WSHub           *ws.Hub
	CORS            CORSConfig
	Logger          *slog.Logger
}

// CORSConfig lists the allowed origins, methods and headers
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()

	// Initialize handlers
	testHandler := handler.NewTestHandler(c.TestService, logger)
	attemptHandler := handler.NewAttemptHandler(c.AttemptService, logger)
	meetingHandler := handler.NewMeetingHandler(c.MeetingService, c.PresenceService, logger)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.PresenceService, c.SignalRelay, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))
	r.Use(middleware.RequestLogger(logger))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in query param), served uncompressed
	v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	api := v1.NewRoute().Subrouter()
	api.Use(authMW.RequireAuth)
	api.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	// Tests
	api.HandleFunc("/tests", testHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests", testHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/tests/{testId}", testHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests/{testId}", testHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/tests/{testId}", testHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/tests/{testId}/visibility", testHandler.SetVisibility).Methods("PUT", "OPTIONS")
	api.HandleFunc("/tests/{testId}/verify-password", testHandler.VerifyPassword).Methods("POST", "OPTIONS")

	// Attempts and results
	api.HandleFunc("/tests/{testId}/attempts", attemptHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/tests/{testId}/attempts", attemptHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests/{testId}/attempts/{attemptId}/status", attemptHandler.Status).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests/{testId}/attempts/{attemptId}/complete", attemptHandler.Complete).Methods("POST", "OPTIONS")
	api.HandleFunc("/attempts/{attemptId}", attemptHandler.UpdateAnswers).Methods("PUT", "OPTIONS")
	api.HandleFunc("/tests/{testId}/results", attemptHandler.MyResults).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests/{testId}/user-results", attemptHandler.AllResults).Methods("GET", "OPTIONS")
	api.HandleFunc("/tests/{testId}/leaderboard", attemptHandler.Leaderboard).Methods("GET", "OPTIONS")

	// Meetings (ice-servers before {meetingId})
	api.HandleFunc("/meetings/ice-servers", meetingHandler.ICEServers).Methods("GET", "OPTIONS")
	api.HandleFunc("/meetings", meetingHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/meetings", meetingHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/meetings/{meetingId}", meetingHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/meetings/{meetingId}", meetingHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/meetings/{meetingId}/join", meetingHandler.Join).Methods("POST", "OPTIONS")
	api.HandleFunc("/meetings/{meetingId}/participants/{userId}", meetingHandler.RemoveParticipant).Methods("DELETE", "OPTIONS")

	// Invites
	api.HandleFunc("/invites", meetingHandler.ListInvites).Methods("GET", "OPTIONS")
	api.HandleFunc("/invites", meetingHandler.CreateInvite).Methods("POST", "OPTIONS")
	api.HandleFunc("/invites/{inviteId}/accept", meetingHandler.AcceptInvite).Methods("POST", "OPTIONS")
	api.HandleFunc("/invites/{inviteId}", meetingHandler.DeleteInvite).Methods("DELETE", "OPTIONS")

	// Live signaling rooms
	api.HandleFunc("/rooms", meetingHandler.Rooms).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(cfg CORSConfig) mux.MiddlewareFunc {
	allowedOrigins := joinOr(cfg.AllowedOrigins, "*")
	allowedMethods := joinOr(cfg.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS")
	allowedHeaders := joinOr(cfg.AllowedHeaders, "Content-Type, Authorization")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinOr(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}
