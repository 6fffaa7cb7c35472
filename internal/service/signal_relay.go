package service

import (
	"log/slog"

	"eduplatform/internal/model"
)

// SignalRelay forwards opaque WebRTC negotiation messages between two
// connections. It never inspects the payload.
type SignalRelay struct {
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewSignalRelay(logger *slog.Logger) *SignalRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalRelay{logger: logger.With("component", "relay")}
}

// SetBroadcaster sets the broadcaster for real-time events
func (r *SignalRelay) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// Relay sends {from, signal} to env.To. A destination that is gone is
// dropped without error.
func (r *SignalRelay) Relay(fromConnID string, env model.SignalEnvelope) error {
	if env.To == "" {
		return NewValidationError(errInvalidPayload, FieldError{Field: "to", Error: "to is required"})
	}
	if r.broadcaster == nil || !r.broadcaster.IsConnected(env.To) {
		r.logger.Debug("dropping signal for missing connection", "from", fromConnID, "to", env.To)
		return nil
	}
	r.broadcaster.Emit(env.To, EventSignal, model.SignalForward{
		From:   fromConnID,
		Signal: env.Signal,
	})
	return nil
}
