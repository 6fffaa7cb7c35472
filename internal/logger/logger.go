package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
)

// Options configures New
type Options struct {
	Level        string // debug, info, warn, error
	Format       string // json or text
	Env          string
	RollbarToken string
}

// New builds the process logger. When a Rollbar token is set, records at
// ERROR and above are also reported to Rollbar.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, handlerOpts)
	} else {
		h = slog.NewJSONHandler(w, handlerOpts)
	}

	if opts.RollbarToken != "" {
		rollbar.SetToken(opts.RollbarToken)
		rollbar.SetEnvironment(opts.Env)
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
		rollbar.SetEnabled(true)
		h = &rollbarHandler{next: h, report: reportToRollbar}
	}

	return slog.New(h)
}

// Flush waits for pending Rollbar reports
func Flush() {
	rollbar.Wait()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rollbarHandler forwards ERROR records to Rollbar before passing them on
type rollbarHandler struct {
	next   slog.Handler
	attrs  []slog.Attr
	report func(msg string, err error, extras map[string]interface{})
}

func (h *rollbarHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *rollbarHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		extras := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
		var err error
		collect := func(a slog.Attr) bool {
			if e, ok := a.Value.Any().(error); ok && err == nil {
				err = e
				return true
			}
			extras[a.Key] = a.Value.String()
			return true
		}
		for _, a := range h.attrs {
			collect(a)
		}
		r.Attrs(collect)
		h.report(r.Message, err, extras)
	}
	return h.next.Handle(ctx, r)
}

func (h *rollbarHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &rollbarHandler{next: h.next.WithAttrs(attrs), attrs: merged, report: h.report}
}

func (h *rollbarHandler) WithGroup(name string) slog.Handler {
	return &rollbarHandler{next: h.next.WithGroup(name), attrs: h.attrs, report: h.report}
}

func reportToRollbar(msg string, err error, extras map[string]interface{}) {
	extras["message"] = msg
	if err != nil {
		rollbar.Error(err, extras)
		return
	}
	rollbar.Error(msg, extras)
}
