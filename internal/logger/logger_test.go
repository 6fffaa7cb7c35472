package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "warn", Format: "json"})

	log.Info("hidden")
	log.Warn("shown", "room", "r1")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "r1", rec["room"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Format: "text"}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestRollbarHandler_ReportsErrorsOnly(t *testing.T) {
	type report struct {
		msg    string
		err    error
		extras map[string]interface{}
	}
	var reports []report

	var buf bytes.Buffer
	h := &rollbarHandler{
		next: slog.NewTextHandler(&buf, nil),
		report: func(msg string, err error, extras map[string]interface{}) {
			reports = append(reports, report{msg, err, extras})
		},
	}
	log := slog.New(h).With("component", "attempts")

	boom := errors.New("boom")
	log.Info("fine")
	log.Error("failed to update leaderboard", "error", boom, "test", "t1")

	require.Len(t, reports, 1)
	assert.Equal(t, "failed to update leaderboard", reports[0].msg)
	assert.Equal(t, boom, reports[0].err)
	assert.Equal(t, "attempts", reports[0].extras["component"])
	assert.Equal(t, "t1", reports[0].extras["test"])
	assert.Contains(t, buf.String(), "fine", "records still reach the wrapped handler")
}
