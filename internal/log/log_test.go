package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFields_ToSliceIsSorted(t *testing.T) {
	f := NewFields().
		WithOperation(OpLogin).
		WithComponent(ComponentAuth).
		WithError(errors.New("boom")).
		WithError(nil).
		WithUser(0).
		WithRequestID("")

	assert.Equal(t, []any{
		FieldComponent, ComponentAuth,
		FieldError, "boom",
		FieldOperation, OpLogin,
	}, f.ToSlice())
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}).WithComponent(ComponentAlerts)
	l.Debug("hello", FieldUserID, int64(7))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, ComponentAlerts, rec[FieldComponent])
	assert.Equal(t, float64(7), rec[FieldUserID])
	assert.Equal(t, ComponentAlerts, l.Component())
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	h := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
			AccessLog(func(*http.Request) string { return "10.0.0.1" })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "nope", http.StatusNotFound)
				}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status_code=404")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "client_ip=10.0.0.1")
	assert.True(t, strings.Contains(out, "component=http"))
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Equal(t, "unknown", l.Component())
}
