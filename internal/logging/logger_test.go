package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown", map[string]interface{}{"attempt": 2})
	logger.Error("also shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, 2.0, entries[0]["attempt"])
	assert.Contains(t, entries[0]["caller"], "logging/logger_test.go")
	assert.Equal(t, "ERROR", entries[1]["level"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(DebugLevel, &buf)
	child := base.WithField("job", "abc").WithError(errors.New("boom"))

	child.Info("derived")
	base.Info("base")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["job"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotContains(t, entries[1], "job")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf).WithFormat(TextFormat)

	logger.Info("job finished", map[string]interface{}{"value": 0.5, "attempts": 3})

	line := buf.String()
	assert.Contains(t, line, "INFO  job finished")
	assert.Contains(t, line, "attempts=3")
	assert.Contains(t, line, "value=0.5")
	assert.Less(t, strings.Index(line, "attempts="), strings.Index(line, "value="))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Level: "error", Format: "TEXT", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, ErrorLevel, logger.level)
	assert.Equal(t, TextFormat, logger.format)

	logger, err = NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.level)
	assert.Equal(t, JSONFormat, logger.format)

	_, err = NewLogger(&Config{Output: t.TempDir()})
	assert.Error(t, err, "a directory is not a writable file")
}

func TestZapLoggerBridge(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(DebugLevel, &buf)).Named("bfgs")

	zl.Debug("BFGS iteration",
		zap.Int("iteration", 3),
		zap.Float64("f", 0.125),
		zap.Float32("g", 0.5),
		zap.Bool("stalled", true),
		zap.Float64s("point", []float64{1, 2}),
		zap.Error(errors.New("bad")),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "DEBUG", e["level"])
	assert.Equal(t, "bfgs", e["logger"])
	assert.Equal(t, 3.0, e["iteration"])
	assert.Equal(t, 0.125, e["f"])
	assert.Equal(t, 0.5, e["g"])
	assert.Equal(t, true, e["stalled"])
	assert.Equal(t, []interface{}{1.0, 2.0}, e["point"])
	assert.Equal(t, "bad", e["error"])
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf))

	zl.Debug("dropped")
	zl.With(zap.String("job", "x")).Info("kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0]["job"])
}

func TestMiddlewareLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DebugLevel, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Middleware(logger))
	r.Get("/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/opt_1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "Request started", entries[0]["message"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "inside handler", entries[1]["message"])
	assert.Equal(t, "/status/opt_1", entries[1]["path"])
	assert.Equal(t, "Request completed", entries[2]["message"])
	assert.Equal(t, "INFO", entries[2]["level"])
	assert.Equal(t, 200.0, entries[2]["status"])
	assert.Equal(t, "/status/{id}", entries[2]["route"])
	assert.NotEmpty(t, entries[2]["request_id"])
}

func TestMiddlewareLevels(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		level   string
		message string
	}{
		{"client error", "/x", http.StatusNotFound, "WARN", "Request rejected"},
		{"server error", "/x", http.StatusInternalServerError, "ERROR", "Request failed"},
		{"probe", "/healthz", http.StatusOK, "DEBUG", "Request completed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := Middleware(New(InfoLevel, &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entries := decodeLines(t, &buf)
			if tt.level == "DEBUG" {
				// filtered out at info level
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, tt.message, entries[0]["message"])
			assert.Equal(t, http.StatusText(tt.status), entries[0]["error"])
		})
	}
}
