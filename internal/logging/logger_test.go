package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

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
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown", map[string]interface{}{"k": 1})
	logger.Error("shown too")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, float64(1), entries[0]["k"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Contains(t, entries[0]["caller"], "logging/logger_test.go")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(DebugLevel, &buf)
	child := base.WithField("job", "abc").WithError(errors.New("failed"))

	child.Info("derived")
	base.Info("base")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["job"])
	assert.Equal(t, "failed", entries[0]["error"])
	assert.NotContains(t, entries[1], "job")
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf).WithFormat(TextFormat).WithField("b", 2).WithField("a", 1)

	logger.Info("hello")

	line := buf.String()
	assert.Contains(t, line, "INFO  hello")
	assert.Contains(t, line, " a=1 b=2 caller=logging/logger_test.go:")
}

func TestLoggerUnencodableField(t *testing.T) {
	var buf bytes.Buffer
	New(InfoLevel, &buf).Info("odd", map[string]interface{}{"ch": make(chan int)})

	line := buf.String()
	assert.Contains(t, line, "INFO  odd")
	assert.Contains(t, line, "log_error=json: unsupported type")
	assert.Contains(t, line, "caller=logging/logger_test.go:")
}

func TestLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.WithField("worker", i).Info("tick")
		}(i)
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 20)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, logger.level)
	assert.Equal(t, TextFormat, logger.format)

	logger, err = NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.level)
	assert.Equal(t, JSONFormat, logger.format)

	logger, err = NewLogger(&Config{Level: "FATAL", Output: "discard"})
	require.NoError(t, err)
	assert.Equal(t, FatalLevel, logger.level)

	_, err = NewLogger(&Config{Level: "verbose"})
	assert.EqualError(t, err, `unknown log level "verbose"`)

	_, err = NewLogger(&Config{Format: "xml"})
	assert.EqualError(t, err, `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", InfoLevel},
		{"debug", DebugLevel},
		{"WARN", WarnLevel},
		{"error", ErrorLevel},
		{"dpanic", ErrorLevel},
		{"fatal", FatalLevel},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).Named("vqo").With(zap.String("optimizer", "SequentialOptimizer"))

	zl.Debug("hidden")
	zl.Info("Optimization finished",
		zap.Int("evaluations", 49),
		zap.Float64("min_val", -4),
		zap.Bool("smooth", true),
		zap.Duration("elapsed", time.Second),
		zap.Error(errors.New("none")),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "vqo", e["logger"])
	assert.Equal(t, "SequentialOptimizer", e["optimizer"])
	assert.Equal(t, float64(49), e["evaluations"])
	assert.Equal(t, float64(-4), e["min_val"])
	assert.Equal(t, true, e["smooth"])
	assert.Equal(t, float64(time.Second), e["elapsed"])
	assert.Equal(t, "none", e["error"])
	assert.Contains(t, e["caller"], "logging/logger_test.go")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := &CtxLogger{New(InfoLevel, &buf).WithField("request_id", "r1")}
	ctx := cl.WithContext(context.Background())

	FromContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), `"request_id":"r1"`)
	assert.NotNil(t, FromContext(context.Background()))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, Middleware(logger))
	r.Post("/api/v1/optimize", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handling")
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/optimize", nil))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "handling", entries[0]["message"])
	assert.Equal(t, "/api/v1/optimize", entries[0]["path"])
	assert.NotEmpty(t, entries[0]["request_id"])
	assert.Equal(t, "Request completed", entries[1]["message"])
	assert.Equal(t, float64(http.StatusTeapot), entries[1]["status"])
	assert.Equal(t, "/api/v1/optimize", entries[1]["route"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries = decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Request failed", entries[0]["message"])
	assert.Equal(t, string(WarnLevel), entries[0]["level"])
}
