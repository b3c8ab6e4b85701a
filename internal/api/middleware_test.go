package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/harrylevesque/commandapi/internal/storage/memstore"
)

func TestLogRequestsWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter(Deps{Store: memstore.New(), Logger: zerolog.New(&buf)})

	req := httptest.NewRequest(http.MethodGet, "/api/commands", nil)
	req.Header.Set(RequestIDHeader, "log-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, "log-1", line["request_id"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}

func TestTraceRequestsNamesSpanAfterRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	router := NewRouter(Deps{Store: memstore.New(), Logger: zerolog.Nop()})
	router.Use(traceRequests(tp.Tracer("test")))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/commands/7", nil))

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "GET /api/commands/{id}", spans[0].Name())
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	assert.Equal(t, http.StatusOK, rec.code())

	_, _ = rec.Write([]byte("hi"))
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rec.code())
	assert.Equal(t, 2, rec.bytes)
}
