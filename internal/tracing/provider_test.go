package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/harrylevesque/commandapi/internal/utils"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()

	for _, cfg := range []utils.TracingConfig{
		{Enabled: false, Endpoint: "http://localhost:4318"},
		{Enabled: true, Endpoint: "  "},
	} {
		shutdown, err := Setup(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	}
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
