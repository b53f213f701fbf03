package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func familyNames(t *testing.T, reg *prometheus.Registry) []string {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func containsName(names []string, fragment string) bool {
	for _, n := range names {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}

func TestObservability_RecordsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New("worker-relay-test", WithRegisterer(reg), WithoutGlobal())
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordRequest(ctx, 200)
	obs.RecordRun(ctx, "completed", 150*time.Millisecond)

	names := familyNames(t, reg)
	assert.True(t, containsName(names, "server"), "request counter exported: %v", names)
	assert.True(t, containsName(names, "run"), "run histogram exported: %v", names)
}

func TestObservability_TracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("worker-relay-test",
		WithRegisterer(prometheus.NewRegistry()),
		WithSpanProcessor(recorder),
		WithoutGlobal(),
	)
	defer obs.Shutdown()

	_, span := obs.Tracer().Start(context.Background(), "assistant.ask")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "assistant.ask", ended[0].Name())
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordRequest(ctx, 500)
		obs.RecordRun(ctx, "failed", time.Second)
		_, span := obs.Tracer().Start(ctx, "noop")
		span.End()
	})
}
