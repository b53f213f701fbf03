package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(RelayRequests.WithLabelValues("418"))
	RelayRequests.WithLabelValues("418").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RelayRequests.WithLabelValues("418")))

	before = testutil.ToFloat64(AssistantRunPolls)
	AssistantRunPolls.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AssistantRunPolls))
}

func TestCollectorsPassLint(t *testing.T) {
	collectors := []prometheus.Collector{
		RelayRequests,
		RelayRequestDuration,
		RelayRequestsInFlight,
		RelayFailures,
		AssistantRuns,
		AssistantRunPolls,
		AssistantCallFailures,
	}
	for _, c := range collectors {
		problems, err := testutil.CollectAndLint(c)
		assert.NoError(t, err)
		assert.Empty(t, problems)
	}
}
