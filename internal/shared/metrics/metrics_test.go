package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBackendCall(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(backendCallsTotal.WithLabelValues("test.op", OutcomeError))
	ObserveBackendCall("test.op", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(backendCallsTotal.WithLabelValues("test.op", OutcomeError))
	assert.Equal(t, before+1, after)

	ObserveBackendCall("test.op", time.Now(), nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(backendCallsTotal.WithLabelValues("test.op", OutcomeSuccess)))
}

func TestFetchGauge(t *testing.T) {
	FetchStarted("gauge-test")
	FetchStarted("gauge-test")
	FetchFinished("gauge-test")
	assert.Equal(t, float64(1), testutil.ToFloat64(fetchesInFlight.WithLabelValues("gauge-test")))
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest("GET", "/health", "200", time.Now())
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200")))
}
