package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCompile(t *testing.T) {
	m := New()
	m.RecordCompile("spans", OutcomeOK, time.Millisecond)
	m.RecordCompile("spans", OutcomeOK, time.Millisecond)
	m.RecordCompile("spans", OutcomeUserError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.compileTotal.WithLabelValues("spans", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compileTotal.WithLabelValues("spans", OutcomeUserError)))
}

func TestCacheResult(t *testing.T) {
	m := New()
	m.CacheResult("get", "miss")
	m.CacheResult("get", "hit")
	m.CacheResult("get", "hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheOperations.WithLabelValues("get", "hit")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordCompile("spans", OutcomeOK, time.Second)
	m.CacheResult("get", "hit")
}

func TestWriteText(t *testing.T) {
	m := New()
	m.RecordCompile("spans", OutcomeOK, time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), `eventsearch_compile_total{dataset="spans",outcome="ok"} 1`)
}
