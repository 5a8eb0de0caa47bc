package observability

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("repeat_test", reg)

	m.PhaseEntered("active_exercise")
	m.PhaseEntered("active_exercise")
	m.PhaseEntered("active_rest")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(true)
	m.SynthesisFinished(120*time.Millisecond, nil)
	m.SynthesisFinished(80*time.Millisecond, errors.New("offline"))
	m.PlaybackFailed()
	m.QueueDepthChanged(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PhaseEntries.WithLabelValues("active_exercise")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseEntries.WithLabelValues("active_rest")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesSpoken.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinesSpoken.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SynthesisFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaybackFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SynthesisLatency))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PhaseEntered("idle")
		m.CacheLookup(true)
		m.SynthesisFinished(time.Second, nil)
		m.PlaybackFailed()
		m.QueueDepthChanged(1)
	})
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("repeat_test", reg)
	m.PhaseEntered("ready")

	srv := httptest.NewServer(NewServer("", reg).Router())
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, `repeat_test_phase_entries_total{phase="ready"} 1`},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.True(t, strings.Contains(string(body), tt.contains), "body: %s", body)
		})
	}
}

func TestServeShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("", prometheus.NewRegistry()).serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
