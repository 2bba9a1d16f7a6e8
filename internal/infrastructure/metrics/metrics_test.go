package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipra/internal/domain/entity"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveStage("ground", 3*time.Millisecond)
	r.ObserveGrounding(2, 1)
	r.CountVerdict(entity.Verdict{Label: entity.VerdictMismatch})
	r.CountVerdict(entity.Verdict{Label: entity.VerdictUncertain, Degraded: true})
	r.CountReasoningFailure("timeout")

	assert.Equal(t, 1.0, counter(t, reg, "vipra_verdicts_total", map[string]string{"label": "Mismatch", "degraded": "false"}))
	assert.Equal(t, 1.0, counter(t, reg, "vipra_verdicts_total", map[string]string{"label": "Uncertain", "degraded": "true"}))
	assert.Equal(t, 1.0, counter(t, reg, "vipra_reasoning_failures_total", map[string]string{"reason": "timeout"}))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "vipra_stage_duration_seconds")
	assert.Contains(t, names, "vipra_grounding_links")
	assert.Contains(t, names, "vipra_unresolved_phrases")
}

func counter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg).CountReasoningFailure("error")

	srv := httptest.NewServer(NewHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vipra_reasoning_failures_total{reason="error"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", prometheus.NewRegistry(), nil)
	addr, err := s.Start()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "127.0.0.1:"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
