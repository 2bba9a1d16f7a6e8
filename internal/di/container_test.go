package di

import (
	"context"
	"image"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipra/internal/application/port/input"
	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
	"vipra/internal/infrastructure/config"
	"vipra/internal/infrastructure/logger"
)

const hierarchyXML = `<hierarchy rotation="0">
  <node index="0" class="android.widget.FrameLayout" enabled="true" visible-to-user="true" bounds="[0,0][400,800]">
    <node index="0" class="android.widget.Button" text="Submit" clickable="true" enabled="true" visible-to-user="true" bounds="[50,600][350,700]"/>
  </node>
</hierarchy>`

type stubReasoner struct {
	response string
	prompts  []string
}

func (s *stubReasoner) Reason(_ context.Context, req output.ReasoningRequest) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	return s.response, nil
}

func request() input.AnalysisRequest {
	return input.AnalysisRequest{
		Screenshot: image.NewNRGBA(image.Rect(0, 0, 400, 800)),
		Hierarchy:  strings.NewReader(hierarchyXML),
		Review:     "The submit button does nothing when I tap it.",
	}
}

func TestNewContainer_OfflinePrepare(t *testing.T) {
	c, err := NewContainer(context.Background(), Options{Offline: true, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Reasoner)
	res, err := c.Analyzer.Prepare(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, res.Grounded)
	assert.Contains(t, res.Prompt, "Box 0")

	_, err = c.Analyzer.Analyze(context.Background(), request())
	assert.ErrorIs(t, err, entity.ErrReasoningUnavailable)
}

func TestNewContainer_ReasonerOverride(t *testing.T) {
	stub := &stubReasoner{response: `{"verdict":"Mismatch","justification":"Box 0 is inert.","cited_boxes":[0],"confidence":0.9}`}
	c, err := NewContainer(context.Background(), Options{Reasoner: stub, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Analyzer.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictMismatch, res.Verdict.Label)
	assert.NotEmpty(t, res.Verdict.Evidence)
	assert.Len(t, stub.prompts, 1)
}

func TestNewContainer_MissingAPIKey(t *testing.T) {
	_, err := NewContainer(context.Background(), Options{Logger: logger.NewNopLogger()})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewContainer_BuildsEachProvider(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenRouter, config.ProviderLangchain} {
		t.Run(provider, func(t *testing.T) {
			cfg := config.Default()
			cfg.Reasoning.Provider = provider
			c, err := NewContainer(context.Background(), Options{Config: &cfg, APIKey: "test-key", Logger: logger.NewNopLogger()})
			require.NoError(t, err)
			defer c.Close()
			assert.NotNil(t, c.Reasoner)
		})
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reasoning.Provider = "carrier-pigeon"
	_, err := NewContainer(context.Background(), Options{Config: &cfg, Offline: true, Logger: logger.NewNopLogger()})
	assert.ErrorContains(t, err, "reasoning.provider")
}

func TestNewContainer_MetricsEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Addr = "127.0.0.1:0"
	c, err := NewContainer(context.Background(), Options{Config: &cfg, Offline: true, Logger: logger.NewNopLogger()})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Analyzer.Prepare(context.Background(), request())
	require.NoError(t, err)

	resp, err := http.Get("http://" + c.MetricsAddr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "vipra_stage_duration_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
