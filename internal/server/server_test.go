package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/headfinder/internal/server"
	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
	"github.com/Sumatoshi-tech/headfinder/pkg/config"
	"github.com/Sumatoshi-tech/headfinder/pkg/observability"
	"github.com/Sumatoshi-tech/headfinder/pkg/rulepack"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

const sentenceBody = `{"tree":{"tag":"S","children":[
	{"tag":"NP","children":[{"tag":"NNP","children":[{"tag":"Ana","word":"Ana"}]}]},
	{"tag":"VP","children":[{"tag":"VBZ","children":[{"tag":"sings","word":"sings"}]}]}]}}`

func newHandler(t *testing.T, pack string, deps server.Deps) http.Handler {
	t.Helper()

	f, err := rulepack.Load(pack, symbol.NewTable())
	require.NoError(t, err)

	deps.Annotator = annotate.New(f)

	return server.NewHandler(deps)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rec
}

func TestHeads_OK(t *testing.T) {
	t.Parallel()

	rec := do(t, newHandler(t, "english", server.Deps{}), http.MethodPost, "/api/heads", sentenceBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res annotate.Result

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "sings", res.HeadWord)
	assert.True(t, res.Tree.Children[1].Head)
	assert.False(t, res.Tree.Children[0].Head)
}

func TestHeads_Errors(t *testing.T) {
	t.Parallel()

	h := newHandler(t, "english", server.Deps{MaxBodyBytes: 512})

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"malformed body", `{"tree":`, http.StatusBadRequest, "decode request"},
		{"missing tree", `{}`, http.StatusBadRequest, "tree"},
		{"schema violation", `{"tree":{"word":"x"}}`, http.StatusBadRequest, "violations"},
		{"no rule", `{"tree":{"tag":"ZZ","children":[{"tag":"A","children":[{"tag":"a","word":"a"}]}]}}`, http.StatusUnprocessableEntity, "no head rule"},
		{"too large", `{"tree":"` + strings.Repeat("x", 600) + `"}`, http.StatusRequestEntityTooLarge, "exceeds 512 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, h, http.MethodPost, "/api/heads", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestHeads_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := do(t, newHandler(t, "english", server.Deps{}), http.MethodGet, "/api/heads", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRules(t *testing.T) {
	t.Parallel()

	h := newHandler(t, "english", server.Deps{})

	rec := do(t, h, http.MethodGet, "/api/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []annotate.RuleInfo

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.NotEmpty(t, rules)

	rec = do(t, h, http.MethodGet, "/api/rules/NP", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "en-np")

	rec = do(t, h, http.MethodGet, "/api/rules/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRules_UnmappedDefault(t *testing.T) {
	t.Parallel()

	rec := do(t, newHandler(t, "spanish", server.Deps{}), http.MethodGet, "/api/rules/NOPE", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tag":"*"`)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, newHandler(t, "spanish", server.Deps{}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health server.HealthResponse

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "spanish", health.Pack)
	assert.Positive(t, health.Rules)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reader, promHandler, err := observability.NewPrometheusReader()
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	h := newHandler(t, "english", server.Deps{RED: red, Metrics: promHandler})

	do(t, h, http.MethodPost, "/api/heads", sentenceBody)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "headfind_requests")
	assert.Contains(t, rec.Body.String(), `op="POST /api/heads"`)

	rec = do(t, newHandler(t, "english", server.Deps{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}
	srv := server.New(cfg, newHandler(t, "english", server.Deps{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"pack":"english"`)

	cancel()
	require.NoError(t, <-done)
}
