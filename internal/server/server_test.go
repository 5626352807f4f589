package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/cache"
	"github.com/cloud-ru/sky-financial-go/internal/chat"
	"github.com/cloud-ru/sky-financial-go/internal/config"
	"github.com/cloud-ru/sky-financial-go/internal/tools"
)

func newTestServer(t *testing.T, chatURL string) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	handlers := tools.Registry(tools.Deps{
		Config: cfg,
		Tracer: noop.NewTracerProvider().Tracer("test"),
		Cache:  cache.NewMemoryCache(time.Minute),
		Logger: zap.NewNop(),
	})
	chatClient := chat.NewClient(config.ChatConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: chatURL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	srv := httptest.NewServer(New(handlers, chatClient, time.Hour, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestToolEndpoint(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:0")

	resp := postJSON(t, srv.URL+"/api/v1/tools/emi_calculator", map[string]interface{}{
		"amount": 5000000, "annual_rate_percent": 9, "years": 20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Kind   string `json:"kind"`
		Record struct {
			InvestedAmount float64  `json:"investedAmount"`
			MonthlyPayment *float64 `json:"monthlyPayment"`
		} `json:"record"`
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "EMI", body.Kind)
	assert.Equal(t, 5000000.0, body.Record.InvestedAmount)
	require.NotNil(t, body.Record.MonthlyPayment)
	assert.Equal(t, 44986.0, *body.Record.MonthlyPayment)
	assert.Equal(t, 44986.0, body.Result["monthly_payment"])
}

func TestToolEndpointErrors(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:0")

	resp := postJSON(t, srv.URL+"/api/v1/tools/fd_calculator", map[string]interface{}{"amount": 1000})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/tools/sip_calculator", map[string]interface{}{
		"amount": 5000, "annual_rate_percent": 45, "years": 10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	r, err := http.Post(srv.URL+"/api/v1/tools/sip_calculator", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestListToolsAndHealth(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:0")

	resp, err := http.Get(srv.URL + "/api/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["tools"], tools.ToolTax)
	assert.Contains(t, body["tools"], tools.ToolGrowthSchedule)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:0")
	postJSON(t, srv.URL+"/api/v1/tools/ppf_calculator", map[string]interface{}{
		"amount": 100000, "annual_rate_percent": 7.1, "years": 15,
	})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `calculations_total{kind="ppf",status="success"}`)
}

func TestChatEndpoint(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"PPF has a 15 year lock-in.\"}]}}]}\n\n")
	}))
	defer model.Close()

	srv := newTestServer(t, model.URL)

	resp := postJSON(t, srv.URL+"/api/v1/chat", map[string]string{"message": "PPF lock-in?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PPF has a 15 year lock-in.", string(text))

	id := resp.Header.Get("X-Session-ID")
	require.NotEmpty(t, id)

	hist, err := http.Get(srv.URL + "/api/v1/chat/" + id + "/history")
	require.NoError(t, err)
	defer hist.Body.Close()

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&body))
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "welcome", body.Messages[0].ID)
	assert.Equal(t, "PPF lock-in?", body.Messages[1].Text)

	missing, err := http.Get(srv.URL + "/api/v1/chat/unknown/history")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	empty := postJSON(t, srv.URL+"/api/v1/chat", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
}

func TestIdleSessionsExpire(t *testing.T) {
	chatClient := chat.NewClient(config.ChatConfig{Model: "gemini-2.5-flash"}, zap.NewNop())
	srv := New(nil, chatClient, time.Minute, zap.NewNop())
	clock := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }

	first, _ := srv.session("")
	clock = clock.Add(30 * time.Second)
	id, _ := srv.session(first)
	assert.Equal(t, first, id)

	clock = clock.Add(2 * time.Minute)
	second, _ := srv.session("")
	assert.NotEqual(t, first, second)
	assert.NotContains(t, srv.sessions, first)
	assert.Len(t, srv.sessions, 1)

	clock = clock.Add(2 * time.Minute)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chat/"+second+"/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionCountIsCapped(t *testing.T) {
	chatClient := chat.NewClient(config.ChatConfig{Model: "gemini-2.5-flash"}, zap.NewNop())
	srv := New(nil, chatClient, 0, zap.NewNop())
	srv.maxSessions = 2
	clock := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := srv.session("")
		ids = append(ids, id)
		clock = clock.Add(time.Second)
	}

	assert.Len(t, srv.sessions, 2)
	assert.NotContains(t, srv.sessions, ids[0])
	assert.Contains(t, srv.sessions, ids[2])
}
