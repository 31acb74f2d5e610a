package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/pkg/exa/mocks"
)

type stubResearcher struct {
	report      *model.Report
	err         error
	gotQuery    string
	hadDeadline bool
}

func (s *stubResearcher) ProcessQuery(ctx context.Context, query string) (*model.Report, error) {
	s.gotQuery = query
	_, s.hadDeadline = ctx.Deadline()
	return s.report, s.err
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h := newRouter(&stubResearcher{}, nil, nil, nil, 0)

	rr := serve(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_HealthBreakers(t *testing.T) {
	breakers := resilience.NewBreakers(2, time.Minute)
	breakers.For("llm_openai")
	h := newRouter(&stubResearcher{}, nil, breakers, nil, 0)

	rr := serve(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","breakers":{"llm_openai":"closed"}}`, rr.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	h := newRouter(&stubResearcher{}, nil, nil, nil, 0)

	rr := serve(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRouter_Research(t *testing.T) {
	stub := &stubResearcher{report: &model.Report{Data: model.ClassifiedData{
		Signals:           []model.ResearchItem{{Source: "IEA", Content: "Demand up.", Confidence: 0.95}},
		Noise:             []model.ResearchItem{},
		StrategicDecision: "Invest.",
	}}}
	h := newRouter(stub, nil, nil, nil, 5*time.Second)

	rr := serve(t, h, http.MethodPost, "/api/research", `{"query":"ev market"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ev market", stub.gotQuery)
	assert.True(t, stub.hadDeadline)

	var resp model.APIResponse[model.ClassifiedData]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "Invest.", resp.Data.StrategicDecision)
	require.Len(t, resp.Data.Signals, 1)
	assert.Equal(t, "IEA", resp.Data.Signals[0].Source)
}

func TestRouter_ResearchInvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"empty", `{"query":""}`},
		{"number", `{"query":42}`},
		{"list", `{"query":["a"]}`},
		{"malformed", `{"query":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubResearcher{}
			h := newRouter(stub, nil, nil, nil, 0)

			rr := serve(t, h, http.MethodPost, "/api/research", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"success":false,"error":"Invalid query parameter"}`, rr.Body.String())
			assert.Empty(t, stub.gotQuery)
		})
	}
}

func TestRouter_ResearchFailure(t *testing.T) {
	stub := &stubResearcher{
		report: &model.Report{Data: model.ClassifiedData{StrategicDecision: "Error processing query: boom"}},
		err:    eris.New("boom"),
	}
	h := newRouter(stub, nil, nil, nil, 0)

	rr := serve(t, h, http.MethodPost, "/api/research", `{"query":"ev"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to process research query"}`, rr.Body.String())
	assert.False(t, stub.hadDeadline)
}

func TestRouter_ExaWithoutKey(t *testing.T) {
	h := newRouter(&stubResearcher{}, nil, nil, nil, 0)

	rr := serve(t, h, http.MethodPost, "/api/exa", `{"endpoint":"search","data":{"query":"ev"}}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"EXA API key not found"}`, rr.Body.String())
}

func TestRouter_ExaProxy(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Proxy", mock.Anything, "search", mock.MatchedBy(func(b json.RawMessage) bool {
		return string(b) == `{"query":"ev"}`
	})).Return(json.RawMessage(`{"results":[]}`), nil)
	h := newRouter(&stubResearcher{}, client, nil, nil, 0)

	rr := serve(t, h, http.MethodPost, "/api/exa", `{"endpoint":"search","data":{"query":"ev"}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"results":[]}`, rr.Body.String())
}

func TestRouter_ExaErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "client error passes status through",
			err:      resilience.NewStatusError("exa", http.StatusBadRequest, []byte("bad")),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Exa API error: 400"}`,
		},
		{
			name:     "server error",
			err:      resilience.NewStatusError("exa", http.StatusBadGateway, nil),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal server error"}`,
		},
		{
			name:     "transport error",
			err:      eris.New("dial tcp: refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockClient(t)
			client.On("Proxy", mock.Anything, "contents", mock.Anything).Return(nil, tt.err)
			h := newRouter(&stubResearcher{}, client, nil, nil, 0)

			rr := serve(t, h, http.MethodPost, "/api/exa", `{"endpoint":"contents","data":{"urls":["https://a.com"]}}`)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestRouter_ExaMalformedBody(t *testing.T) {
	client := mocks.NewMockClient(t)
	h := newRouter(&stubResearcher{}, client, nil, nil, 0)

	rr := serve(t, h, http.MethodPost, "/api/exa", `not json`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_CORS(t *testing.T) {
	h := newRouter(&stubResearcher{}, nil, nil, []string{"https://app.example.com"}, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/research", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
