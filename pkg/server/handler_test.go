package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
	"github.com/mikeboe/topic-report/pkg/research"
	"github.com/mikeboe/topic-report/pkg/research/tools"
)

type echoLLM struct {
	failOn string
}

func (e echoLLM) Complete(ctx context.Context, messages []clients.Message, opts clients.Options) (string, error) {
	user := messages[len(messages)-1].Content
	if e.failOn != "" && strings.Contains(user, e.failOn) {
		return "", errors.New("provider unavailable")
	}
	return "summary", nil
}

type emptySearch struct{}

func (emptySearch) Search(ctx context.Context, query string, limit int) tools.SearchResult {
	return tools.SearchResult{}
}

func newRouter(t *testing.T, llm clients.Completer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	g, err := research.Variant("sequential")
	require.NoError(t, err)
	engine := &research.ResearchEngine{
		Config:   &config.Config{},
		LLM:      llm,
		Search:   emptySearch{},
		Academic: emptySearch{},
		Graph:    g,
		Out:      io.Discard,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)

	r := gin.New()
	svc := NewService(engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
	NewHandler(svc, mcpHandler).RegisterRoutes(r)
	return r
}

func postReport(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

type reportBody struct {
	Run   research.RunState `json:"run"`
	Logs  []LogEntry        `json:"logs"`
	Error string            `json:"error"`
}

func TestCreateReport(t *testing.T) {
	r := newRouter(t, echoLLM{})

	w := postReport(r, `{"topic":"AI in education"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body reportBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AI in education", body.Run.Topic)
	require.NotNil(t, body.Run.Output)
	assert.Equal(t, "summary", *body.Run.Output)
	assert.Nil(t, body.Run.Industry)
	assert.Empty(t, body.Error)

	var messages []string
	for _, entry := range body.Logs {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "Starting run")
	assert.Contains(t, messages, "Run complete")
	assert.Equal(t, body.Run.ID.String(), body.Logs[0].Metadata["run_id"])
}

func TestCreateReportEmptyTopic(t *testing.T) {
	r := newRouter(t, echoLLM{})

	for _, body := range []string{`{"topic":""}`, `{"topic":"   "}`, `{}`} {
		w := postReport(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := postReport(r, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReportAborted(t *testing.T) {
	// Fails the merge step, whose prompt is the only one mentioning the report title.
	r := newRouter(t, echoLLM{failOn: "360° Topic Report"})

	w := postReport(r, `{"topic":"AI in education"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body reportBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "provider unavailable")
	assert.NotNil(t, body.Run.Academic)
	assert.NotNil(t, body.Run.News)
	assert.Nil(t, body.Run.Report)
	assert.Nil(t, body.Run.Output)
	assert.NotEmpty(t, body.Logs)
}

func TestGetGraph(t *testing.T) {
	r := newRouter(t, echoLLM{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var g research.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, "sequential", g.Name)
	assert.Equal(t, []string{research.StepMerge}, g.Deps[research.StepOutput])
}

func TestHealthz(t *testing.T) {
	r := newRouter(t, echoLLM{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMCPMounted(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, echoLLM{}))
	defer srv.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
	require.NoError(t, err)
	defer cs.Close()

	require.NoError(t, cs.Ping(context.Background(), nil))
}
