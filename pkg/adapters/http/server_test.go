package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/switchboard"
	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesFlow = `
id: sales
name: Sales Flow
nodes:
  - id: start
    type: start
    next: greet
  - id: greet
    type: message
    content: Hello!
    next: menu
  - id: menu
    type: decision
    content: Sales or Support?
    next:
      Sales: sales
      Support: support
  - id: sales
    type: message
    content: Connecting to sales.
    next: end
  - id: support
    type: message
    content: Connecting to support.
    next: end
  - id: end
    type: end
`

func newTestServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	eng := switchboard.New(switchboard.WithLifecycleHooks(metrics.Hooks()))
	srv := httptest.NewServer(httpAdapter.NewHandler(eng, httpAdapter.WithMetrics(reg)))
	t.Cleanup(srv.Close)
	return srv, reg
}

func do(t *testing.T, method, url, contentType, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type eventResponse struct {
	Messages []domain.OutboundMessage `json:"messages"`
	Session  *domain.Session          `json:"session"`
}

func TestServer_Conversation(t *testing.T) {
	srv, _ := newTestServer(t)

	var published struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
	}
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", salesFlow, &published))
	assert.Equal(t, "sales", published.ID)
	assert.Equal(t, 1, published.Version)

	var errResp map[string]any
	assert.Equal(t, http.StatusConflict,
		do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c1","text":"hi"}`, &errResp),
		"no active flow yet")

	require.Equal(t, http.StatusNoContent, do(t, "POST", srv.URL+"/flows/sales/activate", "", "", nil))

	var first eventResponse
	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c1","kind":"user_text","text":"hi"}`, &first))
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "Hello!", first.Messages[0].Text)
	assert.Equal(t, domain.StatusAwaitingInput, first.Session.Status)

	var second eventResponse
	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c1","text":"  Sales "}`, &second))
	require.Len(t, second.Messages, 1)
	assert.Equal(t, "Connecting to sales.", second.Messages[0].Text)
	assert.Equal(t, domain.StatusCompleted, second.Session.Status)

	var sess domain.Session
	require.Equal(t, http.StatusOK, do(t, "GET", srv.URL+"/sessions/c1", "", "", &sess))
	assert.Equal(t, "end", sess.CurrentNodeID)

	assert.Equal(t, http.StatusNotFound, do(t, "GET", srv.URL+"/sessions/nobody", "", "", &errResp))
}

func TestServer_FlowAuthoring(t *testing.T) {
	srv, _ := newTestServer(t)

	var invalid struct {
		Error   string           `json:"error"`
		Defects []map[string]any `json:"defects"`
	}
	broken := "id: broken\nnodes:\n  - id: a\n    type: message\n    content: hi\n    next: nowhere\n"
	require.Equal(t, http.StatusUnprocessableEntity, do(t, "POST", srv.URL+"/flows", "application/yaml", broken, &invalid))
	assert.NotEmpty(t, invalid.Defects)

	var report struct {
		Valid     bool     `json:"valid"`
		Variables []string `json:"variables"`
	}
	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/flows/validate", "application/yaml", salesFlow, &report))
	assert.True(t, report.Valid)

	assert.Equal(t, http.StatusBadRequest, do(t, "POST", srv.URL+"/flows", "application/yaml", "nodes: [", &invalid))

	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", salesFlow, nil))
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", salesFlow, nil))

	var list []map[string]any
	require.Equal(t, http.StatusOK, do(t, "GET", srv.URL+"/flows", "", "", &list))
	require.Len(t, list, 1)
	assert.Equal(t, float64(2), list[0]["version"])

	var def domain.FlowDefinition
	require.Equal(t, http.StatusOK, do(t, "GET", srv.URL+"/flows/sales?version=1", "", "", &def))
	assert.Equal(t, 1, def.Version)
	menu, ok := def.Node("menu")
	require.True(t, ok)
	assert.Equal(t, []string{"Sales", "Support"}, menu.Next.Labels())

	req, _ := http.NewRequest("GET", srv.URL+"/flows/sales", nil)
	req.Header.Set("Accept", "application/yaml")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "Sales: sales")

	assert.Equal(t, http.StatusBadRequest, do(t, "GET", srv.URL+"/flows/sales?version=x", "", "", &invalid))
	assert.Equal(t, http.StatusNotFound, do(t, "GET", srv.URL+"/flows/sales?version=9", "", "", &invalid))

	require.Equal(t, http.StatusNoContent, do(t, "DELETE", srv.URL+"/flows/sales", "", "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, "POST", srv.URL+"/flows/sales/activate", "", "", &invalid))
}

func TestServer_SessionsAndCallbacks(t *testing.T) {
	srv, _ := newTestServer(t)
	active := strings.Replace(salesFlow, "name: Sales Flow", "name: Sales Flow\nactive: true", 1)
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", active, nil))

	var sess domain.Session
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/sessions", "application/json",
		`{"conversation_id":"c2","variables":{"name":"Ana","age":31}}`, &sess))
	assert.Equal(t, "31", sess.Context["age"])

	var errResp map[string]any
	assert.Equal(t, http.StatusConflict, do(t, "POST", srv.URL+"/sessions", "application/json", `{"conversation_id":"c2"}`, &errResp))

	assert.Equal(t, http.StatusConflict,
		do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c2","kind":"action_callback","outcome":"ok"}`, &errResp),
		"no action pending")
	assert.Equal(t, http.StatusBadRequest,
		do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c2","kind":"carrier_pigeon"}`, &errResp))
	assert.Equal(t, http.StatusBadRequest,
		do(t, "POST", srv.URL+"/events", "application/json", `{"text":"hi"}`, &errResp))

	assert.Equal(t, http.StatusBadRequest,
		do(t, "POST", srv.URL+"/sessions/c2/close", "application/json", `{"status":"running"}`, &errResp))
	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/sessions/c2/close", "", "", &sess))
	assert.Equal(t, domain.StatusHandedOff, sess.Status)
	assert.Equal(t, domain.ReasonClosed, sess.Reason)
}

func TestServer_Stream(t *testing.T) {
	srv, _ := newTestServer(t)
	active := strings.Replace(salesFlow, "name: Sales Flow", "name: Sales Flow\nactive: true", 1)
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", active, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/conversations/c3/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c3","text":"hi"}`, nil))

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}
	var msg domain.OutboundMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, "Hello!", msg.Text)
	assert.Equal(t, "c3", msg.ConversationID)
}

func TestServer_MetricsAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	active := strings.Replace(salesFlow, "name: Sales Flow", "name: Sales Flow\nactive: true", 1)
	require.Equal(t, http.StatusCreated, do(t, "POST", srv.URL+"/flows", "application/yaml", active, nil))
	require.Equal(t, http.StatusOK, do(t, "POST", srv.URL+"/events", "application/json", `{"conversation_id":"c4","text":"hi"}`, nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `switchboard_node_visits_total{node_type="message"} 1`)

	var info map[string]string
	require.Equal(t, http.StatusOK, do(t, "GET", srv.URL+"/info", "", "", &info))
	assert.Equal(t, switchboard.Version, info["version"])
}
