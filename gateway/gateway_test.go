package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/editapi"
	"github.com/scottjudy/deepcell-label/metric"
	"github.com/scottjudy/deepcell-label/project"
)

func newTestGateway(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"feature":0,"frame":0,"labels":[0,0,0,0],"cells":[]}`)
	}))
	t.Cleanup(service.Close)

	client := editapi.NewClient(service.URL, "gw-test", nil)
	p, err := project.New(project.Config{
		ID:          "gw-test",
		Width:       2,
		Height:      2,
		Frames:      3,
		SettleDelay: time.Minute,
	}, client, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	s, err := New(Config{Addr: ":0", DefaultBucket: "default-bucket"}, p, metric.NewRegistry(), nil)
	require.NoError(t, err)

	web := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(web.Close)
	return s, web
}

func dialWebsocket(t *testing.T, web *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(web.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) Envelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", eventType)
		if env.Type == eventType {
			return env
		}
	}
}

func TestGatewayBroadcastsBusEvents(t *testing.T) {
	_, web := newTestGateway(t)
	conn := dialWebsocket(t, web)

	require.NoError(t, conn.WriteJSON(Command{
		Type:    project.EventSetFrame,
		Payload: json.RawMessage(`{"Index": 1}`),
	}))

	env := readUntil(t, conn, project.EventImage)
	assert.Equal(t, "image", env.Bus)

	payload, err := json.Marshal(env.Payload)
	require.NoError(t, err)
	var image project.Image
	require.NoError(t, json.Unmarshal(payload, &image))
	assert.Equal(t, 1, image.Frame)
}

func TestGatewayMouseUpNeedsNoPayload(t *testing.T) {
	_, web := newTestGateway(t)
	conn := dialWebsocket(t, web)

	for _, cmd := range []Command{
		{Type: project.EventAvailableSpace, Payload: json.RawMessage(`{"Width": 2, "Height": 2}`)},
		{Type: project.EventMouseMove, Payload: json.RawMessage(`{"X": 0.5, "Y": 0.5}`)},
		{Type: project.EventMouseDown, Payload: json.RawMessage(`{"X": 0.5, "Y": 0.5}`)},
		{Type: project.EventMouseUp},
	} {
		require.NoError(t, conn.WriteJSON(cmd))
	}

	// a press and release without movement comes back as a click, not an
	// error about the empty MOUSE_UP frame
	env := readUntil(t, conn, project.EventClick)
	assert.Equal(t, "canvas", env.Bus)
}

func TestGatewayRejectsUnknownCommands(t *testing.T) {
	_, web := newTestGateway(t)
	conn := dialWebsocket(t, web)

	require.NoError(t, conn.WriteJSON(Command{Type: "EXPLODE"}))
	env := readUntil(t, conn, "ERROR")
	assert.Equal(t, "gateway", env.Bus)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	env = readUntil(t, conn, "ERROR")
	assert.Equal(t, "gateway", env.Bus)
}

func TestGatewayFanOutReachesEveryClient(t *testing.T) {
	_, web := newTestGateway(t)
	first := dialWebsocket(t, web)
	second := dialWebsocket(t, web)

	require.NoError(t, first.WriteJSON(Command{
		Type:    project.EventSetFrame,
		Payload: json.RawMessage(`{"Index": 2}`),
	}))

	for _, conn := range []*websocket.Conn{first, second} {
		env := readUntil(t, conn, project.EventImage)
		assert.Equal(t, "image", env.Bus)
	}
}

func TestGatewayHealthEndpoint(t *testing.T) {
	_, web := newTestGateway(t)

	resp, err := http.Get(web.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status  string `json:"status"`
		Project string `json:"project"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "gw-test", health.Project)
}

func TestGatewayServesMetrics(t *testing.T) {
	_, web := newTestGateway(t)

	resp, err := http.Get(web.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
