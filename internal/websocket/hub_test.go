package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops-backend/internal/middleware"
	"siteops-backend/internal/models"
	"siteops-backend/internal/safety"
	"siteops-backend/internal/store"
)

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func startHub(t *testing.T) (*Hub, *store.Store, *httptest.Server) {
	t.Helper()
	t.Setenv("APP_JWT_SECRET", "ws-secret")

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	s := store.New(store.NewMemoryBackend())
	srv := httptest.NewServer(HandleWebSocket(hub, s))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, s, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, claims middleware.UserClaims) *websocket.Conn {
	t.Helper()
	before := hub.GetClientCount()

	token, err := middleware.IssueToken(claims)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.GetClientCount() == before+1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestRejectsMissingToken(t *testing.T) {
	_, _, srv := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPingPong(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, hub, srv, middleware.UserClaims{UserID: "u1", Email: "a@b.c", Role: "supervisor"})

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readEnvelope(t, conn).Type)
}

func TestCueAndFeedReachEveryClient(t *testing.T) {
	hub, _, srv := startHub(t)
	a := dial(t, hub, srv, middleware.UserClaims{UserID: "u1", Email: "a@b.c", Role: "supervisor"})
	b := dial(t, hub, srv, middleware.UserClaims{UserID: "u2", Email: "d@e.f", Role: "operator"})

	alert := models.Alert{ID: "x", ConditionKey: "hazard:1:Blasting Zone", Severity: models.SeverityCritical}
	require.NoError(t, hub.DeliverCue(context.Background(), safety.CueFor(alert)))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "safety_alert_cue", env.Type)
		var cue safety.Cue
		require.NoError(t, json.Unmarshal(env.Data, &cue))
		assert.Equal(t, 3, cue.Repeat)
		assert.Equal(t, "hazard:1:Blasting Zone", cue.Alert.ConditionKey)
	}

	hub.PublishAlerts([]models.Alert{alert})
	env := readEnvelope(t, a)
	assert.Equal(t, "safety_alerts", env.Type)
}

func TestRoleBroadcast(t *testing.T) {
	hub, _, srv := startHub(t)
	sup := dial(t, hub, srv, middleware.UserClaims{UserID: "u1", Email: "a@b.c", Role: "supervisor"})
	op := dial(t, hub, srv, middleware.UserClaims{UserID: "u2", Email: "d@e.f", Role: "operator"})

	hub.BroadcastToRole(map[string]string{"type": "supervisor_only"}, "supervisor", "admin")
	hub.BroadcastAll(map[string]string{"type": "everyone"})

	assert.Equal(t, "supervisor_only", readEnvelope(t, sup).Type)
	assert.Equal(t, "everyone", readEnvelope(t, sup).Type)
	assert.Equal(t, "everyone", readEnvelope(t, op).Type)
}

func TestOperatorLocationUpdate(t *testing.T) {
	hub, s, srv := startHub(t)
	conn := dial(t, hub, srv, middleware.UserClaims{UserID: "u1", Email: "john.smith@company.com", Role: "operator"})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "location_update",
		"data": map[string]interface{}{"x": 150.0, "y": 160.0, "zone": "central"},
	}))

	env := readEnvelope(t, conn)
	require.Equal(t, "operator_location_update", env.Type)

	op, err := s.Operator(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, op.CurrentLocation)
	assert.Equal(t, 150.0, op.CurrentLocation.X)
	assert.Equal(t, "central", op.CurrentLocation.Zone)
}

func TestOperatorCannotMoveSomeoneElse(t *testing.T) {
	hub, s, srv := startHub(t)
	conn := dial(t, hub, srv, middleware.UserClaims{UserID: "u9", Email: "nobody@company.com", Role: "operator"})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "location_update",
		"data": map[string]interface{}{"x": 1.0, "y": 1.0, "operator_id": 2.0},
	}))

	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)

	op, err := s.Operator(context.Background(), 2)
	require.NoError(t, err)
	assert.NotEqual(t, 1.0, op.CurrentLocation.X)
}
