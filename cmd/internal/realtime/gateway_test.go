package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/cmd/internal/board"
	"taskboard/cmd/security/token"
)

// staticVerifier accepts exactly one token value.
type staticVerifier struct {
	accept string
	claims token.Claims
}

func (v staticVerifier) ValidateAccess(tokenStr string, _ time.Time) (token.Claims, error) {
	if tokenStr != v.accept {
		return token.Claims{}, token.ErrTokenInvalid
	}
	return v.claims, nil
}

func newTestGateway(t *testing.T) (*WSGateway, *Hub) {
	t.Helper()
	t.Setenv("TASKBOARD_WS_ORIGIN_REQUIRED", "false")

	hub := NewHub(nil)
	g, err := NewWSGateway(nil, hub, staticVerifier{
		accept: "good-token",
		claims: token.Claims{UserID: "user-1", Role: "MEMBER"},
	})
	require.NoError(t, err)
	return g, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewayRejectsWithoutToken(t *testing.T) {
	g, _ := newTestGateway(t)
	srv := httptest.NewServer(g)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv), &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocol},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, wsURL(srv)+"?access_token=stale", &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocol},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGatewayRejectsDisallowedOrigin(t *testing.T) {
	t.Setenv("TASKBOARD_WS_ORIGIN_REQUIRED", "true")
	t.Setenv("TASKBOARD_WS_ALLOWED_ORIGINS", "http://allowed.example")

	g, err := NewWSGateway(nil, NewHub(nil), staticVerifier{accept: "good-token"})
	require.NoError(t, err)
	srv := httptest.NewServer(g)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"?access_token=good-token", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGatewayStreamsBoardEvents(t *testing.T) {
	g, hub := newTestGateway(t)
	srv := httptest.NewServer(g)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv)+"?access_token=good-token", &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocol},
	})
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	// Wait for registration before publishing.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Publish(board.Event{Type: board.EventTaskCreated, TaskID: "task-42", At: time.Now().UTC()})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeBoardEvent, env.Type)

	var ev board.Event
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, "task-42", ev.TaskID)
}

func TestClassifyReadErr(t *testing.T) {
	assert.Equal(t, readErrCtxDone, classifyReadErr(context.Canceled))
	assert.Equal(t, readErrCtxDone, classifyReadErr(context.DeadlineExceeded))
	assert.Equal(t, readErrConnClosed, classifyReadErr(io.EOF))
	assert.Equal(t, readErrUnknown, classifyReadErr(errors.New("something else")))
}
