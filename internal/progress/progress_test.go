package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuth_AuthorizationHeader_Valid(t *testing.T) {
	auth := NewJWTAuth("secret")
	token, err := auth.GenerateToken("user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestJWTAuth_QueryParamToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	token, err := auth.GenerateToken("user-2", time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-2", subject)
}

func TestJWTAuth_SecWebSocketProtocolPrefix(t *testing.T) {
	auth := NewJWTAuth("secret")
	token, err := auth.GenerateToken("user-3", time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Sec-WebSocket-Protocol", "other, auth-"+token)

	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-3", subject)
}

func TestJWTAuth_NoTokenAnywhere_IsMissingToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	_, err := auth.Authenticate(req)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestJWTAuth_ExpiredToken_IsExpiredError(t *testing.T) {
	auth := NewJWTAuth("secret")
	token, err := auth.GenerateToken("user-4", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

	_, err = auth.Authenticate(req)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTAuth_WrongSecret_IsInvalidToken(t *testing.T) {
	issuer := NewJWTAuth("secret-a")
	token, err := issuer.GenerateToken("user-5", time.Now().Add(time.Hour))
	require.NoError(t, err)

	verifier := NewJWTAuth("secret-b")
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

	_, err = verifier.Authenticate(req)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTAuth_GarbageToken_IsInvalidToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	req := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)

	_, err := auth.Authenticate(req)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoAuth_SubjectQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?subject=tester", nil)

	subject, err := NoAuth{}.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "tester", subject)
}

func TestNoAuth_DefaultsToAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	subject, err := NoAuth{}.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", subject)
}

func TestNewHub_StartsIdle(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient("client-1", "user-1", hub, nil)
	hub.register <- client
	waitForClientCount(t, hub, 1)

	hub.unregister <- client
	waitForClientCount(t, hub, 0)
}

func TestHub_UnregisterUnknownClient_NeverPanics(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	unknown := NewClient("ghost", "nobody", hub, nil)
	assert.NotPanics(t, func() {
		hub.unregister <- unknown
		waitForClientCount(t, hub, 0)
	})
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := NewClient("client-1", "user-1", hub, nil)

	hub.Subscribe(client, "session-1")
	assert.Contains(t, client.subscriptions(), "session-1")

	hub.mu.RLock()
	_, subscribed := hub.bySession["session-1"][client]
	hub.mu.RUnlock()
	assert.True(t, subscribed)

	hub.Unsubscribe(client, "session-1")
	assert.NotContains(t, client.subscriptions(), "session-1")

	hub.mu.RLock()
	_, stillPresent := hub.bySession["session-1"]
	hub.mu.RUnlock()
	assert.False(t, stillPresent)
}

func TestHub_PublishDeliversOnlyToSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscribed := NewClient("client-1", "user-1", hub, nil)
	other := NewClient("client-2", "user-2", hub, nil)
	hub.register <- subscribed
	hub.register <- other
	waitForClientCount(t, hub, 2)

	hub.Subscribe(subscribed, "session-42")

	hub.Publish("session-42", NewEvent(EventRunStarted, "session-42"))

	select {
	case event := <-subscribed.send:
		assert.Equal(t, EventRunStarted, event.Type)
		assert.Equal(t, "session-42", event.SessionID)
	case <-time.After(time.Second):
		t.Fatal("subscribed client never received the event")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client should not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishToUnknownSession_IsNoOp(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	assert.NotPanics(t, func() {
		hub.Publish("no-such-session", NewEvent(EventRunCompleted, "no-such-session"))
		time.Sleep(10 * time.Millisecond)
	})
}

func TestHub_UnregisterClosesSendChannelAndCleansSubscriptions(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient("client-1", "user-1", hub, nil)
	hub.register <- client
	waitForClientCount(t, hub, 1)
	hub.Subscribe(client, "session-1")

	hub.unregister <- client
	waitForClientCount(t, hub, 0)

	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed on unregister")

	hub.mu.RLock()
	_, present := hub.bySession["session-1"]
	hub.mu.RUnlock()
	assert.False(t, present)
}

func TestHandler_ServeHTTP_SubscribesAndStreamsEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := NewHandler(hub, NoAuth{})
	mux := http.NewServeMux()
	mux.Handle("/validate/stream/{session_id}", handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/validate/stream/session-99?subject=alice"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitForClientCount(t, hub, 1)

	hub.Publish("session-99", NewEvent(EventRunCompleted, "session-99"))

	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, EventRunCompleted, event.Type)
	assert.Equal(t, "session-99", event.SessionID)
}

func TestHandler_ServeHTTP_UnauthorizedWithoutToken(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := NewHandler(hub, NewJWTAuth("secret"))
	mux := http.NewServeMux()
	mux.Handle("/validate/stream/{session_id}", handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/validate/stream/session-1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClient_SubscribeCommand_SendsSuccessResponse(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := NewHandler(hub, NoAuth{})
	mux := http.NewServeMux()
	mux.Handle("/validate/stream/{session_id}", handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/validate/stream/none"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Command{Action: CmdSubscribe, SessionID: "session-7"}))

	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(message, &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "session-7")
}

func TestClient_SubscribeCommand_MissingSessionIDIsRejected(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := NewHandler(hub, NoAuth{})
	mux := http.NewServeMux()
	mux.Handle("/validate/stream/{session_id}", handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/validate/stream/none"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Command{Action: CmdSubscribe}))

	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(message, &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "session_id required")
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d, got %d", want, hub.ClientCount())
}
