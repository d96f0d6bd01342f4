package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orii-home/orii-core/internal/infrastructure/config"
)

// dialWS connects to the test server's WebSocket route with the given token.
func dialWS(t *testing.T, ts *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading message: %v", err)
	}
	return msg
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, router := newTestServer(t, newFakeEngine(), nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	_, resp, err := dialWS(t, ts, "wrong")
	if err == nil {
		t.Fatal("expected dial to fail with bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial response = %v, want 401", resp)
	}
}

func TestWebSocketSubscribeAndBroadcast(t *testing.T) {
	s, router := newTestServer(t, newFakeEngine(), nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	conn, _, err := dialWS(t, ts, testSecret)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelDeviceState}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}

	reply := readMessage(t, conn)
	if reply.Type != WSTypeResponse || reply.ID != "1" {
		t.Fatalf("subscribe reply = %+v", reply)
	}

	// An event on a channel the client did not subscribe to stays quiet;
	// the subscribed channel is delivered.
	s.hub.Broadcast(ChannelDeviceReady, map[string]any{"id": 1})
	s.hub.Broadcast(ChannelDeviceState, map[string]any{"id": 0, "param": map[string]any{"on": true}})

	event := readMessage(t, conn)
	if event.Type != WSTypeEvent || event.EventType != ChannelDeviceState {
		t.Fatalf("event = %+v, want %s event", event, ChannelDeviceState)
	}
	payload, _ := event.Payload.(map[string]any)
	if payload["id"] != float64(0) {
		t.Errorf("event payload = %v", payload)
	}
}

func TestWebSocketPing(t *testing.T) {
	_, router := newTestServer(t, newFakeEngine(), nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	conn, _, err := dialWS(t, ts, testSecret)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "7"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	reply := readMessage(t, conn)
	if reply.Type != WSTypePong || reply.ID != "7" {
		t.Errorf("ping reply = %+v", reply)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	_, router := newTestServer(t, newFakeEngine(), nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	conn, _, err := dialWS(t, ts, testSecret)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{Type: "teleport", ID: "9"}); err != nil {
		t.Fatalf("writing: %v", err)
	}
	reply := readMessage(t, conn)
	if reply.Type != WSTypeError {
		t.Errorf("reply = %+v, want error", reply)
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{PingInterval: 30, PongTimeout: 60}, testLogger())

	hub.Broadcast(ChannelDeviceState, map[string]any{"id": 3})
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}
