package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/showcall/showcall-core/internal/auth"
	"github.com/showcall/showcall-core/internal/session"
)

// dialWS connects to the test server's websocket endpoint with a token.
func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	return msg
}

func TestWebSocket_RequiresToken(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil) //nolint:bodyclose // closed below
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %v, want 401", resp)
	}
	resp.Body.Close()
}

func TestWebSocket_SubscribedClientReceivesEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts, env.token(t, auth.RoleViewer))

	sub := WSMessage{
		Type: WSTypeSubscribe,
		ID:   "sub-1",
		Payload: WSSubscribePayload{
			Channels: []string{"show.show-one"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}

	ack := readWSMessage(t, conn)
	if ack.Type != WSTypeResponse || ack.ID != "sub-1" {
		t.Fatalf("subscribe ack = %+v", ack)
	}

	// Events for the subscribed show arrive; others do not.
	env.hub.Emit(session.Event{
		ShowID:  "show-other",
		Type:    session.EventCueExecuted,
		Payload: map[string]string{"cue_id": "cue-x"},
		At:      time.Now().UTC(),
	})
	env.hub.Emit(session.Event{
		ShowID:  "show-one",
		Type:    session.EventCueExecuted,
		Payload: map[string]string{"cue_id": "cue-a"},
		At:      time.Now().UTC(),
	})

	got := readWSMessage(t, conn)
	if got.Type != WSTypeEvent {
		t.Errorf("message type = %s, want event", got.Type)
	}
	if got.Channel != "show.show-one" {
		t.Errorf("channel = %s, want show.show-one (unsubscribed event leaked)", got.Channel)
	}
	if got.EventType != session.EventCueExecuted {
		t.Errorf("event_type = %s, want %s", got.EventType, session.EventCueExecuted)
	}

	payload, err := json.Marshal(got.Payload)
	if err != nil {
		t.Fatalf("remarshalling payload: %v", err)
	}
	var cue map[string]string
	if err := json.Unmarshal(payload, &cue); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if cue["cue_id"] != "cue-a" {
		t.Errorf("payload cue_id = %s, want cue-a", cue["cue_id"])
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts, env.token(t, auth.RoleOperator))

	subscribe := func(msgType, id string) {
		t.Helper()
		msg := WSMessage{
			Type:    msgType,
			ID:      id,
			Payload: WSSubscribePayload{Channels: []string{"show.show-one"}},
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("writing %s: %v", msgType, err)
		}
		ack := readWSMessage(t, conn)
		if ack.Type != WSTypeResponse || ack.ID != id {
			t.Fatalf("%s ack = %+v", msgType, ack)
		}
	}

	subscribe(WSTypeSubscribe, "m1")
	subscribe(WSTypeUnsubscribe, "m2")

	env.hub.Emit(session.Event{
		ShowID: "show-one",
		Type:   session.EventNoteAdded,
		At:     time.Now().UTC(),
	})

	// Ping round-trip after the emit: if the event had been delivered it
	// would arrive before the pong response.
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	got := readWSMessage(t, conn)
	if got.Type != WSTypePong {
		t.Errorf("after unsubscribe got %s message, want pong", got.Type)
	}
}
