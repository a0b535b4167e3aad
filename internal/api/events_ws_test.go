package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tripsched/internal/config"
)

func TestEventsWebSocket(t *testing.T) {
	s := newTestServer(t, config.Default())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/ws"
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", tenant)
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	s.Broker.Publish("someone_else", Event{Type: "trips.generated"})
	s.Broker.Publish(tenant, Event{Type: "week.copied", Data: map[string]any{"copied": 4}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "week.copied" || got.Data["copied"].(float64) != 4 {
		t.Fatalf("event: %+v", got)
	}
}

func TestEventsWebSocketRejectsAnonymousInHMACMode(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Mode = "hmac"
	cfg.Auth.HMACSecret = "secret"
	s := newTestServer(t, cfg)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response: %+v", resp)
	}
}
