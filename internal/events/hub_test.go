package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial client %d: %v", i, err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	waitForClients(t, hub, 2)

	hub.Publish(context.Background(), IssueCreated, map[string]any{"title": "Fix login bug"})

	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}

		var got struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("client %d decode: %v", i, err)
		}
		if got.Event != IssueCreated {
			t.Fatalf("client %d event = %q, want %q", i, got.Event, IssueCreated)
		}
		if got.Data["title"] != "Fix login bug" {
			t.Fatalf("client %d payload = %+v", i, got.Data)
		}
	}
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitForClients(t, hub, 1)
	_ = conn.Close()
	waitForClients(t, hub, 0)

	// publishing to an empty hub must not panic
	hub.Publish(context.Background(), IssueDeleted, map[string]any{"id": "x"})
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}
