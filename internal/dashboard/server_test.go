package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/pl018/project-manager-cli/internal/store"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(&Config{Port: 0})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestServer_BroadcastSnapshot(t *testing.T) {
	s := startServer(t)
	conn := dial(t, s)

	// The read loop registers the client asynchronously.
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	s.BroadcastSnapshot([]*store.Project{
		{UUID: "u1", Name: "alpha", RootPath: "/p/alpha", Enabled: true},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Type != MessageTypeSnapshot {
		t.Errorf("type = %q, want snapshot", msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
	var snap SnapshotData
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Projects) != 1 || snap.Projects[0].Name != "alpha" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestServer_MultipleClients(t *testing.T) {
	s := startServer(t)
	a := dial(t, s)
	b := dial(t, s)
	waitFor(t, func() bool { return s.ClientCount() == 2 })

	s.Broadcast(Message{Type: MessageTypeStats})

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			t.Fatalf("client %s read failed: %v", name, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("client %s decode: %v", name, err)
		}
		if msg.Type != MessageTypeStats {
			t.Errorf("client %s type = %q", name, msg.Type)
		}
	}
}

func TestServer_ClientDisconnect(t *testing.T) {
	s := startServer(t)
	conn := dial(t, s)
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return s.ClientCount() == 0 })
}

func TestServer_Health(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
