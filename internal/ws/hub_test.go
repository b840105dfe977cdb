package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zerolog.Nop(), func(r *http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := strings.TrimPrefix(r.URL.Path, "/ws/")
		hub.Serve(w, r, projectID)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, projectID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + projectID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForCount(t *testing.T, hub *Hub, projectID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount(projectID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("project %s has %d connections, want %d", projectID, hub.ConnectionCount(projectID), want)
}

func TestBroadcastReachesProjectSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "proj-1")
	other := dial(t, srv, "proj-2")
	waitForCount(t, hub, "proj-1", 1)
	waitForCount(t, hub, "proj-2", 1)

	hub.BroadcastToProject("proj-1", "job_completed", map[string]any{"job_id": "srv-1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Envelope
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if got.Event != "job_completed" {
		t.Errorf("event = %q, want job_completed", got.Event)
	}
	if got.Data["job_id"] != "srv-1" {
		t.Errorf("data = %v, want job_id srv-1", got.Data)
	}

	// The other project's subscriber must not receive the event.
	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := other.ReadJSON(&got); err == nil {
		t.Fatalf("subscriber of proj-2 unexpectedly received %+v", got)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "proj-1")
	waitForCount(t, hub, "proj-1", 1)

	_ = conn.Close()
	waitForCount(t, hub, "proj-1", 0)
}

func TestBroadcastToEmptyProjectIsNoop(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.BroadcastToProject("proj-none", "job_failed", map[string]any{"job_id": "x"})
}

func TestNilHubBroadcastIsSafe(t *testing.T) {
	var hub *Hub
	hub.BroadcastToProject("proj-1", "job_completed", nil)
}
