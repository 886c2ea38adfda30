package presence

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type fakeConn struct{ got []any }

func (f *fakeConn) Deliver(p any) bool {
	f.got = append(f.got, p)
	return true
}

type statusLog struct {
	mu     sync.Mutex
	online map[string]bool
}

func (s *statusLog) SetOnline(ctx context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online == nil {
		s.online = map[string]bool{}
	}
	s.online[id] = online
	return nil
}

func (s *statusLog) get(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.online[id]
	return v, ok
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if IsStale(now.Add(-time.Minute), now, 2*time.Minute) {
		t.Fatalf("1m old should be fresh")
	}
	if !IsStale(now.Add(-3*time.Minute), now, 2*time.Minute) {
		t.Fatalf("3m old should be stale")
	}
	if IsStale(now.Add(-2*time.Minute), now, 2*time.Minute) {
		t.Fatalf("exactly at threshold is not stale")
	}
}

func TestMemoryRegistry_SweepAndTouch(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRegistry(time.Minute)
	a, b := &fakeConn{}, &fakeConn{}
	r.Register("m1", a, now)
	r.Register("m2", b, now)

	if !r.Touch("m2", now.Add(50*time.Second)) {
		t.Fatalf("touch m2")
	}
	stale := r.Sweep(now.Add(90 * time.Second))
	if len(stale) != 1 || stale[0] != "m1" {
		t.Fatalf("stale=%v", stale)
	}
	if _, ok := r.Lookup("m1"); ok {
		t.Fatalf("m1 should be gone")
	}
	if r.Touch("m1", now) {
		t.Fatalf("touch on swept id should report false")
	}
}

func TestMemoryRegistry_UnregisterKeepsNewerConnection(t *testing.T) {
	now := time.Now()
	r := NewMemoryRegistry(time.Minute)
	old, fresh := &fakeConn{}, &fakeConn{}
	r.Register("m1", old, now)
	r.Register("m1", fresh, now)

	r.Unregister("m1", old)
	got, ok := r.Lookup("m1")
	if !ok || got != Conn(fresh) {
		t.Fatalf("newer connection must survive the old one closing")
	}
}

func TestHub_NotifyMentorOverWebsocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewMemoryRegistry(time.Minute)
	status := &statusLog{}
	hub := NewHub(reg, status, nil)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { hub.Serve(c, c.Query("id")) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	if hub.NotifyMentor(context.Background(), "m1", Envelope{Type: "x"}) {
		t.Fatalf("offline mentor cannot be notified")
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?id=m1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if online, _ := status.get("m1"); online {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if online, _ := status.get("m1"); !online {
		t.Fatalf("mentor should be online after connect")
	}

	if !hub.NotifyMentor(context.Background(), "m1", Envelope{Type: "new_session", Payload: map[string]string{"id": "s1"}}) {
		t.Fatalf("expected delivery")
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Envelope
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "new_session" {
		t.Fatalf("got %+v", got)
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if online, _ := status.get("m1"); !online {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if online, _ := status.get("m1"); online {
		t.Fatalf("mentor should be offline after disconnect")
	}
}

func TestHub_SweepMarksOffline(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := NewMemoryRegistry(time.Minute)
	status := &statusLog{}
	hub := NewHub(reg, status, nil)
	hub.clock = func() time.Time { return now.Add(5 * time.Minute) }
	reg.Register("m1", &fakeConn{}, now)

	n, err := hub.Sweep(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("sweep n=%d err=%v", n, err)
	}
	if online, ok := status.get("m1"); !ok || online {
		t.Fatalf("expected offline write")
	}
}
