package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/config"
)

type fakeHMS struct {
	mu       sync.Mutex
	paths    []string
	failRoom bool
}

func (f *fakeHMS) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths = append(f.paths, r.Method+" "+r.URL.Path)
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer mgmt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/rooms":
			if f.failRoom {
				http.Error(w, "boom", http.StatusBadGateway)
				return
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["template_id"] != "tmpl" {
				t.Errorf("template_id=%v", body["template_id"])
			}
			_, _ = w.Write([]byte(`{"id":"room-1"}`))
		case r.URL.Path == "/room-codes/room/room-1/role/host":
			_, _ = w.Write([]byte(`{"code":"host-code"}`))
		case r.URL.Path == "/room-codes/room/room-1/role/guest":
			_, _ = w.Write([]byte(`{"code":"guest-code"}`))
		case r.URL.Path == "/recordings/room/room-1/start":
			_, _ = w.Write([]byte(`{"id":"rec-1"}`))
		case r.URL.Path == "/recordings/rec-1":
			_, _ = w.Write([]byte(`{"status":"completed","recording_url":"https://cdn/rec-1.mp4"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newClient(url string) *HMSClient {
	return NewHMSClient(config.RoomsConfig{
		APIBaseURL:      url + "/",
		ManagementToken: "mgmt",
		TemplateID:      "tmpl",
		Subdomain:       "acme",
		Timeout:         2 * time.Second,
	})
}

func TestHMSClient_CreateRoomFetchesBothCodes(t *testing.T) {
	f := &fakeHMS{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	room, err := newClient(srv.URL).CreateRoom(context.Background(), CreateRoomRequest{CallType: calls.TypeVideo, Name: "n"})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.RoomID != "room-1" || room.HostCode != "host-code" || room.GuestCode != "guest-code" {
		t.Fatalf("room=%+v", room)
	}
	if len(f.paths) != 3 {
		t.Fatalf("expected 3 vendor calls, got %v", f.paths)
	}
}

func TestHMSClient_Recording(t *testing.T) {
	srv := httptest.NewServer((&fakeHMS{}).handler(t))
	defer srv.Close()
	c := newClient(srv.URL)

	id, err := c.StartRecording(context.Background(), "room-1")
	if err != nil || id != "rec-1" {
		t.Fatalf("StartRecording=%q err=%v", id, err)
	}
	st, err := c.RecordingStatus(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("RecordingStatus: %v", err)
	}
	if !st.Done() || st.URL != "https://cdn/rec-1.mp4" {
		t.Fatalf("state=%+v", st)
	}
}

func TestHMSClient_SurfacesVendorErrors(t *testing.T) {
	srv := httptest.NewServer((&fakeHMS{failRoom: true}).handler(t))
	defer srv.Close()

	_, err := newClient(srv.URL).CreateRoom(context.Background(), CreateRoomRequest{CallType: calls.TypeAudio})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestProvisioner_UsesVendorJoinURLs(t *testing.T) {
	srv := httptest.NewServer((&fakeHMS{}).handler(t))
	defer srv.Close()

	p := NewProvisioner(newClient(srv.URL), "https://app.example.com", "acme")
	room, err := p.Provision(context.Background(), calls.TypeVideo, "m1")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if room.Fallback {
		t.Fatalf("expected vendor room")
	}
	if room.HostJoinURL != "https://acme.app.100ms.live/meeting/host-code" ||
		room.GuestJoinURL != "https://acme.app.100ms.live/meeting/guest-code" {
		t.Fatalf("room=%+v", room)
	}
}

func TestProvisioner_FallsBackOnVendorFailure(t *testing.T) {
	srv := httptest.NewServer((&fakeHMS{failRoom: true}).handler(t))
	defer srv.Close()

	p := NewProvisioner(newClient(srv.URL), "https://app.example.com/", "acme")
	p.newRoomID = func() (string, error) { return "AbC123xyZ789", nil }

	room, err := p.Provision(context.Background(), calls.TypeAudio, "m1")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := "https://app.example.com/user/audio/m1/AbC123xyZ789"
	if !room.Fallback || room.RoomID != "AbC123xyZ789" || room.HostJoinURL != want || room.GuestJoinURL != want {
		t.Fatalf("room=%+v", room)
	}
}

func TestProvisioner_ChatNeverCallsVendor(t *testing.T) {
	f := &fakeHMS{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	p := NewProvisioner(newClient(srv.URL), "https://app.example.com", "acme")
	room, err := p.Provision(context.Background(), calls.TypeChat, "m1")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !room.Fallback || len(f.paths) != 0 {
		t.Fatalf("room=%+v paths=%v", room, f.paths)
	}
	if !strings.HasPrefix(room.HostJoinURL, "https://app.example.com/user/chat/m1/") {
		t.Fatalf("url=%s", room.HostJoinURL)
	}
}

func TestProvisioner_WithoutVendor(t *testing.T) {
	p := NewProvisioner(nil, "https://app.example.com", "")
	if _, err := p.StartRecording(context.Background(), "r"); !errors.Is(err, ErrVendorDisabled) {
		t.Fatalf("expected ErrVendorDisabled, got %v", err)
	}
	room, err := p.Provision(context.Background(), calls.TypeVideo, "m1")
	if err != nil || !room.Fallback {
		t.Fatalf("room=%+v err=%v", room, err)
	}
}
