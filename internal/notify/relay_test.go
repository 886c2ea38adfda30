package notify

import (
	"context"
	"testing"
)

type stubLive struct{ connected map[string]bool }

func (s stubLive) NotifyMentor(ctx context.Context, mentorID string, payload any) bool {
	return s.connected[mentorID]
}

func TestMentorRelay_LiveDeliverySkipsQueue(t *testing.T) {
	rec := &Recorder{}
	r := NewMentorRelay(stubLive{connected: map[string]bool{"m1": true}}, rec)
	if !r.NotifyMentor(context.Background(), "m1", map[string]any{"type": "anonymous_session_request"}) {
		t.Fatalf("expected live delivery")
	}
	if _, _, alerts := rec.Counts(); alerts != 0 {
		t.Fatalf("expected no queued alert, got %d", alerts)
	}
}

func TestMentorRelay_QueuesWhenOffline(t *testing.T) {
	rec := &Recorder{}
	r := NewMentorRelay(stubLive{}, rec)
	if r.NotifyMentor(context.Background(), "m2", map[string]any{"type": "anonymous_session_request"}) {
		t.Fatalf("offline mentor must not report delivery")
	}
	if len(rec.Alerts) != 1 || rec.Alerts[0].MentorID != "m2" || rec.Alerts[0].Kind != "anonymous_session_request" {
		t.Fatalf("unexpected alerts %+v", rec.Alerts)
	}
}
