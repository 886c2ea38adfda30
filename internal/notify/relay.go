package notify

import (
	"context"
	"time"
)

// LiveNotifier delivers to a connected client and reports whether it did.
type LiveNotifier interface {
	NotifyMentor(ctx context.Context, mentorID string, payload any) bool
}

type alerter interface {
	AlertMentor(ctx context.Context, a MentorAlert)
}

// MentorRelay tries the live connection first and queues a MentorAlert for
// offline delivery when the mentor is not connected.
type MentorRelay struct {
	Live  LiveNotifier
	Queue alerter
	clock func() time.Time
}

func NewMentorRelay(live LiveNotifier, queue alerter) *MentorRelay {
	return &MentorRelay{Live: live, Queue: queue, clock: time.Now}
}

// NotifyMentor reports live delivery only; a queued alert still returns false.
func (r *MentorRelay) NotifyMentor(ctx context.Context, mentorID string, payload any) bool {
	if r.Live != nil && r.Live.NotifyMentor(ctx, mentorID, payload) {
		return true
	}
	if r.Queue == nil {
		return false
	}
	alert := MentorAlert{MentorID: mentorID, Kind: "notification", OccurredAt: r.clock().UTC()}
	if m, ok := payload.(map[string]any); ok {
		if kind, ok := m["type"].(string); ok && kind != "" {
			alert.Kind = kind
		}
		alert.Payload = m
	}
	r.Queue.AlertMentor(ctx, alert)
	return false
}
