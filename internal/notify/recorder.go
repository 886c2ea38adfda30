package notify

import (
	"context"
	"sync"
)

// Recorder captures events in memory. Used by tests across packages and by
// local runs without a broker.
type Recorder struct {
	mu       sync.Mutex
	Payments []Payment
	Mails    []Mail
	Alerts   []MentorAlert
}

func (r *Recorder) PaymentNotification(ctx context.Context, p Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Payments = append(r.Payments, p)
}

func (r *Recorder) SendMail(ctx context.Context, m Mail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Mails = append(r.Mails, m)
}

func (r *Recorder) AlertMentor(ctx context.Context, a MentorAlert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, a)
}

func (r *Recorder) Counts() (payments, mails, alerts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Payments), len(r.Mails), len(r.Alerts)
}
