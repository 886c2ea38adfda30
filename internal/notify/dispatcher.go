package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type envelope struct {
	routingKey string
	body       any
}

// Dispatcher is the outbound queue between request handlers and the broker.
// Enqueue never blocks: when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	pub      Publisher
	exchange string
	log      *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	wg     sync.WaitGroup
}

func NewDispatcher(pub Publisher, exchange string, buffer int, log *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		pub:      pub,
		exchange: exchange,
		log:      log,
		timeout:  5 * time.Second,
		queue:    make(chan envelope, buffer),
	}
}

// Start launches n publishing workers.
func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for env := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.pub.Publish(ctx, d.exchange, env.routingKey, env.body); err != nil {
			d.log.Error("notification publish failed", "routing_key", env.routingKey, "err", err)
		}
		cancel()
	}
}

// Stop drains queued events and waits for workers to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue reports whether the event was accepted.
func (d *Dispatcher) Enqueue(routingKey string, body any) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- envelope{routingKey: routingKey, body: body}:
		return true
	default:
		d.log.Warn("notification queue full; dropping", "routing_key", routingKey)
		return false
	}
}

func (d *Dispatcher) PaymentNotification(ctx context.Context, p Payment) {
	if !d.Enqueue(RoutingPayment, p) {
		logFrom(ctx, d.log).Warn("payment notification not queued", "transaction_id", p.TransactionID)
	}
}

func (d *Dispatcher) SendMail(ctx context.Context, m Mail) {
	if m.To == "" {
		return
	}
	if !d.Enqueue(RoutingMail, m) {
		logFrom(ctx, d.log).Warn("mail not queued", "template", m.Template)
	}
}

func (d *Dispatcher) AlertMentor(ctx context.Context, a MentorAlert) {
	if !d.Enqueue(RoutingMentorAlert, a) {
		logFrom(ctx, d.log).Warn("mentor alert not queued", "mentor_id", a.MentorID)
	}
}
