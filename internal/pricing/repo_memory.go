package pricing

import (
	"context"
	"sort"
	"sync"

	"mentorship-platform/internal/calls"
)

// MemoryRepo is an in-memory RateRepository for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	rates map[string]Rate
}

func NewMemoryRepo(seed ...Rate) *MemoryRepo {
	r := &MemoryRepo{rates: make(map[string]Rate)}
	for _, rate := range seed {
		r.rates[rateKey(rate.MentorID, rate.CallType)] = rate
	}
	return r
}

func rateKey(mentorID string, t calls.Type) string { return mentorID + "|" + string(t) }

func (r *MemoryRepo) FindRate(ctx context.Context, mentorID string, callType calls.Type) (Rate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate, ok := r.rates[rateKey(mentorID, callType)]
	return rate, ok, nil
}

func (r *MemoryRepo) UpsertRate(ctx context.Context, rate Rate) (Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := rateKey(rate.MentorID, rate.CallType)
	if prev, ok := r.rates[k]; ok {
		rate.ID = prev.ID
		rate.CreatedAt = prev.CreatedAt
	}
	r.rates[k] = rate
	return rate, nil
}

func (r *MemoryRepo) ListRates(ctx context.Context, mentorID string) ([]Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Rate
	for _, rate := range r.rates {
		if rate.MentorID == mentorID {
			out = append(out, rate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CallType < out[j].CallType })
	return out, nil
}
