package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Account
}

func NewMemoryRepo(seed ...Account) *MemoryRepo {
	r := &MemoryRepo{byID: make(map[string]Account)}
	for _, a := range seed {
		r.byID[a.ID] = a
	}
	return r
}

func (r *MemoryRepo) Create(ctx context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email != "" && existing.Email == a.Email {
			return ErrEmailTaken
		}
	}
	r.byID[a.ID] = a
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	return a, ok, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return a, true, nil
		}
	}
	return Account{}, false, nil
}

func (r *MemoryRepo) update(id string, at time.Time, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	a.UpdatedAt = at
	r.byID[id] = a
	return nil
}

func (r *MemoryRepo) SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error {
	return r.update(id, at, func(a *Account) { a.Blocked = blocked })
}

func (r *MemoryRepo) SetDeactivation(ctx context.Context, id string, d Deactivation, at time.Time) error {
	return r.update(id, at, func(a *Account) {
		a.Deactivation = d
		if d.IsDeactivated {
			a.Online = false
		}
	})
}

func (r *MemoryRepo) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	return r.update(id, at, func(a *Account) {
		a.Online = online
		seen := at
		a.LastSeenAt = &seen
	})
}

func (r *MemoryRepo) SetInCall(ctx context.Context, id string, inCall bool, at time.Time) error {
	return r.update(id, at, func(a *Account) { a.InCall = inCall })
}

func (r *MemoryRepo) SetUnavailable(ctx context.Context, id string, unavailable bool, at time.Time) error {
	return r.update(id, at, func(a *Account) { a.IsUnavailable = unavailable })
}

func (r *MemoryRepo) ListMatchableMentors(ctx context.Context) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.byID {
		if a.EligibleForMatch() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CountOnlineMentors(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.byID {
		if a.Kind == KindMentor && a.Online && !a.Blocked && a.Verified {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ListDueReactivations(ctx context.Context, now time.Time) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.byID {
		d := a.Deactivation
		if d.IsDeactivated && d.Type == DeactivationTemporary && d.ReactivationDate != nil && !d.ReactivationDate.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListDueDeletions(ctx context.Context, cutoff time.Time) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.byID {
		d := a.Deactivation
		if d.IsDeactivated && d.Type == DeactivationPermanent && !d.MarkedForDeletion &&
			d.DeactivatedAt != nil && !d.DeactivatedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}
