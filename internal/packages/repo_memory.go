package packages

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mentorship-platform/internal/calls"
)

// MemoryRepo is an in-memory Repository. Each conditional method runs under
// one lock so check and write cannot interleave.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Package
}

func NewMemoryRepo(seed ...Package) *MemoryRepo {
	r := &MemoryRepo{byID: make(map[string]Package)}
	for _, p := range seed {
		r.byID[p.ID] = p
	}
	return r
}

func (r *MemoryRepo) Create(ctx context.Context, p Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("package already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Package, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	return p, ok, nil
}

func (r *MemoryRepo) Consume(ctx context.Context, id string, now time.Time) (Package, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Status != StatusActive || p.RemainingSessions <= 0 {
		return Package{}, false, nil
	}
	p.RemainingSessions--
	if p.RemainingSessions == 0 {
		p.Status = StatusExpired
	}
	p.UpdatedAt = now
	r.byID[id] = p
	return p, true, nil
}

func (r *MemoryRepo) Restore(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.UserID == "" || p.RemainingSessions >= p.TotalSessions {
		return false, nil
	}
	if p.Status != StatusActive && p.Status != StatusExpired {
		return false, nil
	}
	p.RemainingSessions++
	p.Status = StatusActive
	p.UpdatedAt = now
	r.byID[id] = p
	return true, nil
}

func (r *MemoryRepo) OpenChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.RemainingSessions != 0 || (p.Status != StatusActive && p.Status != StatusExpired) {
		return Package{}, false, nil
	}
	p.Status = StatusChatSupportActive
	p.ChatSupportExpiresAt = &expiresAt
	p.UpdatedAt = now
	r.byID[id] = p
	return p, true, nil
}

func (r *MemoryRepo) ExtendChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Status != StatusChatSupportActive {
		return Package{}, false, nil
	}
	p.ChatSupportExpiresAt = &expiresAt
	p.UpdatedAt = now
	r.byID[id] = p
	return p, true, nil
}

func (r *MemoryRepo) ExpireChatSupport(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, p := range r.byID {
		if p.Status == StatusChatSupportActive && p.ChatSupportExpiresAt != nil && !p.ChatSupportExpiresAt.After(now) {
			p.Status = StatusExpired
			p.UpdatedAt = now
			r.byID[id] = p
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) UpdateTemplate(ctx context.Context, p Package) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[p.ID]
	if !ok || cur.Status != StatusTemplate {
		return false, nil
	}
	r.byID[p.ID] = p
	return true, nil
}

func (r *MemoryRepo) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok || cur.Status != StatusTemplate {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *MemoryRepo) filter(keep func(Package) bool) []Package {
	var out []Package
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func newestFirst(list []Package) {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, status Status, callType calls.Type) ([]Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(p Package) bool {
		return p.UserID == userID && p.Status == status && (callType == "" || p.Type == callType)
	})
	newestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ListTemplates(ctx context.Context, mentorID string) ([]Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(p Package) bool { return p.MentorID == mentorID && p.Status == StatusTemplate })
	newestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ListChatSupport(ctx context.Context, userID, mentorID string, now time.Time) ([]Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(p Package) bool {
		if p.Status != StatusChatSupportActive || p.ChatSupportExpiresAt == nil || !p.ChatSupportExpiresAt.After(now) {
			return false
		}
		if userID != "" && p.UserID != userID {
			return false
		}
		return mentorID == "" || p.MentorID == mentorID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ChatSupportExpiresAt.Before(*out[j].ChatSupportExpiresAt) })
	return out, nil
}

func (r *MemoryRepo) ListCompletedWithoutSupport(ctx context.Context) ([]Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p Package) bool {
		return p.Status == StatusExpired && p.UserID != "" && p.RemainingSessions == 0 && p.ChatSupportExpiresAt == nil
	}), nil
}
