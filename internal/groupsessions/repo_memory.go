package groupsessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]GroupSession
}

func NewMemoryRepo(seed ...GroupSession) *MemoryRepo {
	r := &MemoryRepo{byID: make(map[string]GroupSession)}
	for _, g := range seed {
		r.byID[g.ID] = clone(g)
	}
	return r
}

func clone(g GroupSession) GroupSession {
	g.BookedUsers = append([]string(nil), g.BookedUsers...)
	return g
}

func (r *MemoryRepo) Create(ctx context.Context, g GroupSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("group session already exists")
	}
	for _, other := range r.byID {
		if other.RoomID == g.RoomID {
			return errors.New("room id already in use")
		}
	}
	r.byID[g.ID] = clone(g)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (GroupSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	return clone(g), ok, nil
}

func (r *MemoryRepo) GetByRoom(ctx context.Context, roomID string) (GroupSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.byID {
		if g.RoomID == roomID {
			return clone(g), true, nil
		}
	}
	return GroupSession{}, false, nil
}

func (r *MemoryRepo) ListByMentor(ctx context.Context, mentorID string) ([]GroupSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []GroupSession
	for _, g := range r.byID {
		if g.MentorID == mentorID {
			out = append(out, clone(g))
		}
	}
	sortBySchedule(out)
	return out, nil
}

func (r *MemoryRepo) ListScheduled(ctx context.Context) ([]GroupSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []GroupSession
	for _, g := range r.byID {
		if g.Status == StatusScheduled && g.MentorID != "" && g.CategoryID != "" {
			out = append(out, clone(g))
		}
	}
	sortBySchedule(out)
	return out, nil
}

func sortBySchedule(list []GroupSession) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ScheduledAt.Equal(list[j].ScheduledAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].ScheduledAt.Before(list[j].ScheduledAt)
	})
}

func (r *MemoryRepo) Book(ctx context.Context, id, userID string, now time.Time) (GroupSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok || g.Status != StatusScheduled || g.HasBooked(userID) || len(g.BookedUsers) >= g.Capacity {
		return GroupSession{}, false, nil
	}
	g.BookedUsers = append(g.BookedUsers, userID)
	g.UpdatedAt = now
	r.byID[id] = g
	return clone(g), true, nil
}

func (r *MemoryRepo) Update(ctx context.Context, g GroupSession) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[g.ID]
	if !ok || g.Capacity < len(cur.BookedUsers) {
		return false, nil
	}
	cur.Title = g.Title
	cur.Description = g.Description
	cur.PriceMinor = g.PriceMinor
	cur.Capacity = g.Capacity
	cur.ScheduledAt = g.ScheduledAt
	cur.Status = g.Status
	cur.JoinLink = g.JoinLink
	cur.UpdatedAt = g.UpdatedAt
	r.byID[g.ID] = cur
	return true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}
