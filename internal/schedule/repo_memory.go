package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"mentorship-platform/internal/calls"
)

type MemoryRepo struct {
	mu        sync.Mutex
	schedules map[string]*Schedule
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{schedules: make(map[string]*Schedule)}
}

func cloneSchedule(s *Schedule) Schedule {
	out := *s
	out.Slots = append([]Slot(nil), s.Slots...)
	return out
}

func (r *MemoryRepo) EnsureSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.schedules {
		if cur.MentorID == s.MentorID && cur.SlotsDate == s.SlotsDate {
			return cloneSchedule(cur), nil
		}
	}
	s.Slots = nil
	r.schedules[s.ID] = &s
	return cloneSchedule(&s), nil
}

func sameOffer(a, b Slot) bool {
	return a.Time == b.Time && a.CallType == b.CallType && a.DurationMinutes == b.DurationMinutes
}

func (r *MemoryRepo) AddSlots(ctx context.Context, scheduleID string, slots []Slot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, ok := r.schedules[scheduleID]
	if !ok {
		return 0, nil
	}
	added := 0
	for _, s := range slots {
		dup := false
		for _, cur := range sch.Slots {
			if sameOffer(cur, s) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		sch.Slots = append(sch.Slots, s)
		sch.UpdatedAt = s.UpdatedAt
		added++
	}
	return added, nil
}

func (r *MemoryRepo) GetSchedule(ctx context.Context, id string) (Schedule, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, ok := r.schedules[id]
	if !ok {
		return Schedule{}, false, nil
	}
	return cloneSchedule(sch), true, nil
}

func (r *MemoryRepo) ListByMentor(ctx context.Context, mentorID, fromDate string) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Schedule
	for _, sch := range r.schedules {
		if sch.MentorID == mentorID && sch.SlotsDate >= fromDate {
			out = append(out, cloneSchedule(sch))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotsDate < out[j].SlotsDate })
	return out, nil
}

func (r *MemoryRepo) DeleteSchedule(ctx context.Context, mentorID, scheduleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, ok := r.schedules[scheduleID]
	if !ok || sch.MentorID != mentorID {
		return false, nil
	}
	for _, s := range sch.Slots {
		if s.Booked {
			return false, nil
		}
	}
	delete(r.schedules, scheduleID)
	return true, nil
}

// locate returns the schedule and slot index for slotID. Caller holds mu.
func (r *MemoryRepo) locate(slotID string) (*Schedule, int) {
	for _, sch := range r.schedules {
		for i := range sch.Slots {
			if sch.Slots[i].ID == slotID {
				return sch, i
			}
		}
	}
	return nil, -1
}

func ref(sch *Schedule, i int) SlotRef {
	return SlotRef{Slot: sch.Slots[i], MentorID: sch.MentorID, SlotsDate: sch.SlotsDate}
}

func (r *MemoryRepo) FindSlot(ctx context.Context, slotID string) (SlotRef, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil {
		return SlotRef{}, false, nil
	}
	return ref(sch, i), true, nil
}

func (r *MemoryRepo) Hold(ctx context.Context, mentorID, slotID, userID string, callType calls.Type, durationMinutes int, now time.Time) (SlotRef, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil || sch.MentorID != mentorID || sch.Slots[i].Booked {
		return SlotRef{}, false, nil
	}
	s := &sch.Slots[i]
	s.Booked = true
	s.Status = SlotPending
	s.UserID = userID
	if callType != "" {
		s.CallType = callType
	}
	if durationMinutes > 0 {
		s.DurationMinutes = durationMinutes
	}
	s.UpdatedAt = now
	return ref(sch, i), true, nil
}

func (r *MemoryRepo) Release(ctx context.Context, slotID, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil {
		return false, nil
	}
	s := &sch.Slots[i]
	if !s.Booked || s.Status != SlotPending || s.UserID != userID {
		return false, nil
	}
	s.Booked = false
	s.Status = SlotAvailable
	s.UserID = ""
	s.UpdatedAt = now
	return true, nil
}

func (r *MemoryRepo) Accept(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil || sch.MentorID != mentorID {
		return SlotRef{}, false, nil
	}
	s := &sch.Slots[i]
	if !s.Booked || s.Status != SlotPending {
		return SlotRef{}, false, nil
	}
	s.Status = SlotAccepted
	s.UpdatedAt = now
	return ref(sch, i), true, nil
}

func (r *MemoryRepo) Unaccept(ctx context.Context, mentorID, slotID, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil || sch.MentorID != mentorID {
		return false, nil
	}
	s := &sch.Slots[i]
	if !s.Booked || s.Status != SlotAccepted || s.UserID != userID {
		return false, nil
	}
	s.Status = SlotPending
	s.UpdatedAt = now
	return true, nil
}

func (r *MemoryRepo) Reject(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil || sch.MentorID != mentorID {
		return SlotRef{}, false, nil
	}
	s := &sch.Slots[i]
	if s.Status == SlotRejected && !s.Booked {
		return SlotRef{}, false, nil
	}
	out := ref(sch, i)
	s.Status = SlotRejected
	s.Booked = false
	s.UserID = ""
	s.UpdatedAt = now
	out.Status = SlotRejected
	out.Booked = false
	out.UpdatedAt = now
	return out, true, nil
}

func (r *MemoryRepo) UpdateSlot(ctx context.Context, mentorID string, slot Slot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slot.ID)
	if sch == nil || sch.MentorID != mentorID || sch.Slots[i].Booked {
		return false, nil
	}
	s := &sch.Slots[i]
	s.Time = slot.Time
	s.CallType = slot.CallType
	s.DurationMinutes = slot.DurationMinutes
	s.Status = slot.Status
	s.UpdatedAt = slot.UpdatedAt
	return true, nil
}

func (r *MemoryRepo) DeleteSlot(ctx context.Context, mentorID, slotID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, i := r.locate(slotID)
	if sch == nil || sch.MentorID != mentorID || sch.Slots[i].Booked {
		return false, nil
	}
	sch.Slots = append(sch.Slots[:i], sch.Slots[i+1:]...)
	return true, nil
}

func (r *MemoryRepo) ListAccepted(ctx context.Context, date string) ([]SlotRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SlotRef
	for _, sch := range r.schedules {
		if sch.SlotsDate != date {
			continue
		}
		for i, s := range sch.Slots {
			if s.Booked && s.Status == SlotAccepted && s.UserID != "" {
				out = append(out, ref(sch, i))
			}
		}
	}
	return out, nil
}
