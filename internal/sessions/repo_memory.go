package sessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository guarded by a single mutex.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Session
	messages map[string][]Message
}

func NewMemoryRepo(seed ...Session) *MemoryRepo {
	r := &MemoryRepo{
		byID:     make(map[string]Session),
		messages: make(map[string][]Message),
	}
	for _, s := range seed {
		r.byID[s.ID] = s
	}
	return r
}

func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("session already exists")
	}
	if openAnonymous(s) {
		for _, other := range r.byID {
			if other.UserID == s.UserID && openAnonymous(other) {
				return ErrOpenAnonymousExists
			}
		}
	}
	r.byID[s.ID] = s
	return nil
}

func openAnonymous(s Session) bool {
	return s.IsAnonymous && (s.Status == StatusPending || s.Status == StatusAccepted)
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok, nil
}

func (r *MemoryRepo) GetByAnonymousID(ctx context.Context, anonID string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.IsAnonymous && s.AnonymousSessionID == anonID {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

func statusIn(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, from []Status, to Status, now time.Time) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || !statusIn(s.Status, from) {
		return Session{}, false, nil
	}
	s.Status = to
	if to == StatusCompleted {
		s.EndTime = now
	}
	s.UpdatedAt = now
	r.byID[id] = s
	return s, true, nil
}

func (r *MemoryRepo) RecordJoin(ctx context.Context, id string, role Role, startNow bool, now time.Time) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || !statusIn(s.Status, sourcesOf(StatusActive)) {
		return Session{}, false, nil
	}
	t := now
	switch role {
	case RoleUser:
		s.UserJoined = true
		s.UserJoinedAt = &t
	case RoleMentor:
		s.MentorJoined = true
		s.MentorJoinedAt = &t
	default:
		return Session{}, false, nil
	}
	s.Status = StatusActive
	if !s.TimerStarted && (startNow || (s.UserJoined && s.MentorJoined)) {
		s.TimerStarted = true
		s.ActualStartTime = &t
	}
	s.UpdatedAt = now
	r.byID[id] = s
	return s, true, nil
}

func (r *MemoryRepo) ClaimRecording(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.RecordingID != "" || s.RecordingStatus != RecordingNone {
		return false, nil
	}
	s.RecordingStatus = RecordingProcessing
	s.UpdatedAt = now
	r.byID[id] = s
	return true, nil
}

func (r *MemoryRepo) SetRecording(ctx context.Context, id, recordingID string, status RecordingStatus, url string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil
	}
	s.RecordingID = recordingID
	s.RecordingStatus = status
	s.RecordingURL = url
	s.UpdatedAt = now
	r.byID[id] = s
	return nil
}

func (r *MemoryRepo) AppendMessage(ctx context.Context, m Message, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[m.SessionID]
	if !ok {
		return errors.New("session not found")
	}
	r.messages[m.SessionID] = append(r.messages[m.SessionID], m)
	if s.Status == StatusPending || s.Status == StatusAccepted {
		s.Status = StatusActive
	}
	s.UpdatedAt = now
	r.byID[m.SessionID] = s
	return nil
}

func (r *MemoryRepo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages[sessionID]))
	copy(out, r.messages[sessionID])
	return out, nil
}

func (r *MemoryRepo) FindOpenSupport(ctx context.Context, userID, mentorID string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.IsSupportSession && s.UserID == userID && s.MentorID == mentorID && !s.Status.Terminal() {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

func (r *MemoryRepo) FindOpenAnonymous(ctx context.Context, userID string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.UserID == userID && openAnonymous(s) {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

func (r *MemoryRepo) ListActiveAnonymous(ctx context.Context, userID string) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, s := range r.byID {
		if s.IsAnonymous && s.UserID == userID && !s.Status.Terminal() {
			out = append(out, s)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ExpirePendingAnonymous(ctx context.Context, now time.Time) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for id, s := range r.byID {
		if !s.IsAnonymous || s.Status != StatusPending || s.AcceptExpiresAt == nil || s.AcceptExpiresAt.After(now) {
			continue
		}
		s.Status = StatusExpired
		s.UpdatedAt = now
		r.byID[id] = s
		out = append(out, s)
	}
	newestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ListByParticipant(ctx context.Context, principalID string, role Role) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, s := range r.byID {
		if s.Participant(principalID, role) {
			out = append(out, s)
		}
	}
	newestFirst(out)
	return out, nil
}

func newestFirst(list []Session) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
