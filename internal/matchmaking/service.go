package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"
)

const (
	SessionWindow = 30 * time.Minute
	AcceptWindow  = 10 * time.Minute
)

// MentorPool is the account view matchmaking needs.
type MentorPool interface {
	Require(ctx context.Context, id string, kind accounts.Kind) (accounts.Account, error)
	MatchableMentors(ctx context.Context) ([]accounts.Account, error)
	OnlineMentorCount(ctx context.Context) (int, error)
}

// SessionStore is the slice of the session lifecycle matchmaking drives.
type SessionStore interface {
	Create(ctx context.Context, in sessions.NewSession) (sessions.Session, error)
	GetByAnonymousID(ctx context.Context, anonID string) (sessions.Session, error)
	FindOpenAnonymous(ctx context.Context, userID string) (sessions.Session, bool, error)
	ListActiveAnonymous(ctx context.Context, userID string) ([]sessions.Session, error)
	ExpirePendingAnonymous(ctx context.Context) ([]sessions.Session, error)
	Accept(ctx context.Context, id, mentorID string) (sessions.Session, error)
	Reject(ctx context.Context, id, mentorID string) (sessions.Session, error)
	End(ctx context.Context, s sessions.Session) (sessions.Session, error)
}

// Notifier pushes a realtime alert to a mentor. It reports delivery and never blocks.
type Notifier interface {
	NotifyMentor(ctx context.Context, mentorID string, payload any) bool
}

// Service pairs a caller with a uniformly random eligible mentor. The pick is
// deliberately unranked so load spreads across the pool.
type Service struct {
	pool     MentorPool
	sessions SessionStore
	notifier Notifier

	rngMu sync.Mutex
	rng   *rand.Rand
	clock func() time.Time
}

func NewService(pool MentorPool, store SessionStore, notifier Notifier, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{pool: pool, sessions: store, notifier: notifier, rng: rng, clock: time.Now}
}

type Match struct {
	Session            sessions.Session `json:"session"`
	AnonymousSessionID string           `json:"anonymous_session_id"`
	MentorID           string           `json:"mentor_id"`
	MentorName         string           `json:"mentor_name"`
	ExpiresAt          time.Time        `json:"expires_at"`
	AcceptExpiresAt    time.Time        `json:"accept_expires_at"`
	Notified           bool             `json:"notified"`
}

// Create opens an anonymous session for callerID with a random available mentor.
func (s *Service) Create(ctx context.Context, callerID string, sessionType calls.Type) (Match, error) {
	if callerID == "" {
		return Match{}, ErrInvalidArgument
	}
	switch sessionType {
	case calls.TypeAudio, calls.TypeChat:
	case calls.TypeVideo, calls.TypeGroup:
		return Match{}, ErrInvalidArgument
	default:
		return Match{}, ErrInvalidArgument
	}

	if _, err := s.pool.Require(ctx, callerID, accounts.KindUser); err != nil {
		return Match{}, err
	}
	if _, open, err := s.sessions.FindOpenAnonymous(ctx, callerID); err != nil {
		return Match{}, err
	} else if open {
		return Match{}, ErrActiveSessionExists
	}

	mentor, err := s.pickMentor(ctx)
	if err != nil {
		return Match{}, err
	}

	now := s.clock().UTC()
	token, err := utils.ShortToken(9)
	if err != nil {
		return Match{}, err
	}
	anonID := fmt.Sprintf("rant_%d_%s", now.UnixMilli(), token)
	roomID := fmt.Sprintf("room_%d_%s", now.UnixMilli(), token)
	acceptBy := now.Add(AcceptWindow)

	sess, err := s.sessions.Create(ctx, sessions.NewSession{
		UserID:             callerID,
		MentorID:           mentor.ID,
		CallType:           sessionType,
		DurationMinutes:    int(SessionWindow / time.Minute),
		Room:               rooms.Room{RoomID: roomID},
		RoomName:           "Anonymous Session",
		StartTime:          now,
		IsAnonymous:        true,
		AnonymousSessionID: anonID,
		AcceptExpiresAt:    &acceptBy,
	})
	if errors.Is(err, sessions.ErrOpenAnonymousExists) {
		return Match{}, ErrActiveSessionExists
	}
	if err != nil {
		return Match{}, err
	}

	notified := false
	if s.notifier != nil {
		notified = s.notifier.NotifyMentor(ctx, mentor.ID, map[string]any{
			"type": "anonymous_session_request",
			"payload": map[string]any{
				"session_id":           sess.ID,
				"anonymous_session_id": anonID,
				"session_type":         string(sessionType),
				"room_id":              roomID,
				"accept_expires_at":    acceptBy,
			},
		})
	}
	if !notified {
		logger.From(ctx).Warn("mentor not reachable for anonymous session",
			"mentor_id", mentor.ID,
			"anonymous_session_id", anonID,
		)
	}

	return Match{
		Session:            sess,
		AnonymousSessionID: anonID,
		MentorID:           mentor.ID,
		MentorName:         mentor.Name,
		ExpiresAt:          sess.EndTime,
		AcceptExpiresAt:    acceptBy,
		Notified:           notified,
	}, nil
}

func (s *Service) pickMentor(ctx context.Context) (accounts.Account, error) {
	pool, err := s.pool.MatchableMentors(ctx)
	if err != nil {
		return accounts.Account{}, err
	}
	if len(pool) == 0 {
		online, err := s.pool.OnlineMentorCount(ctx)
		if err != nil {
			return accounts.Account{}, err
		}
		if online == 0 {
			return accounts.Account{}, &NoMentorError{Reason: ReasonNoneOnline}
		}
		return accounts.Account{}, &NoMentorError{Reason: ReasonAllBusy}
	}

	s.rngMu.Lock()
	i := s.rng.Intn(len(pool))
	s.rngMu.Unlock()
	return pool[i], nil
}

// participant loads an anonymous session callerID is part of.
func (s *Service) participant(ctx context.Context, anonID, callerID string) (sessions.Session, error) {
	sess, err := s.sessions.GetByAnonymousID(ctx, anonID)
	if errors.Is(err, sessions.ErrNotFound) {
		return sessions.Session{}, ErrNotFound
	}
	if err != nil {
		return sessions.Session{}, err
	}
	if _, ok := sess.RoleOf(callerID); !ok {
		return sessions.Session{}, ErrUnauthorized
	}
	return sess, nil
}

func (s *Service) Status(ctx context.Context, anonID, callerID string) (sessions.Session, error) {
	return s.participant(ctx, anonID, callerID)
}

func (s *Service) Accept(ctx context.Context, anonID, mentorID string) (sessions.Session, error) {
	sess, err := s.participant(ctx, anonID, mentorID)
	if err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.Accept(ctx, sess.ID, mentorID)
}

func (s *Service) Reject(ctx context.Context, anonID, mentorID string) (sessions.Session, error) {
	sess, err := s.participant(ctx, anonID, mentorID)
	if err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.Reject(ctx, sess.ID, mentorID)
}

// End closes the session from either side.
func (s *Service) End(ctx context.Context, anonID, callerID string) (sessions.Session, error) {
	sess, err := s.participant(ctx, anonID, callerID)
	if err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.End(ctx, sess)
}

func (s *Service) ListActive(ctx context.Context, callerID string) ([]sessions.Session, error) {
	return s.sessions.ListActiveAnonymous(ctx, callerID)
}

// ExpirePending expires sessions nobody accepted within AcceptWindow. The
// mentor was never marked busy, so nothing else changes.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	expired, err := s.sessions.ExpirePendingAnonymous(ctx)
	if err != nil {
		return 0, err
	}
	for _, sess := range expired {
		logger.From(ctx).Info("anonymous session expired",
			"anonymous_session_id", sess.AnonymousSessionID,
			"mentor_id", sess.MentorID,
		)
	}
	return len(expired), nil
}
