package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("session cannot move to that status")
	ErrSupportExpired    = errors.New("chat support has expired")
	ErrSupportNotActive  = errors.New("chat support is not active for this package")
	ErrRecordingNotFound = errors.New("session has no recording")

	ErrOpenAnonymousExists = errors.New("user already has an open anonymous session")
)

// SupportWindow is how long the chat-support session opened by a final package session lasts.
const SupportWindow = packages.ChatSupportWindow

// Recorder starts and polls vendor recordings.
type Recorder interface {
	StartRecording(ctx context.Context, roomID string) (string, error)
	RecordingStatus(ctx context.Context, recordingID string) (rooms.RecordingState, error)
}

// Presence flips the mentor busy flag. Failures are tolerated.
type Presence interface {
	SetInCall(ctx context.Context, mentorID string, inCall bool) error
}

// Directory resolves display names for chat messages.
type Directory interface {
	Get(ctx context.Context, id string) (accounts.Account, error)
}

// PackageReader loads the package behind a chat-support session.
type PackageReader interface {
	Get(ctx context.Context, id string) (packages.Package, error)
}

type Service struct {
	repo      Repository
	recorder  Recorder
	presence  Presence
	directory Directory
	packages  PackageReader
	clock     func() time.Time
}

func NewService(repo Repository, recorder Recorder, presence Presence, directory Directory, pkgs PackageReader) *Service {
	return &Service{
		repo:      repo,
		recorder:  recorder,
		presence:  presence,
		directory: directory,
		packages:  pkgs,
		clock:     time.Now,
	}
}

// NewSession describes a session to create. Zero Status means PENDING and a
// zero StartTime means now.
type NewSession struct {
	UserID          string
	MentorID        string
	CallType        calls.Type
	DurationMinutes int
	Room            rooms.Room
	RoomName        string
	Status          Status
	StartTime       time.Time

	PackageID        string
	SlotID           string
	IsSupportSession bool
	SupportExpiresAt *time.Time

	IsAnonymous        bool
	AnonymousSessionID string
	AcceptExpiresAt    *time.Time
}

func (s *Service) Create(ctx context.Context, in NewSession) (Session, error) {
	if in.UserID == "" || in.MentorID == "" || !in.CallType.Valid() {
		return Session{}, ErrInvalidArgument
	}
	if in.DurationMinutes <= 0 || in.Room.RoomID == "" {
		return Session{}, ErrInvalidArgument
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() || status.Terminal() {
		return Session{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	start := in.StartTime
	if start.IsZero() {
		start = now
	}
	sess := Session{
		ID:                 uuid.NewString(),
		UserID:             in.UserID,
		MentorID:           in.MentorID,
		CallType:           in.CallType,
		Status:             status,
		RoomID:             in.Room.RoomID,
		RoomName:           in.RoomName,
		HostCode:           in.Room.HostCode,
		GuestCode:          in.Room.GuestCode,
		HostJoinURL:        in.Room.HostJoinURL,
		GuestJoinURL:       in.Room.GuestJoinURL,
		DurationMinutes:    in.DurationMinutes,
		StartTime:          start.UTC(),
		EndTime:            start.UTC().Add(time.Duration(in.DurationMinutes) * time.Minute),
		IsAnonymous:        in.IsAnonymous,
		AnonymousSessionID: in.AnonymousSessionID,
		AcceptExpiresAt:    in.AcceptExpiresAt,
		PackageID:          in.PackageID,
		SlotID:             in.SlotID,
		IsSupportSession:   in.IsSupportSession,
		SupportExpiresAt:   in.SupportExpiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidArgument
	}
	sess, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// GetForParticipant loads a session principalID takes part in.
func (s *Service) GetForParticipant(ctx context.Context, id, principalID string) (Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if _, ok := sess.RoleOf(principalID); !ok {
		return Session{}, ErrUnauthorized
	}
	return sess, nil
}

func (s *Service) GetByAnonymousID(ctx context.Context, anonID string) (Session, error) {
	if anonID == "" {
		return Session{}, ErrInvalidArgument
	}
	sess, ok, err := s.repo.GetByAnonymousID(ctx, anonID)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Join records that principalID joined on the given side. The first join on a
// recorded call type starts the vendor recording; that step never fails the join.
func (s *Service) Join(ctx context.Context, id, principalID string, role Role) (Session, error) {
	if !role.Valid() {
		return Session{}, ErrInvalidArgument
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.Participant(principalID, role) {
		return Session{}, ErrUnauthorized
	}
	if !sess.Status.CanTransition(StatusActive) {
		return Session{}, ErrInvalidTransition
	}

	now := s.clock().UTC()
	out, ok, err := s.repo.RecordJoin(ctx, id, role, sess.CallType == calls.TypeGroup, now)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidTransition
	}

	if out.CallType.Recorded() && out.RecordingID == "" {
		out = s.startRecording(ctx, out)
	}
	return out, nil
}

func (s *Service) startRecording(ctx context.Context, sess Session) Session {
	if s.recorder == nil {
		return sess
	}
	log := logger.From(ctx)
	now := s.clock().UTC()

	claimed, err := s.repo.ClaimRecording(ctx, sess.ID, now)
	if err != nil {
		log.Warn("claim recording failed", "session_id", sess.ID, "err", err)
		return sess
	}
	if !claimed {
		return sess
	}

	recID, err := s.recorder.StartRecording(ctx, sess.RoomID)
	if err != nil {
		log.Warn("start recording failed", "session_id", sess.ID, "room_id", sess.RoomID, "err", err)
		if err := s.repo.SetRecording(ctx, sess.ID, "", RecordingNone, "", now); err != nil {
			log.Warn("release recording claim failed", "session_id", sess.ID, "err", err)
		}
		return sess
	}
	if err := s.repo.SetRecording(ctx, sess.ID, recID, RecordingProcessing, "", now); err != nil {
		log.Warn("store recording id failed", "session_id", sess.ID, "recording_id", recID, "err", err)
		return sess
	}
	sess.RecordingID = recID
	sess.RecordingStatus = RecordingProcessing
	return sess
}

// Accept moves a PENDING session to ACCEPTED and marks the mentor busy.
func (s *Service) Accept(ctx context.Context, id, mentorID string) (Session, error) {
	out, err := s.mentorTransition(ctx, id, mentorID, StatusAccepted)
	if err != nil {
		return Session{}, err
	}
	s.setInCall(ctx, out.MentorID, true)
	return out, nil
}

func (s *Service) Reject(ctx context.Context, id, mentorID string) (Session, error) {
	return s.mentorTransition(ctx, id, mentorID, StatusRejected)
}

func (s *Service) mentorTransition(ctx context.Context, id, mentorID string, to Status) (Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.Participant(mentorID, RoleMentor) {
		return Session{}, ErrUnauthorized
	}
	return s.transition(ctx, sess, to)
}

// Complete ends an ACCEPTED or ACTIVE session and frees the mentor.
func (s *Service) Complete(ctx context.Context, id, principalID string) (Session, error) {
	sess, err := s.GetForParticipant(ctx, id, principalID)
	if err != nil {
		return Session{}, err
	}
	out, err := s.transition(ctx, sess, StatusCompleted)
	if err != nil {
		return Session{}, err
	}
	s.setInCall(ctx, out.MentorID, false)
	return out, nil
}

// End closes a session from either side: a session nobody accepted expires,
// anything further along completes.
func (s *Service) End(ctx context.Context, sess Session) (Session, error) {
	switch sess.Status {
	case StatusPending:
		return s.transition(ctx, sess, StatusExpired)
	case StatusAccepted, StatusActive:
		out, err := s.transition(ctx, sess, StatusCompleted)
		if err != nil {
			return Session{}, err
		}
		s.setInCall(ctx, out.MentorID, false)
		return out, nil
	case StatusCompleted, StatusRejected, StatusExpired:
		return Session{}, ErrInvalidTransition
	default:
		return Session{}, ErrInvalidTransition
	}
}

func (s *Service) transition(ctx context.Context, sess Session, to Status) (Session, error) {
	if !sess.Status.CanTransition(to) {
		return Session{}, ErrInvalidTransition
	}
	out, ok, err := s.repo.Transition(ctx, sess.ID, sourcesOf(to), to, s.clock().UTC())
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidTransition
	}
	return out, nil
}

func (s *Service) setInCall(ctx context.Context, mentorID string, inCall bool) {
	if s.presence == nil {
		return
	}
	if err := s.presence.SetInCall(ctx, mentorID, inCall); err != nil {
		logger.From(ctx).Warn("update mentor in-call flag failed", "mentor_id", mentorID, "in_call", inCall, "err", err)
	}
}

// ExpirePendingAnonymous expires anonymous sessions nobody accepted in time.
func (s *Service) ExpirePendingAnonymous(ctx context.Context) ([]Session, error) {
	return s.repo.ExpirePendingAnonymous(ctx, s.clock().UTC())
}

func (s *Service) FindOpenAnonymous(ctx context.Context, userID string) (Session, bool, error) {
	return s.repo.FindOpenAnonymous(ctx, userID)
}

func (s *Service) ListActiveAnonymous(ctx context.Context, userID string) ([]Session, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListActiveAnonymous(ctx, userID)
}

func (s *Service) ListMine(ctx context.Context, principalID string, role Role) ([]Session, error) {
	if principalID == "" || !role.Valid() {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByParticipant(ctx, principalID, role)
}

// GetRecording refreshes a processing recording from the vendor and returns the session.
func (s *Service) GetRecording(ctx context.Context, id, principalID string) (Session, error) {
	sess, err := s.GetForParticipant(ctx, id, principalID)
	if err != nil {
		return Session{}, err
	}
	if sess.RecordingID == "" {
		return Session{}, ErrRecordingNotFound
	}
	if sess.RecordingStatus != RecordingProcessing || s.recorder == nil {
		return sess, nil
	}

	st, err := s.recorder.RecordingStatus(ctx, sess.RecordingID)
	if err != nil {
		logger.From(ctx).Warn("recording status lookup failed", "session_id", sess.ID, "recording_id", sess.RecordingID, "err", err)
		return sess, nil
	}
	if !st.Done() {
		return sess, nil
	}
	status := RecordingFailed
	if st.Status == rooms.RecordingCompleted {
		status = RecordingCompleted
	}
	if err := s.repo.SetRecording(ctx, sess.ID, sess.RecordingID, status, st.URL, s.clock().UTC()); err != nil {
		return Session{}, err
	}
	sess.RecordingStatus = status
	sess.RecordingURL = st.URL
	return sess, nil
}

// OpenPackageSupport creates the ACTIVE chat-support session that follows the
// final session of a package.
func (s *Service) OpenPackageSupport(ctx context.Context, userID, mentorID, packageID string) (Session, error) {
	roomID, err := utils.RoomID(12)
	if err != nil {
		return Session{}, err
	}
	now := s.clock().UTC()
	expires := now.Add(SupportWindow)
	return s.Create(ctx, NewSession{
		UserID:           userID,
		MentorID:         mentorID,
		CallType:         calls.TypeChat,
		DurationMinutes:  int(SupportWindow / time.Minute),
		Room:             rooms.Room{RoomID: roomID},
		RoomName:         fmt.Sprintf("Package-Support-%d", now.UnixMilli()),
		Status:           StatusActive,
		StartTime:        now,
		PackageID:        packageID,
		IsSupportSession: true,
		SupportExpiresAt: &expires,
	})
}

// StartSupportSession opens, or returns the already open, support
// conversation for a package whose chat-support window is active.
func (s *Service) StartSupportSession(ctx context.Context, userID, packageID string) (Session, bool, error) {
	if userID == "" || packageID == "" {
		return Session{}, false, ErrInvalidArgument
	}
	p, err := s.packages.Get(ctx, packageID)
	if err != nil {
		return Session{}, false, err
	}
	if p.UserID != userID {
		return Session{}, false, ErrUnauthorized
	}
	now := s.clock().UTC()
	if p.Status != packages.StatusChatSupportActive || p.ChatSupportExpiresAt == nil {
		return Session{}, false, ErrSupportNotActive
	}
	if now.After(*p.ChatSupportExpiresAt) {
		return Session{}, false, ErrSupportExpired
	}

	if existing, ok, err := s.repo.FindOpenSupport(ctx, userID, p.MentorID); err != nil {
		return Session{}, false, err
	} else if ok {
		return existing, true, nil
	}

	expires := *p.ChatSupportExpiresAt
	minutes := int(expires.Sub(now) / time.Minute)
	if minutes <= 0 {
		minutes = 1
	}
	out, err := s.Create(ctx, NewSession{
		UserID:           userID,
		MentorID:         p.MentorID,
		CallType:         calls.TypeChat,
		DurationMinutes:  minutes,
		Room:             rooms.Room{RoomID: fmt.Sprintf("chat-support-%d", now.UnixMilli())},
		RoomName:         fmt.Sprintf("Chat Support - %s Package", p.Type),
		StartTime:        now,
		PackageID:        p.ID,
		IsSupportSession: true,
		SupportExpiresAt: &expires,
	})
	if err != nil {
		return Session{}, false, err
	}
	return out, false, nil
}

// SendMessage appends a chat message from a participant and marks the session ACTIVE.
func (s *Service) SendMessage(ctx context.Context, id, senderID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrInvalidArgument
	}
	sess, err := s.GetForParticipant(ctx, id, senderID)
	if err != nil {
		return Message{}, err
	}
	now := s.clock().UTC()
	if sess.IsSupportSession && (sess.SupportExpiresAt == nil || now.After(*sess.SupportExpiresAt)) {
		return Message{}, ErrSupportExpired
	}
	if sess.Status.Terminal() {
		return Message{}, ErrInvalidTransition
	}

	m := Message{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		SenderID:   senderID,
		SenderName: s.displayName(ctx, senderID),
		Body:       body,
		SentAt:     now,
	}
	if sess.IsSupportSession {
		m.Topic = TopicChatSupport
	}
	if err := s.repo.AppendMessage(ctx, m, now); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Service) displayName(ctx context.Context, id string) string {
	if s.directory == nil {
		return ""
	}
	acc, err := s.directory.Get(ctx, id)
	if err != nil {
		logger.From(ctx).Warn("sender lookup failed", "account_id", id, "err", err)
		return ""
	}
	return acc.Name
}

func (s *Service) Messages(ctx context.Context, id, principalID string) ([]Message, error) {
	if _, err := s.GetForParticipant(ctx, id, principalID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, id)
}
