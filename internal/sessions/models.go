package sessions

import (
	"errors"
	"strings"
	"time"

	"mentorship-platform/internal/calls"
)

// Status is the lifecycle state of a communication session.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
)

var ErrUnknownStatus = errors.New("unknown session status")

// ParseStatus accepts the legacy ONGOING spelling as ACTIVE.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if s == "ONGOING" {
		return StatusActive, nil
	}
	if !s.Valid() {
		return "", ErrUnknownStatus
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusActive, StatusCompleted, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusExpired:
		return true
	case StatusPending, StatusAccepted, StatusActive:
		return false
	default:
		return false
	}
}

// CanTransition reports whether the state machine has an edge s -> to.
func (s Status) CanTransition(to Status) bool {
	for _, from := range sourcesOf(to) {
		if from == s {
			return true
		}
	}
	return false
}

// sourcesOf lists the states a session may be in to move into to.
func sourcesOf(to Status) []Status {
	switch to {
	case StatusAccepted, StatusRejected:
		return []Status{StatusPending}
	case StatusActive:
		return []Status{StatusPending, StatusAccepted, StatusActive}
	case StatusCompleted:
		return []Status{StatusAccepted, StatusActive}
	case StatusExpired:
		return []Status{StatusPending, StatusAccepted}
	case StatusPending:
		return nil
	default:
		return nil
	}
}

type RecordingStatus string

const (
	RecordingNone       RecordingStatus = ""
	RecordingProcessing RecordingStatus = "processing"
	RecordingCompleted  RecordingStatus = "completed"
	RecordingFailed     RecordingStatus = "failed"
)

// Role is the side of a session a participant joins as.
type Role string

const (
	RoleUser   Role = "user"
	RoleMentor Role = "mentor"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleMentor }

// Session is one booked, anonymous or support conversation between a user and a mentor.
type Session struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	MentorID string     `json:"mentor_id"`
	CallType calls.Type `json:"call_type"`
	Status   Status     `json:"status"`

	RoomID       string `json:"room_id"`
	RoomName     string `json:"room_name,omitempty"`
	HostCode     string `json:"host_code,omitempty"`
	GuestCode    string `json:"guest_code,omitempty"`
	HostJoinURL  string `json:"host_join_url,omitempty"`
	GuestJoinURL string `json:"guest_join_url,omitempty"`

	DurationMinutes int       `json:"duration_minutes"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`

	UserJoined      bool       `json:"user_joined"`
	UserJoinedAt    *time.Time `json:"user_joined_at,omitempty"`
	MentorJoined    bool       `json:"mentor_joined"`
	MentorJoinedAt  *time.Time `json:"mentor_joined_at,omitempty"`
	TimerStarted    bool       `json:"timer_started"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`

	RecordingID     string          `json:"recording_id,omitempty"`
	RecordingStatus RecordingStatus `json:"recording_status,omitempty"`
	RecordingURL    string          `json:"recording_url,omitempty"`

	IsAnonymous        bool       `json:"is_anonymous"`
	AnonymousSessionID string     `json:"anonymous_session_id,omitempty"`
	AcceptExpiresAt    *time.Time `json:"accept_expires_at,omitempty"`

	PackageID        string     `json:"package_id,omitempty"`
	SlotID           string     `json:"slot_id,omitempty"`
	IsSupportSession bool       `json:"is_support_session"`
	SupportExpiresAt *time.Time `json:"support_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant reports whether principalID is on the given side of the session.
func (s Session) Participant(principalID string, role Role) bool {
	switch role {
	case RoleUser:
		return principalID != "" && s.UserID == principalID
	case RoleMentor:
		return principalID != "" && s.MentorID == principalID
	default:
		return false
	}
}

// RoleOf returns the side principalID is on, or false if it is not a participant.
func (s Session) RoleOf(principalID string) (Role, bool) {
	switch {
	case s.Participant(principalID, RoleUser):
		return RoleUser, true
	case s.Participant(principalID, RoleMentor):
		return RoleMentor, true
	default:
		return "", false
	}
}

const TopicChatSupport = "chat-support"

type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"message"`
	Topic      string    `json:"topic,omitempty"`
	SentAt     time.Time `json:"timestamp"`
}
