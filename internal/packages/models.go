package packages

import (
	"time"

	"mentorship-platform/internal/calls"
)

// Package is a prepaid bundle of sessions of one call type with one mentor.
// A template has no UserID; purchasing it clones it into an active package.
//
// Invariant: RemainingSessions only decreases while Active and the package
// expires in the same step that takes it to zero.
type Package struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id,omitempty" db:"user_id"`
	MentorID   string     `json:"mentor_id" db:"mentor_id"`
	CategoryID string     `json:"category_id" db:"category_id"`
	Type       calls.Type `json:"type" db:"type"`

	TotalSessions     int   `json:"total_sessions" db:"total_sessions"`
	RemainingSessions int   `json:"remaining_sessions" db:"remaining_sessions"`
	PriceMinor        int64 `json:"price_minor" db:"price_minor"`
	DurationMinutes   *int  `json:"duration_minutes,omitempty" db:"duration_minutes"`

	Status               Status     `json:"status" db:"status"`
	ExpiryDate           *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	ChatSupportExpiresAt *time.Time `json:"chat_support_expires_at,omitempty" db:"chat_support_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusTemplate          Status = "template"
	StatusActive            Status = "active"
	StatusExpired           Status = "expired"
	StatusChatSupportActive Status = "chat_support_active"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTemplate, StatusActive, StatusExpired, StatusChatSupportActive:
		return true
	default:
		return false
	}
}

// ChatSupportWindow is how long free follow-up chat stays open after a package completes.
const ChatSupportWindow = 7 * 24 * time.Hour

// Summary is the user-facing progress view of a package.
type Summary struct {
	PackageID            string     `json:"package_id"`
	TotalSessions        int        `json:"total_sessions"`
	RemainingSessions    int        `json:"remaining_sessions"`
	SessionsUsed         int        `json:"sessions_used"`
	CompletionPercentage int        `json:"completion_percentage"`
	TotalPaidMinor       int64      `json:"total_paid_minor"`
	PricePerSessionMinor int64      `json:"price_per_session_minor"`
	Status               Status     `json:"status"`
	ChatSupportActive    bool       `json:"chat_support_active"`
	ChatSupportExpiresAt *time.Time `json:"chat_support_expires_at,omitempty"`
}

func summarize(p Package) Summary {
	used := p.TotalSessions - p.RemainingSessions
	out := Summary{
		PackageID:            p.ID,
		TotalSessions:        p.TotalSessions,
		RemainingSessions:    p.RemainingSessions,
		SessionsUsed:         used,
		TotalPaidMinor:       p.PriceMinor,
		Status:               p.Status,
		ChatSupportActive:    p.Status == StatusChatSupportActive,
		ChatSupportExpiresAt: p.ChatSupportExpiresAt,
	}
	if p.TotalSessions > 0 {
		out.CompletionPercentage = (used*100 + p.TotalSessions/2) / p.TotalSessions
		out.PricePerSessionMinor = (p.PriceMinor + int64(p.TotalSessions)/2) / int64(p.TotalSessions)
	}
	return out
}
