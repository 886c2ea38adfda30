package groupsessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentorship-platform/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("group session not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyBooked   = errors.New("user already booked")
	ErrSessionFull     = errors.New("session is full")
	ErrNotScheduled    = errors.New("group session is not open for booking")
)

type Service struct {
	repo        Repository
	frontendURL string
	clock       func() time.Time
}

func NewService(repo Repository, frontendURL string) *Service {
	return &Service{repo: repo, frontendURL: strings.TrimRight(frontendURL, "/"), clock: time.Now}
}

type NewGroupSession struct {
	CategoryID  string
	Title       string
	Description string
	SessionType string
	PriceMinor  int64
	Capacity    int
	ScheduledAt time.Time
	JoinLink    string
}

func (s *Service) Create(ctx context.Context, mentorID string, in NewGroupSession) (GroupSession, error) {
	st, err := parseSessionType(in.SessionType)
	if err != nil {
		return GroupSession{}, err
	}
	if mentorID == "" || in.CategoryID == "" || strings.TrimSpace(in.Title) == "" {
		return GroupSession{}, ErrInvalidArgument
	}
	if in.Capacity <= 0 || in.PriceMinor < 0 || in.ScheduledAt.IsZero() {
		return GroupSession{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	token, err := utils.ShortToken(9)
	if err != nil {
		return GroupSession{}, err
	}
	roomID := fmt.Sprintf("room_%d_%s", now.UnixMilli(), token)

	g := GroupSession{
		ID:            uuid.NewString(),
		MentorID:      mentorID,
		CategoryID:    in.CategoryID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		SessionType:   st,
		PriceMinor:    in.PriceMinor,
		Capacity:      in.Capacity,
		BookedUsers:   []string{},
		ScheduledAt:   in.ScheduledAt.UTC(),
		Status:        StatusScheduled,
		RoomID:        roomID,
		JoinLink:      in.JoinLink,
		ShareableLink: s.frontendURL + "/group-session/join/" + roomID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return GroupSession{}, err
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, id string) (GroupSession, error) {
	if id == "" {
		return GroupSession{}, ErrInvalidArgument
	}
	g, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return GroupSession{}, err
	}
	if !ok {
		return GroupSession{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) GetByRoom(ctx context.Context, roomID string) (GroupSession, error) {
	if roomID == "" {
		return GroupSession{}, ErrInvalidArgument
	}
	g, ok, err := s.repo.GetByRoom(ctx, roomID)
	if err != nil {
		return GroupSession{}, err
	}
	if !ok {
		return GroupSession{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) ListByMentor(ctx context.Context, mentorID string) ([]GroupSession, error) {
	if mentorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByMentor(ctx, mentorID)
}

func (s *Service) ListScheduled(ctx context.Context) ([]GroupSession, error) {
	return s.repo.ListScheduled(ctx)
}

// Book reserves a seat for userID. Concurrent bookings never exceed capacity.
func (s *Service) Book(ctx context.Context, id, userID string) (GroupSession, error) {
	if id == "" || userID == "" {
		return GroupSession{}, ErrInvalidArgument
	}
	g, ok, err := s.repo.Book(ctx, id, userID, s.clock().UTC())
	if err != nil {
		return GroupSession{}, err
	}
	if ok {
		return g, nil
	}

	cur, err := s.Get(ctx, id)
	if err != nil {
		return GroupSession{}, err
	}
	switch {
	case cur.HasBooked(userID):
		return GroupSession{}, ErrAlreadyBooked
	case cur.Status != StatusScheduled:
		return GroupSession{}, ErrNotScheduled
	default:
		return GroupSession{}, ErrSessionFull
	}
}

// Patch holds the fields a mentor may change. Nil means unchanged.
type Patch struct {
	Title       *string
	Description *string
	PriceMinor  *int64
	Capacity    *int
	ScheduledAt *time.Time
	Status      *Status
	JoinLink    *string
}

func (s *Service) Update(ctx context.Context, mentorID, id string, p Patch) (GroupSession, error) {
	g, err := s.owned(ctx, mentorID, id)
	if err != nil {
		return GroupSession{}, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return GroupSession{}, ErrInvalidArgument
		}
		g.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.PriceMinor != nil {
		if *p.PriceMinor < 0 {
			return GroupSession{}, ErrInvalidArgument
		}
		g.PriceMinor = *p.PriceMinor
	}
	if p.Capacity != nil {
		if *p.Capacity <= 0 || *p.Capacity < len(g.BookedUsers) {
			return GroupSession{}, ErrInvalidArgument
		}
		g.Capacity = *p.Capacity
	}
	if p.ScheduledAt != nil {
		if p.ScheduledAt.IsZero() {
			return GroupSession{}, ErrInvalidArgument
		}
		g.ScheduledAt = p.ScheduledAt.UTC()
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return GroupSession{}, ErrInvalidArgument
		}
		g.Status = *p.Status
	}
	if p.JoinLink != nil {
		g.JoinLink = *p.JoinLink
	}
	g.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.Update(ctx, g)
	if err != nil {
		return GroupSession{}, err
	}
	if !ok {
		// capacity lost a race with a booking
		return GroupSession{}, ErrInvalidArgument
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, mentorID, id string) error {
	if _, err := s.owned(ctx, mentorID, id); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) owned(ctx context.Context, mentorID, id string) (GroupSession, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return GroupSession{}, err
	}
	if g.MentorID != mentorID {
		return GroupSession{}, ErrUnauthorized
	}
	return g, nil
}
