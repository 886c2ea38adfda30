package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"mentorship-platform/internal/calls"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("slot not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSlotUnavailable = errors.New("slot already booked or unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
)

type Service struct {
	repo  Repository
	loc   *time.Location
	clock func() time.Time
}

// NewService builds a schedule service. loc is the zone "today" is computed in.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, clock: time.Now}
}

// Today is the current calendar date in the service's zone.
func (s *Service) Today() string {
	return s.clock().In(s.loc).Format(DateLayout)
}

// Tomorrow is the calendar date after Today.
func (s *Service) Tomorrow() string {
	return s.clock().In(s.loc).AddDate(0, 0, 1).Format(DateLayout)
}

// CreateSlots merges slots into the mentor's schedule for date by set-union.
func (s *Service) CreateSlots(ctx context.Context, mentorID, date string, in []NewSlot) (Schedule, error) {
	if mentorID == "" || len(in) == 0 {
		return Schedule{}, ErrInvalidArgument
	}
	if _, err := time.ParseInLocation(DateLayout, date, s.loc); err != nil {
		return Schedule{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	seen := make(map[NewSlot]struct{}, len(in))
	slots := make([]Slot, 0, len(in))
	for _, ns := range in {
		ns.Time = strings.TrimSpace(ns.Time)
		if ns.Time == "" || !ns.CallType.OneToOne() || ns.DurationMinutes <= 0 {
			return Schedule{}, ErrInvalidArgument
		}
		if _, dup := seen[ns]; dup {
			continue
		}
		seen[ns] = struct{}{}
		slots = append(slots, Slot{
			ID:              uuid.NewString(),
			Time:            ns.Time,
			CallType:        ns.CallType,
			DurationMinutes: ns.DurationMinutes,
			Status:          SlotAvailable,
			UpdatedAt:       now,
		})
	}

	sch, err := s.repo.EnsureSchedule(ctx, Schedule{
		ID:        uuid.NewString(),
		MentorID:  mentorID,
		SlotsDate: date,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Schedule{}, err
	}
	for i := range slots {
		slots[i].ScheduleID = sch.ID
	}
	if _, err := s.repo.AddSlots(ctx, sch.ID, slots); err != nil {
		return Schedule{}, err
	}
	out, ok, err := s.repo.GetSchedule(ctx, sch.ID)
	if err != nil {
		return Schedule{}, err
	}
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return out, nil
}

// ListAvailableForMentor returns the mentor's schedules dated today or later.
func (s *Service) ListAvailableForMentor(ctx context.Context, mentorID string) ([]Schedule, error) {
	if mentorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByMentor(ctx, mentorID, s.Today())
}

// ListMine returns every schedule of the mentor, past ones included.
func (s *Service) ListMine(ctx context.Context, mentorID string) ([]Schedule, error) {
	if mentorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByMentor(ctx, mentorID, "")
}

func (s *Service) DeleteSchedule(ctx context.Context, mentorID, scheduleID string) error {
	sch, ok, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if sch.MentorID != mentorID {
		return ErrUnauthorized
	}
	deleted, err := s.repo.DeleteSchedule(ctx, mentorID, scheduleID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSlotUnavailable
	}
	return nil
}

func (s *Service) FindSlot(ctx context.Context, slotID string) (SlotRef, error) {
	if slotID == "" {
		return SlotRef{}, ErrInvalidArgument
	}
	ref, ok, err := s.repo.FindSlot(ctx, slotID)
	if err != nil {
		return SlotRef{}, err
	}
	if !ok {
		return SlotRef{}, ErrNotFound
	}
	return ref, nil
}

// owned loads the slot and checks it belongs to mentorID.
func (s *Service) owned(ctx context.Context, mentorID, slotID string) (SlotRef, error) {
	ref, err := s.FindSlot(ctx, slotID)
	if err != nil {
		return SlotRef{}, err
	}
	if ref.MentorID != mentorID {
		return SlotRef{}, ErrUnauthorized
	}
	return ref, nil
}

// Hold books an unbooked slot for userID in one conditional write. Of any
// number of concurrent holds on the same slot exactly one succeeds.
func (s *Service) Hold(ctx context.Context, mentorID, slotID, userID string, callType calls.Type, durationMinutes int) (SlotRef, error) {
	if mentorID == "" || slotID == "" || userID == "" {
		return SlotRef{}, ErrInvalidArgument
	}
	ref, ok, err := s.repo.Hold(ctx, mentorID, slotID, userID, callType, durationMinutes, s.clock().UTC())
	if err != nil {
		return SlotRef{}, err
	}
	if ok {
		return ref, nil
	}
	cur, found, err := s.repo.FindSlot(ctx, slotID)
	if err != nil {
		return SlotRef{}, err
	}
	if !found || cur.MentorID != mentorID {
		return SlotRef{}, ErrNotFound
	}
	return SlotRef{}, ErrSlotUnavailable
}

// Release undoes a Hold by userID that has not been confirmed yet.
func (s *Service) Release(ctx context.Context, slotID, userID string) error {
	ok, err := s.repo.Release(ctx, slotID, userID, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Accept confirms a pending slot.
func (s *Service) Accept(ctx context.Context, mentorID, slotID string) (SlotRef, error) {
	if _, err := s.owned(ctx, mentorID, slotID); err != nil {
		return SlotRef{}, err
	}
	ref, ok, err := s.repo.Accept(ctx, mentorID, slotID, s.clock().UTC())
	if err != nil {
		return SlotRef{}, err
	}
	if !ok {
		return SlotRef{}, ErrSlotUnavailable
	}
	return ref, nil
}

// Unaccept puts an accepted slot back to pending for the same holder. It
// undoes an Accept whose follow-up work failed.
func (s *Service) Unaccept(ctx context.Context, mentorID, slotID, userID string) error {
	ok, err := s.repo.Unaccept(ctx, mentorID, slotID, userID, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotUnavailable
	}
	return nil
}

// Reject unbooks the slot and clears its holder. The returned slot carries the
// holder it had before, if any.
func (s *Service) Reject(ctx context.Context, mentorID, slotID string) (SlotRef, error) {
	if _, err := s.owned(ctx, mentorID, slotID); err != nil {
		return SlotRef{}, err
	}
	ref, ok, err := s.repo.Reject(ctx, mentorID, slotID, s.clock().UTC())
	if err != nil {
		return SlotRef{}, err
	}
	if !ok {
		return SlotRef{}, ErrSlotUnavailable
	}
	return ref, nil
}

// SlotPatch lists the fields a mentor may change on an unbooked slot.
type SlotPatch struct {
	Time            *string
	CallType        *calls.Type
	DurationMinutes *int
	// Status may only move an unbooked slot between available and rejected.
	Status *SlotStatus
}

func (s *Service) UpdateSlot(ctx context.Context, mentorID, slotID string, patch SlotPatch) (SlotRef, error) {
	ref, err := s.owned(ctx, mentorID, slotID)
	if err != nil {
		return SlotRef{}, err
	}
	if ref.Booked {
		return SlotRef{}, ErrSlotUnavailable
	}
	if patch.Time != nil {
		v := strings.TrimSpace(*patch.Time)
		if v == "" {
			return SlotRef{}, ErrInvalidArgument
		}
		ref.Time = v
	}
	if patch.CallType != nil {
		if !patch.CallType.OneToOne() {
			return SlotRef{}, ErrInvalidArgument
		}
		ref.CallType = *patch.CallType
	}
	if patch.DurationMinutes != nil {
		if *patch.DurationMinutes <= 0 {
			return SlotRef{}, ErrInvalidArgument
		}
		ref.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Status != nil {
		switch *patch.Status {
		case SlotAvailable, SlotRejected:
			ref.Status = *patch.Status
		case SlotPending, SlotAccepted:
			return SlotRef{}, ErrInvalidArgument
		default:
			return SlotRef{}, ErrInvalidArgument
		}
	}
	ref.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.UpdateSlot(ctx, mentorID, ref.Slot)
	if err != nil {
		return SlotRef{}, err
	}
	if !ok {
		return SlotRef{}, ErrSlotUnavailable
	}
	return ref, nil
}

// DeleteSlot removes an unbooked slot.
func (s *Service) DeleteSlot(ctx context.Context, mentorID, slotID string) error {
	if _, err := s.owned(ctx, mentorID, slotID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteSlot(ctx, mentorID, slotID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotUnavailable
	}
	return nil
}

// ListAcceptedOn returns booked, accepted slots on date across all mentors.
func (s *Service) ListAcceptedOn(ctx context.Context, date string) ([]SlotRef, error) {
	if _, err := time.ParseInLocation(DateLayout, date, s.loc); err != nil {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListAccepted(ctx, date)
}
