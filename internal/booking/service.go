package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/mentorwallet"
	"mentorship-platform/internal/notify"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/internal/wallet"
	"mentorship-platform/pkg/logger"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrBookingInProgress = errors.New("another booking is in progress")
)

// Limiter caps concurrent bookings per caller. *utils.InflightCap satisfies it.
type Limiter interface {
	Acquire(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type Mailer interface {
	SendMail(ctx context.Context, m notify.Mail)
}

type Deps struct {
	Accounts     *accounts.Service
	Pricing      *pricing.Service
	Wallet       *wallet.Service
	MentorWallet *mentorwallet.Service
	Packages     *packages.Service
	Schedule     *schedule.Service
	Sessions     *sessions.Service
	Rooms        *rooms.Provisioner

	Limiter Limiter
	Mailer  Mailer
	// Location is the zone slot dates and times are written in.
	Location *time.Location
}

// Service settles bookings: price, hold, charge, credit, then create.
// Every step that moves state is undone in reverse when a later one fails.
type Service struct {
	d     Deps
	clock func() time.Time
}

func NewService(d Deps) *Service {
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Service{d: d, clock: time.Now}
}

// Book runs bookSession for an instant or slot booking.
func (s *Service) Book(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	log := logger.From(ctx).With("caller_id", req.CallerID, "mentor_id", req.MentorID, "call_type", req.CallType)

	caller, err := s.d.Accounts.Require(ctx, req.CallerID, accounts.KindUser)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.d.Accounts.Require(ctx, req.MentorID, accounts.KindMentor); err != nil {
		return Result{}, err
	}

	if s.d.Limiter != nil {
		ok, err := s.d.Limiter.Acquire(ctx, req.CallerID)
		switch {
		case err != nil:
			log.Warn("booking cap unavailable", "err", err)
		case !ok:
			return Result{}, ErrBookingInProgress
		default:
			defer func() {
				if err := s.d.Limiter.Release(context.WithoutCancel(ctx), req.CallerID); err != nil {
					log.Warn("booking cap release failed", "err", err)
				}
			}()
		}
	}

	qr := pricing.QuoteRequest{
		UserID:          req.CallerID,
		MentorID:        req.MentorID,
		CallType:        req.CallType,
		DurationMinutes: req.DurationMinutes,
	}
	var quote pricing.Quote
	if req.PackageID != "" {
		// Package bookings are priced after Consume, from the count it took.
		if _, err := s.d.Packages.ForBooking(ctx, req.CallerID, req.MentorID, req.PackageID, req.CallType); err != nil {
			return Result{}, err
		}
	} else {
		quote, err = s.d.Pricing.Quote(ctx, qr)
		if err != nil {
			return Result{}, err
		}
	}

	var slot schedule.SlotRef
	if req.Kind == KindSlot {
		slot, err = s.d.Schedule.Hold(ctx, req.MentorID, req.SlotID, req.CallerID, req.CallType, req.DurationMinutes)
		if err != nil {
			return Result{}, err
		}
	}
	releaseSlot := func() {
		if req.Kind != KindSlot {
			return
		}
		if err := s.d.Schedule.Release(context.WithoutCancel(ctx), req.SlotID, req.CallerID); err != nil {
			log.Error("slot release failed", "slot_id", req.SlotID, "err", err)
		}
	}
	restorePackage := func() {
		if req.PackageID == "" {
			return
		}
		if err := s.d.Packages.Restore(context.WithoutCancel(ctx), req.PackageID); err != nil {
			log.Error("package restore failed", "package_id", req.PackageID, "err", err)
		}
	}

	var pkg packages.Package
	if req.PackageID != "" {
		pkg, err = s.d.Packages.Consume(ctx, req.CallerID, req.PackageID)
		if err != nil {
			releaseSlot()
			return Result{}, err
		}
		// Consume is atomic, so RemainingSessions+1 is the count this booking
		// used. Only the booking that took it to zero is the last session.
		qr.Package = &pricing.PackageState{ID: pkg.ID, RemainingSessions: pkg.RemainingSessions + 1}
		quote, err = s.d.Pricing.Quote(ctx, qr)
		if err != nil {
			restorePackage()
			releaseSlot()
			return Result{}, err
		}
	}

	var charge wallet.Transaction
	if quote.AmountMinor > 0 {
		charge, quote, err = s.charge(ctx, req, qr, quote)
		if err != nil {
			restorePackage()
			releaseSlot()
			return Result{}, err
		}
	}

	res := Result{
		Payment:   Payment{Method: methodFor(quote.Policy), AmountMinor: quote.AmountMinor, TransactionID: charge.TransactionID},
		PackageID: req.PackageID,
	}
	if req.PackageID != "" {
		n := pkg.RemainingSessions
		res.RemainingSessions = &n
	}

	start := s.clock().UTC()
	if req.Kind == KindSlot {
		start = slotStart(slot, s.d.Location, start)
	}
	credit := s.creditMentor(ctx, req, quote, start)

	switch req.Kind {
	case KindSlot:
		res.SlotID = slot.ID
		res.SlotStatus = slot.Status
		s.mailMentor(ctx, req.MentorID, notify.TemplateSlotPending, "New slot booking request", map[string]string{
			"user_name": caller.Name,
			"slot_date": slot.SlotsDate,
			"slot_time": slot.Time,
			"call_type": string(req.CallType),
		})
	case KindInstant:
		room, err := s.d.Rooms.Provision(ctx, req.CallType, req.MentorID)
		if err == nil {
			var sess sessions.Session
			sess, err = s.d.Sessions.Create(ctx, sessions.NewSession{
				UserID:          req.CallerID,
				MentorID:        req.MentorID,
				CallType:        req.CallType,
				DurationMinutes: req.DurationMinutes,
				Room:            room,
				StartTime:       start,
				PackageID:       req.PackageID,
			})
			res.SessionID = sess.ID
			res.Room = &room
		}
		if err != nil {
			s.unwind(ctx, req, charge, credit, err)
			restorePackage()
			return Result{}, fmt.Errorf("create session: %w", err)
		}
		s.mail(ctx, caller, notify.TemplateSessionBooked, "Your session is booked", map[string]string{
			"session_id": res.SessionID,
			"mentor_id":  req.MentorID,
			"call_type":  string(req.CallType),
			"join_url":   res.Room.GuestJoinURL,
		})
	}

	if quote.Mutation == pricing.MutationDecrementAndExpire {
		res.SupportSessionID = s.openSupport(ctx, pkg)
	}
	log.Info("booking settled",
		"kind", req.Kind,
		"policy", quote.Policy.String(),
		"amount", quote.AmountMinor,
		"session_id", res.SessionID,
		"slot_id", res.SlotID,
	)
	return res, nil
}

// charge debits the quoted amount. The first-chat price is only taken while
// the caller still has no successful debit; if another booking got there
// first the booking is re-priced and charged at the regular rate.
func (s *Service) charge(ctx context.Context, req Request, qr pricing.QuoteRequest, q pricing.Quote) (wallet.Transaction, pricing.Quote, error) {
	if q.Policy != pricing.PolicyFirstTimeChat {
		tx, err := s.d.Wallet.Charge(ctx, req.CallerID, q.AmountMinor, reference(req))
		return tx, q, err
	}
	tx, err := s.d.Wallet.ChargeFirst(ctx, req.CallerID, q.AmountMinor, reference(req))
	if !errors.Is(err, wallet.ErrNotFirstDebit) {
		return tx, q, err
	}
	logger.From(ctx).Info("first chat price already used, re-pricing", "caller_id", req.CallerID)
	q, err = s.d.Pricing.Quote(ctx, qr)
	if err != nil {
		return wallet.Transaction{}, q, err
	}
	if q.Policy == pricing.PolicyFirstTimeChat {
		return wallet.Transaction{}, q, wallet.ErrNotFirstDebit
	}
	tx, err = s.d.Wallet.Charge(ctx, req.CallerID, q.AmountMinor, reference(req))
	return tx, q, err
}

func validate(req Request) error {
	if req.CallerID == "" || req.MentorID == "" || req.CallerID == req.MentorID {
		return ErrInvalidArgument
	}
	if !req.CallType.OneToOne() || req.DurationMinutes <= 0 || !req.Kind.Valid() {
		return ErrInvalidArgument
	}
	if req.Kind == KindSlot && req.SlotID == "" {
		return ErrInvalidArgument
	}
	return nil
}

func reference(req Request) string {
	if req.Kind == KindSlot {
		return "slot:" + req.SlotID
	}
	return "instant:" + req.MentorID
}

// creditMentor books the mentor's share. A failure here leaves the user's
// booking intact and is reconciled from the logs.
func (s *Service) creditMentor(ctx context.Context, req Request, q pricing.Quote, start time.Time) *mentorwallet.Entry {
	if q.AmountMinor <= 0 || s.d.MentorWallet == nil {
		return nil
	}
	desc := mentorwallet.DescriptionSession
	if q.Policy == pricing.PolicyPackageLast {
		desc = mentorwallet.DescriptionPackageFinal
	}
	bt := mentorwallet.BookingInstant
	if req.Kind == KindSlot {
		bt = mentorwallet.BookingSlot
	}
	e, err := s.d.MentorWallet.CreditSession(ctx, mentorwallet.Credit{
		UserID:          req.CallerID,
		MentorID:        req.MentorID,
		SlotID:          req.SlotID,
		AmountMinor:     q.AmountMinor,
		Description:     desc,
		DurationMinutes: req.DurationMinutes,
		CallType:        req.CallType,
		BookingType:     bt,
		SessionStart:    start,
	})
	if err != nil {
		logger.From(ctx).Error("mentor credit failed", "mentor_id", req.MentorID, "amount", q.AmountMinor, "err", err)
		return nil
	}
	return &e
}

// unwind compensates a charge whose session could not be stored.
func (s *Service) unwind(ctx context.Context, req Request, charge wallet.Transaction, credit *mentorwallet.Entry, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.From(ctx)
	if charge.TransactionID != "" {
		if _, err := s.d.Wallet.Refund(ctx, req.CallerID, charge.DebitMinor, charge.TransactionID, cause.Error()); err != nil {
			log.Error("refund after failed booking", "transaction_id", charge.TransactionID, "err", err)
		}
	}
	if credit != nil {
		if err := s.d.MentorWallet.Reverse(ctx, credit.ID); err != nil {
			log.Error("mentor credit reversal failed", "entry_id", credit.ID, "err", err)
		}
	}
}

// openSupport starts the free follow-up chat after a package's final session
// and mails the owner. Failures are logged; the booking already succeeded.
func (s *Service) openSupport(ctx context.Context, pkg packages.Package) string {
	sess, err := s.d.Sessions.OpenPackageSupport(ctx, pkg.UserID, pkg.MentorID, pkg.ID)
	if err != nil {
		logger.From(ctx).Error("chat support session failed", "package_id", pkg.ID, "err", err)
		return ""
	}
	if sess.SupportExpiresAt != nil {
		// A failure here is picked up by the completed-package sweep.
		if out, err := s.d.Packages.OpenSupportWindow(ctx, pkg.ID, *sess.SupportExpiresAt); err != nil {
			logger.From(ctx).Warn("package support window not opened", "package_id", pkg.ID, "err", err)
			pkg.ChatSupportExpiresAt = sess.SupportExpiresAt
		} else {
			pkg = out
		}
	}
	s.d.Packages.NotifyCompleted(ctx, pkg)
	return sess.ID
}

// ConfirmSlot accepts a held slot, provisions its room and creates the
// session for the holder. If the room or session cannot be made the slot goes
// back to pending so the mentor can confirm again.
func (s *Service) ConfirmSlot(ctx context.Context, mentorID, slotID string) (Confirmation, error) {
	if mentorID == "" || slotID == "" {
		return Confirmation{}, ErrInvalidArgument
	}
	ref, err := s.d.Schedule.Accept(ctx, mentorID, slotID)
	if err != nil {
		return Confirmation{}, err
	}
	room, err := s.d.Rooms.Provision(ctx, ref.CallType, mentorID)
	if err != nil {
		s.unaccept(ctx, ref, err)
		return Confirmation{}, err
	}
	sess, err := s.d.Sessions.Create(ctx, sessions.NewSession{
		UserID:          ref.UserID,
		MentorID:        mentorID,
		CallType:        ref.CallType,
		DurationMinutes: ref.DurationMinutes,
		Room:            room,
		StartTime:       slotStart(ref, s.d.Location, s.clock().UTC()),
		SlotID:          ref.ID,
	})
	if err != nil {
		s.unaccept(ctx, ref, err)
		return Confirmation{}, fmt.Errorf("create session: %w", err)
	}

	if user, err := s.d.Accounts.Get(ctx, ref.UserID); err == nil {
		s.mail(ctx, user, notify.TemplateSlotConfirmed, "Your slot booking is confirmed", map[string]string{
			"session_id": sess.ID,
			"slot_date":  ref.SlotsDate,
			"slot_time":  ref.Time,
			"join_url":   room.GuestJoinURL,
		})
	}
	return Confirmation{Slot: ref, SessionID: sess.ID, Room: room}, nil
}

func (s *Service) unaccept(ctx context.Context, ref schedule.SlotRef, cause error) {
	log := logger.From(ctx).With("slot_id", ref.ID, "cause", cause)
	if err := s.d.Schedule.Unaccept(context.WithoutCancel(ctx), ref.MentorID, ref.ID, ref.UserID); err != nil {
		log.Error("slot left accepted without session", "err", err)
		return
	}
	log.Warn("slot confirmation rolled back")
}

// CancelSlot rejects a slot and clears its holder.
func (s *Service) CancelSlot(ctx context.Context, mentorID, slotID string) (schedule.SlotRef, error) {
	if mentorID == "" || slotID == "" {
		return schedule.SlotRef{}, ErrInvalidArgument
	}
	return s.d.Schedule.Reject(ctx, mentorID, slotID)
}

// slotTimeLayouts are the clock formats mentors enter slot times in.
var slotTimeLayouts = []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM", "03:04PM"}

// slotStart resolves a slot's wall-clock start, or fallback when the time
// cannot be parsed.
func slotStart(ref schedule.SlotRef, loc *time.Location, fallback time.Time) time.Time {
	t := strings.ToUpper(strings.TrimSpace(ref.Time))
	for _, layout := range slotTimeLayouts {
		v, err := time.ParseInLocation(schedule.DateLayout+" "+layout, ref.SlotsDate+" "+t, loc)
		if err == nil {
			return v.UTC()
		}
	}
	return fallback
}

func (s *Service) mail(ctx context.Context, to accounts.Account, template, subject string, data map[string]string) {
	if s.d.Mailer == nil || to.Email == "" {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["name"] = to.Name
	s.d.Mailer.SendMail(ctx, notify.Mail{To: to.Email, Subject: subject, Template: template, Data: data})
}

func (s *Service) mailMentor(ctx context.Context, mentorID, template, subject string, data map[string]string) {
	m, err := s.d.Accounts.Get(ctx, mentorID)
	if err != nil {
		logger.From(ctx).Warn("mentor mail skipped", "mentor_id", mentorID, "err", err)
		return
	}
	s.mail(ctx, m, template, subject, data)
}
