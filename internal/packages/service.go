package packages

import (
	"context"
	"errors"
	"strconv"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/notify"
	"mentorship-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("package not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPackageExhausted  = errors.New("package has no remaining sessions")
	ErrPackageNotActive  = errors.New("package is not active")
	ErrTypeMismatch      = errors.New("package call type does not match booking")
	ErrChatSupportActive = errors.New("chat support already active")
)

// Mailer sends transactional mail. Delivery is best-effort.
type Mailer interface {
	SendMail(ctx context.Context, m notify.Mail)
}

// Directory resolves account contact details.
type Directory interface {
	Get(ctx context.Context, id string) (accounts.Account, error)
}

type Service struct {
	repo      Repository
	mailer    Mailer
	directory Directory
	clock     func() time.Time
}

func NewService(repo Repository, mailer Mailer, directory Directory) *Service {
	return &Service{repo: repo, mailer: mailer, directory: directory, clock: time.Now}
}

type NewPackage struct {
	UserID          string
	MentorID        string
	CategoryID      string
	Type            calls.Type
	TotalSessions   int
	PriceMinor      int64
	DurationMinutes *int
	ExpiryDate      *time.Time
}

// Create stores a template when UserID is empty, otherwise an active package.
func (s *Service) Create(ctx context.Context, in NewPackage) (Package, error) {
	if in.MentorID == "" || in.CategoryID == "" || !in.Type.OneToOne() {
		return Package{}, ErrInvalidArgument
	}
	if in.TotalSessions <= 0 || in.PriceMinor < 0 {
		return Package{}, ErrInvalidArgument
	}
	if in.DurationMinutes != nil && *in.DurationMinutes <= 0 {
		return Package{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	p := Package{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		MentorID:          in.MentorID,
		CategoryID:        in.CategoryID,
		Type:              in.Type,
		TotalSessions:     in.TotalSessions,
		RemainingSessions: in.TotalSessions,
		PriceMinor:        in.PriceMinor,
		DurationMinutes:   in.DurationMinutes,
		Status:            StatusTemplate,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.UserID != "" {
		p.Status = StatusActive
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Package{}, err
	}
	return p, nil
}

// PurchaseTemplate clones a mentor template into an active package owned by userID.
func (s *Service) PurchaseTemplate(ctx context.Context, userID, templateID string) (Package, error) {
	if userID == "" || templateID == "" {
		return Package{}, ErrInvalidArgument
	}
	tpl, err := s.Get(ctx, templateID)
	if err != nil {
		return Package{}, err
	}
	if tpl.Status != StatusTemplate {
		return Package{}, ErrNotFound
	}
	return s.Create(ctx, NewPackage{
		UserID:          userID,
		MentorID:        tpl.MentorID,
		CategoryID:      tpl.CategoryID,
		Type:            tpl.Type,
		TotalSessions:   tpl.TotalSessions,
		PriceMinor:      tpl.PriceMinor,
		DurationMinutes: tpl.DurationMinutes,
		ExpiryDate:      tpl.ExpiryDate,
	})
}

func (s *Service) Get(ctx context.Context, id string) (Package, error) {
	if id == "" {
		return Package{}, ErrInvalidArgument
	}
	p, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	if !ok {
		return Package{}, ErrNotFound
	}
	return p, nil
}

// ForBooking loads a package the user may draw a session from for this mentor and call type.
func (s *Service) ForBooking(ctx context.Context, userID, mentorID, packageID string, callType calls.Type) (Package, error) {
	p, err := s.Get(ctx, packageID)
	if err != nil {
		return Package{}, err
	}
	if p.UserID != userID || p.MentorID != mentorID {
		return Package{}, ErrUnauthorized
	}
	if p.Type != callType {
		return Package{}, ErrTypeMismatch
	}
	if err := usable(p); err != nil {
		return Package{}, err
	}
	return p, nil
}

func usable(p Package) error {
	switch p.Status {
	case StatusActive:
		if p.RemainingSessions <= 0 {
			return ErrPackageExhausted
		}
		return nil
	case StatusExpired:
		return ErrPackageExhausted
	case StatusTemplate, StatusChatSupportActive:
		return ErrPackageNotActive
	default:
		return ErrPackageNotActive
	}
}

// Consume takes one session from a package owned by userID. It never retries:
// a lost race surfaces as ErrPackageExhausted or ErrPackageNotActive.
func (s *Service) Consume(ctx context.Context, userID, packageID string) (Package, error) {
	p, err := s.Get(ctx, packageID)
	if err != nil {
		return Package{}, err
	}
	if p.UserID != userID {
		return Package{}, ErrUnauthorized
	}
	if err := usable(p); err != nil {
		return Package{}, err
	}
	out, ok, err := s.repo.Consume(ctx, packageID, s.clock().UTC())
	if err != nil {
		return Package{}, err
	}
	if !ok {
		cur, err := s.Get(ctx, packageID)
		if err != nil {
			return Package{}, err
		}
		if err := usable(cur); err != nil {
			return Package{}, err
		}
		return Package{}, ErrPackageExhausted
	}
	return out, nil
}

// Restore undoes a Consume whose booking failed before money moved.
func (s *Service) Restore(ctx context.Context, packageID string) error {
	ok, err := s.repo.Restore(ctx, packageID, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ActivateChatSupport opens the follow-up chat window on a completed package.
func (s *Service) ActivateChatSupport(ctx context.Context, userID, packageID string) (Package, error) {
	p, err := s.Get(ctx, packageID)
	if err != nil {
		return Package{}, err
	}
	if p.UserID != userID {
		return Package{}, ErrUnauthorized
	}
	if p.Status == StatusChatSupportActive {
		return Package{}, ErrChatSupportActive
	}
	if p.Status == StatusTemplate {
		return Package{}, ErrPackageNotActive
	}
	if p.RemainingSessions != 0 {
		return Package{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	out, ok, err := s.repo.OpenChatSupport(ctx, packageID, now.Add(ChatSupportWindow), now)
	if err != nil {
		return Package{}, err
	}
	if !ok {
		return Package{}, ErrChatSupportActive
	}
	return out, nil
}

// ExtendChatSupport pushes an open window out by days from now. Admin only.
func (s *Service) ExtendChatSupport(ctx context.Context, packageID string, days int) (Package, error) {
	if days <= 0 {
		days = 7
	}
	now := s.clock().UTC()
	out, ok, err := s.repo.ExtendChatSupport(ctx, packageID, now.AddDate(0, 0, days), now)
	if err != nil {
		return Package{}, err
	}
	if !ok {
		return Package{}, ErrPackageNotActive
	}
	return out, nil
}

// HasActiveChatSupport reports whether the user has an open support window with the mentor.
func (s *Service) HasActiveChatSupport(ctx context.Context, userID, mentorID string) (bool, error) {
	list, err := s.repo.ListChatSupport(ctx, userID, mentorID, s.clock().UTC())
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

func (s *Service) Summary(ctx context.Context, userID, packageID string) (Summary, error) {
	p, err := s.Get(ctx, packageID)
	if err != nil {
		return Summary{}, err
	}
	if p.UserID != userID {
		return Summary{}, ErrUnauthorized
	}
	return summarize(p), nil
}

// ListUserPackages returns the user's active packages, newest first.
func (s *Service) ListUserPackages(ctx context.Context, userID string, callType calls.Type) ([]Package, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if callType != "" && !callType.Valid() {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByUser(ctx, userID, StatusActive, callType)
}

func (s *Service) ListMentorTemplates(ctx context.Context, mentorID string) ([]Package, error) {
	if mentorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListTemplates(ctx, mentorID)
}

// ListChatSupport returns open support windows for a user or a mentor.
func (s *Service) ListChatSupport(ctx context.Context, principalID string, asMentor bool) ([]Package, error) {
	if principalID == "" {
		return nil, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if asMentor {
		return s.repo.ListChatSupport(ctx, "", principalID, now)
	}
	return s.repo.ListChatSupport(ctx, principalID, "", now)
}

// TemplatePatch is the set of template fields a mentor may change.
type TemplatePatch struct {
	Type            *calls.Type
	TotalSessions   *int
	PriceMinor      *int64
	DurationMinutes *int
	CategoryID      *string
}

func (s *Service) UpdateTemplate(ctx context.Context, mentorID, templateID string, patch TemplatePatch) (Package, error) {
	p, err := s.ownedTemplate(ctx, mentorID, templateID)
	if err != nil {
		return Package{}, err
	}
	if patch.Type != nil {
		if !patch.Type.OneToOne() {
			return Package{}, ErrInvalidArgument
		}
		p.Type = *patch.Type
	}
	if patch.TotalSessions != nil {
		if *patch.TotalSessions <= 0 {
			return Package{}, ErrInvalidArgument
		}
		p.TotalSessions = *patch.TotalSessions
		p.RemainingSessions = *patch.TotalSessions
	}
	if patch.PriceMinor != nil {
		if *patch.PriceMinor < 0 {
			return Package{}, ErrInvalidArgument
		}
		p.PriceMinor = *patch.PriceMinor
	}
	if patch.DurationMinutes != nil {
		if *patch.DurationMinutes <= 0 {
			return Package{}, ErrInvalidArgument
		}
		d := *patch.DurationMinutes
		p.DurationMinutes = &d
	}
	if patch.CategoryID != nil && *patch.CategoryID != "" {
		p.CategoryID = *patch.CategoryID
	}
	p.UpdatedAt = s.clock().UTC()

	ok, err := s.repo.UpdateTemplate(ctx, p)
	if err != nil {
		return Package{}, err
	}
	if !ok {
		return Package{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, mentorID, templateID string) error {
	if _, err := s.ownedTemplate(ctx, mentorID, templateID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ownedTemplate(ctx context.Context, mentorID, templateID string) (Package, error) {
	p, err := s.Get(ctx, templateID)
	if err != nil {
		return Package{}, err
	}
	if p.Status != StatusTemplate {
		return Package{}, ErrNotFound
	}
	if p.MentorID != mentorID {
		return Package{}, ErrUnauthorized
	}
	return p, nil
}

// OpenSupportWindow opens chat support on a package whose final session was
// just booked, ending at expiresAt.
func (s *Service) OpenSupportWindow(ctx context.Context, packageID string, expiresAt time.Time) (Package, error) {
	out, ok, err := s.repo.OpenChatSupport(ctx, packageID, expiresAt, s.clock().UTC())
	if err != nil {
		return Package{}, err
	}
	if !ok {
		return Package{}, ErrChatSupportActive
	}
	return out, nil
}

// ActivateCompletedPackages opens chat support on used-up packages that never
// got a window, such as when the booking that finished them could not open
// one, and mails the owner. Returns how many were opened.
func (s *Service) ActivateCompletedPackages(ctx context.Context) (int, error) {
	list, err := s.repo.ListCompletedWithoutSupport(ctx)
	if err != nil {
		return 0, err
	}
	log := logger.From(ctx)
	n := 0
	for _, p := range list {
		now := s.clock().UTC()
		out, ok, err := s.repo.OpenChatSupport(ctx, p.ID, now.Add(ChatSupportWindow), now)
		if err != nil {
			log.Error("open chat support failed", "package_id", p.ID, "err", err)
			continue
		}
		if !ok {
			continue
		}
		n++
		s.mailCompleted(ctx, out)
	}
	return n, nil
}

// ExpireChatSupport closes support windows past their deadline.
func (s *Service) ExpireChatSupport(ctx context.Context) (int, error) {
	return s.repo.ExpireChatSupport(ctx, s.clock().UTC())
}

// NotifyCompleted mails the owner that the package finished and support is open.
func (s *Service) NotifyCompleted(ctx context.Context, p Package) {
	s.mailCompleted(ctx, p)
}

func (s *Service) mailCompleted(ctx context.Context, p Package) {
	if s.mailer == nil || s.directory == nil || p.UserID == "" {
		return
	}
	user, err := s.directory.Get(ctx, p.UserID)
	if err != nil {
		logger.From(ctx).Warn("package completion mail skipped", "package_id", p.ID, "err", err)
		return
	}
	data := map[string]string{
		"name":           user.Name,
		"package_id":     p.ID,
		"mentor_id":      p.MentorID,
		"type":           string(p.Type),
		"total_sessions": strconv.Itoa(p.TotalSessions),
	}
	if p.ChatSupportExpiresAt != nil {
		data["support_expires_at"] = p.ChatSupportExpiresAt.Format(time.RFC3339)
	}
	s.mailer.SendMail(ctx, notify.Mail{
		To:       user.Email,
		Subject:  "Package Completed - 1 Week Chat Support Activated",
		Template: notify.TemplatePackageCompleted,
		Data:     data,
	})
}
