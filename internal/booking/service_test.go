package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/mentorwallet"
	"mentorship-platform/internal/notify"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/internal/wallet"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	accounts *accounts.Service
	wallet   *wallet.Service
	store    *wallet.MemoryStore
	packages *packages.Service
	schedule *schedule.Service
	sessions *sessions.Service
	mentor   *mentorwallet.Service
	mail     *notify.Recorder
}

type fixtureOpts struct {
	users    []accounts.Account
	rates    []pricing.Rate
	packages []packages.Package
	limiter  Limiter

	wrapPackages func(packages.Repository) packages.Repository
	wrapSessions func(sessions.Repository) sessions.Repository
	wrapDebits   func(pricing.DebitCounter) pricing.DebitCounter
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	seed := append([]accounts.Account{
		{ID: "m1", Kind: accounts.KindMentor, Name: "Ravi", Email: "ravi@example.com", Verified: true, Active: true},
		{ID: "u1", Kind: accounts.KindUser, Name: "Asha", Email: "asha@example.com", Active: true},
	}, o.users...)
	acc := accounts.NewService(accounts.NewMemoryRepo(seed...), nil)

	rec := &notify.Recorder{}
	store := wallet.NewMemoryStore()
	walletSvc := wallet.NewService(store, rec, nil)
	var pkgRepo packages.Repository = packages.NewMemoryRepo(o.packages...)
	if o.wrapPackages != nil {
		pkgRepo = o.wrapPackages(pkgRepo)
	}
	var sessRepo sessions.Repository = sessions.NewMemoryRepo()
	if o.wrapSessions != nil {
		sessRepo = o.wrapSessions(sessRepo)
	}
	var debits pricing.DebitCounter = walletSvc
	if o.wrapDebits != nil {
		debits = o.wrapDebits(debits)
	}
	pkgSvc := packages.NewService(pkgRepo, rec, acc)
	sched := schedule.NewService(schedule.NewMemoryRepo(), ist)
	prov := rooms.NewProvisioner(nil, "https://app.example.com", "")
	sessSvc := sessions.NewService(sessRepo, prov, acc, acc, pkgSvc)
	mw := mentorwallet.NewService(mentorwallet.NewMemoryRepo(), acc, ist)

	svc := NewService(Deps{
		Accounts:     acc,
		Pricing:      pricing.NewService(pricing.NewMemoryRepo(o.rates...), debits),
		Wallet:       walletSvc,
		MentorWallet: mw,
		Packages:     pkgSvc,
		Schedule:     sched,
		Sessions:     sessSvc,
		Rooms:        prov,
		Limiter:      o.limiter,
		Mailer:       rec,
		Location:     ist,
	})
	svc.clock = func() time.Time { return testNow }
	return &fixture{
		svc:      svc,
		accounts: acc,
		wallet:   walletSvc,
		store:    store,
		packages: pkgSvc,
		schedule: sched,
		sessions: sessSvc,
		mentor:   mw,
		mail:     rec,
	}
}

func rate(callType calls.Type, perMinute int64) pricing.Rate {
	return pricing.Rate{ID: "r-" + string(callType), MentorID: "m1", CallType: callType, RatePerMinuteMinor: perMinute}
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	w, err := f.wallet.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return w.BalanceMinor
}

func (f *fixture) slot(t *testing.T, callType calls.Type) string {
	t.Helper()
	sch, err := f.schedule.CreateSlots(context.Background(), "m1", "2025-03-02", []schedule.NewSlot{
		{Time: "10:00", CallType: callType, DurationMinutes: 30},
	})
	if err != nil {
		t.Fatalf("create slots: %v", err)
	}
	return sch.Slots[0].ID
}

// gate blocks the first want callers until all of them have arrived.
type gate struct {
	mu      sync.Mutex
	want    int
	arrived int
	open    chan struct{}
}

func newGate(want int) *gate {
	return &gate{want: want, open: make(chan struct{})}
}

func (g *gate) wait() {
	g.mu.Lock()
	g.arrived++
	n := g.arrived
	if n == g.want {
		close(g.open)
	}
	g.mu.Unlock()
	if n <= g.want {
		<-g.open
	}
}

type gatedPackages struct {
	packages.Repository
	gate *gate
}

func (r gatedPackages) Get(ctx context.Context, id string) (packages.Package, bool, error) {
	r.gate.wait()
	return r.Repository.Get(ctx, id)
}

type gatedDebits struct {
	pricing.DebitCounter
	gate *gate
}

func (d gatedDebits) CountSuccessfulDebits(ctx context.Context, userID string) (int, error) {
	d.gate.wait()
	return d.DebitCounter.CountSuccessfulDebits(ctx, userID)
}

// flakySessions fails the first fail calls to Create.
type flakySessions struct {
	sessions.Repository
	mu   sync.Mutex
	fail int
}

func (r *flakySessions) Create(ctx context.Context, sess sessions.Session) error {
	r.mu.Lock()
	if r.fail > 0 {
		r.fail--
		r.mu.Unlock()
		return errors.New("db unavailable")
	}
	r.mu.Unlock()
	return r.Repository.Create(ctx, sess)
}

func instant(callType calls.Type, minutes int) Request {
	return Request{CallerID: "u1", MentorID: "m1", CallType: callType, DurationMinutes: minutes, Kind: KindInstant}
}

func TestBook_FirstChatCostsOneCoinThenRegular(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeChat, 1000)}})
	f.store.Seed("u1", 100000)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, instant(calls.TypeChat, 10))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if first.Payment.Method != MethodFirstTime || first.Payment.AmountMinor != 100 {
		t.Fatalf("unexpected first payment %+v", first.Payment)
	}
	if got := f.balance(t, "u1"); got != 99900 {
		t.Fatalf("expected 99900 after first booking, got %d", got)
	}

	second, err := f.svc.Book(ctx, instant(calls.TypeChat, 10))
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if second.Payment.Method != MethodWallet || second.Payment.AmountMinor != 10000 {
		t.Fatalf("unexpected second payment %+v", second.Payment)
	}
	if got := f.balance(t, "u1"); got != 89900 {
		t.Fatalf("expected 89900 after second booking, got %d", got)
	}

	txs, err := f.wallet.Transactions(ctx, "u1", 10)
	if err != nil || len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d (%v)", len(txs), err)
	}
	if txs[0].ClosingBalanceMinor != 89900 {
		t.Fatalf("newest closing balance %d does not match wallet", txs[0].ClosingBalanceMinor)
	}

	sess, err := f.sessions.Get(ctx, second.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != sessions.StatusPending || !sess.EndTime.Equal(testNow.Add(10*time.Minute)) {
		t.Fatalf("unexpected session %+v", sess)
	}
	if second.Room == nil || second.Room.GuestJoinURL == "" {
		t.Fatalf("expected a room on instant booking")
	}
}

func TestBook_CreditsMentorSeventyThirty(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeAudio, 1000)}})
	f.store.Seed("u1", 100000)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, instant(calls.TypeAudio, 15)); err != nil {
		t.Fatalf("book: %v", err)
	}
	list, err := f.mentor.History(ctx, "m1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one mentor entry, got %d (%v)", len(list), err)
	}
	e := list[0]
	if !e.MentorShare.Equal(decimal.NewFromInt(10500)) || !e.AdminShare.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("unexpected split %s/%s", e.MentorShare, e.AdminShare)
	}
	if !e.MentorShare.Add(e.AdminShare).Equal(decimal.NewFromInt(e.AmountMinor)) {
		t.Fatalf("shares do not sum to amount")
	}
	if e.Description != mentorwallet.DescriptionSession || e.Session.BookingType != mentorwallet.BookingInstant {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestBook_PackageLastSessionOpensSupport(t *testing.T) {
	pkg := packages.Package{
		ID: "p1", UserID: "u1", MentorID: "m1", CategoryID: "c1", Type: calls.TypeVideo,
		TotalSessions: 3, RemainingSessions: 1, Status: packages.StatusActive,
	}
	f := newFixture(t, fixtureOpts{
		rates:    []pricing.Rate{rate(calls.TypeVideo, 5000)},
		packages: []packages.Package{pkg},
	})
	f.store.Seed("u1", 200000)
	ctx := context.Background()

	req := instant(calls.TypeVideo, 20)
	req.PackageID = "p1"
	res, err := f.svc.Book(ctx, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Payment.AmountMinor != 100000 || res.Payment.Method != MethodWallet {
		t.Fatalf("unexpected payment %+v", res.Payment)
	}
	if got := f.balance(t, "u1"); got != 100000 {
		t.Fatalf("expected balance 100000, got %d", got)
	}
	if res.SupportSessionID == "" {
		t.Fatalf("expected a chat-support session")
	}
	support, err := f.sessions.Get(ctx, res.SupportSessionID)
	if err != nil {
		t.Fatalf("get support session: %v", err)
	}
	if !support.IsSupportSession || support.CallType != calls.TypeChat || support.SupportExpiresAt == nil {
		t.Fatalf("unexpected support session %+v", support)
	}
	p, _ := f.packages.Get(ctx, "p1")
	if p.Status != packages.StatusChatSupportActive || p.RemainingSessions != 0 {
		t.Fatalf("expected package in chat support, got %+v", p)
	}
	if p.ChatSupportExpiresAt == nil || !p.ChatSupportExpiresAt.Equal(*support.SupportExpiresAt) {
		t.Fatalf("expected package window to match the support session, got %v", p.ChatSupportExpiresAt)
	}
	if window := support.SupportExpiresAt.Sub(support.CreatedAt); window < 7*24*time.Hour-time.Minute || window > 7*24*time.Hour {
		t.Fatalf("expected 7 day window, got %v", window)
	}

	entries, _ := f.mentor.History(ctx, "m1")
	if len(entries) != 1 || entries[0].Description != mentorwallet.DescriptionPackageFinal {
		t.Fatalf("expected final package credit, got %+v", entries)
	}
	var completed bool
	for _, m := range f.mail.Mails {
		if m.Template == notify.TemplatePackageCompleted {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("expected a package completed mail")
	}
}

func TestBook_ConcurrentPackageBookingsPriceLastOnce(t *testing.T) {
	pkg := packages.Package{
		ID: "p1", UserID: "u1", MentorID: "m1", CategoryID: "c1", Type: calls.TypeVideo,
		TotalSessions: 2, RemainingSessions: 2, Status: packages.StatusActive,
	}
	g := newGate(2)
	f := newFixture(t, fixtureOpts{
		rates:    []pricing.Rate{rate(calls.TypeVideo, 5000)},
		packages: []packages.Package{pkg},
		wrapPackages: func(r packages.Repository) packages.Repository {
			return gatedPackages{Repository: r, gate: g}
		},
	})
	f.store.Seed("u1", 200000)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := instant(calls.TypeVideo, 20)
			req.PackageID = "p1"
			results[i], errs[i] = f.svc.Book(ctx, req)
		}(i)
	}
	wg.Wait()

	var total int64
	var support int
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("booking %d: %v", i, errs[i])
		}
		total += results[i].Payment.AmountMinor
		if results[i].SupportSessionID != "" {
			support++
		}
	}
	if total != 100000 || support != 1 {
		t.Fatalf("expected one last-session charge and one support session, got total %d support %d", total, support)
	}
	if got := f.balance(t, "u1"); got != 100000 {
		t.Fatalf("expected balance 100000, got %d", got)
	}
	if entries, _ := f.mentor.History(ctx, "m1"); len(entries) != 1 {
		t.Fatalf("expected one mentor credit, got %d", len(entries))
	}
	p, _ := f.packages.Get(ctx, "p1")
	if p.Status != packages.StatusChatSupportActive || p.RemainingSessions != 0 {
		t.Fatalf("unexpected package %+v", p)
	}
}

func TestBook_ConcurrentFirstChatsChargeOneCoinOnce(t *testing.T) {
	g := newGate(2)
	f := newFixture(t, fixtureOpts{
		rates: []pricing.Rate{rate(calls.TypeChat, 1000)},
		wrapDebits: func(d pricing.DebitCounter) pricing.DebitCounter {
			return gatedDebits{DebitCounter: d, gate: g}
		},
	})
	f.store.Seed("u1", 100000)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Book(ctx, instant(calls.TypeChat, 10))
		}(i)
	}
	wg.Wait()

	var first, regular int
	for i, res := range results {
		if errs[i] != nil {
			t.Fatalf("booking %d: %v", i, errs[i])
		}
		switch {
		case res.Payment.Method == MethodFirstTime && res.Payment.AmountMinor == 100:
			first++
		case res.Payment.Method == MethodWallet && res.Payment.AmountMinor == 10000:
			regular++
		default:
			t.Fatalf("unexpected payment %+v", res.Payment)
		}
	}
	if first != 1 || regular != 1 {
		t.Fatalf("expected one first-time and one regular charge, got %d/%d", first, regular)
	}
	if got := f.balance(t, "u1"); got != 89900 {
		t.Fatalf("expected balance 89900, got %d", got)
	}
}

func TestBook_PackageSessionIsFree(t *testing.T) {
	pkg := packages.Package{
		ID: "p1", UserID: "u1", MentorID: "m1", CategoryID: "c1", Type: calls.TypeAudio,
		TotalSessions: 3, RemainingSessions: 3, Status: packages.StatusActive,
	}
	f := newFixture(t, fixtureOpts{packages: []packages.Package{pkg}})
	ctx := context.Background()

	req := instant(calls.TypeAudio, 30)
	req.PackageID = "p1"
	res, err := f.svc.Book(ctx, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Payment.Method != MethodPackage || res.Payment.AmountMinor != 0 || res.Payment.TransactionID != "" {
		t.Fatalf("unexpected payment %+v", res.Payment)
	}
	if res.RemainingSessions == nil || *res.RemainingSessions != 2 {
		t.Fatalf("expected 2 remaining, got %v", res.RemainingSessions)
	}
	if list, _ := f.mentor.History(ctx, "m1"); len(list) != 0 {
		t.Fatalf("package-free sessions must not credit the mentor")
	}
}

func TestBook_InsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeAudio, 1000)}})
	f.store.Seed("u1", 500)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, instant(calls.TypeAudio, 10))
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 500 {
		t.Fatalf("expected balance 500, got %d", got)
	}
	if txs, _ := f.wallet.Transactions(ctx, "u1", 10); len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
	if list, _ := f.sessions.ListMine(ctx, "u1", sessions.RoleUser); len(list) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list))
	}
}

func TestBook_FailedChargeReleasesSlotAndPackage(t *testing.T) {
	pkg := packages.Package{
		ID: "p1", UserID: "u1", MentorID: "m1", CategoryID: "c1", Type: calls.TypeAudio,
		TotalSessions: 2, RemainingSessions: 1, Status: packages.StatusActive,
	}
	f := newFixture(t, fixtureOpts{
		rates:    []pricing.Rate{rate(calls.TypeAudio, 1000)},
		packages: []packages.Package{pkg},
	})
	f.store.Seed("u1", 100)
	ctx := context.Background()
	slotID := f.slot(t, calls.TypeAudio)

	_, err := f.svc.Book(ctx, Request{
		CallerID: "u1", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 30,
		Kind: KindSlot, SlotID: slotID, PackageID: "p1",
	})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	ref, _ := f.schedule.FindSlot(ctx, slotID)
	if ref.Booked || ref.UserID != "" {
		t.Fatalf("expected slot released, got %+v", ref.Slot)
	}
	p, _ := f.packages.Get(ctx, "p1")
	if p.Status != packages.StatusActive || p.RemainingSessions != 1 {
		t.Fatalf("expected package restored, got %+v", p)
	}
}

func TestBook_SlotDefersRoomUntilConfirm(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeVideo, 1000)}})
	f.store.Seed("u1", 100000)
	ctx := context.Background()
	slotID := f.slot(t, calls.TypeVideo)

	res, err := f.svc.Book(ctx, Request{
		CallerID: "u1", MentorID: "m1", CallType: calls.TypeVideo, DurationMinutes: 30,
		Kind: KindSlot, SlotID: slotID,
	})
	if err != nil {
		t.Fatalf("book slot: %v", err)
	}
	if res.SessionID != "" || res.Room != nil || res.SlotStatus != schedule.SlotPending {
		t.Fatalf("slot booking must not create a session yet: %+v", res)
	}
	entries, _ := f.mentor.History(ctx, "m1")
	if len(entries) != 1 || entries[0].SlotID != slotID || entries[0].Session.SessionTime != "10:00 AM" {
		t.Fatalf("unexpected slot credit %+v", entries)
	}

	if _, err := f.svc.ConfirmSlot(ctx, "u1", slotID); !errors.Is(err, schedule.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	conf, err := f.svc.ConfirmSlot(ctx, "m1", slotID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if conf.Slot.Status != schedule.SlotAccepted || conf.SessionID == "" || conf.Room.RoomID == "" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	sess, err := f.sessions.Get(ctx, conf.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	// 10:00 in Kolkata.
	want := time.Date(2025, 3, 2, 4, 30, 0, 0, time.UTC)
	if sess.UserID != "u1" || sess.SlotID != slotID || !sess.StartTime.Equal(want) {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestConfirmSlot_SessionFailureReturnsSlotToPending(t *testing.T) {
	flaky := &flakySessions{fail: 1}
	f := newFixture(t, fixtureOpts{
		rates: []pricing.Rate{rate(calls.TypeVideo, 1000)},
		wrapSessions: func(r sessions.Repository) sessions.Repository {
			flaky.Repository = r
			return flaky
		},
	})
	f.store.Seed("u1", 100000)
	ctx := context.Background()
	slotID := f.slot(t, calls.TypeVideo)

	if _, err := f.svc.Book(ctx, Request{
		CallerID: "u1", MentorID: "m1", CallType: calls.TypeVideo, DurationMinutes: 30,
		Kind: KindSlot, SlotID: slotID,
	}); err != nil {
		t.Fatalf("book slot: %v", err)
	}

	if _, err := f.svc.ConfirmSlot(ctx, "m1", slotID); err == nil {
		t.Fatalf("expected confirm to fail")
	}
	ref, _ := f.schedule.FindSlot(ctx, slotID)
	if ref.Status != schedule.SlotPending || !ref.Booked || ref.UserID != "u1" {
		t.Fatalf("expected slot back to pending, got %+v", ref.Slot)
	}
	if list, _ := f.sessions.ListMine(ctx, "u1", sessions.RoleUser); len(list) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list))
	}

	conf, err := f.svc.ConfirmSlot(ctx, "m1", slotID)
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if conf.Slot.Status != schedule.SlotAccepted || conf.SessionID == "" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
}

func TestCancelSlot_ClearsHolder(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeAudio, 1000)}})
	f.store.Seed("u1", 100000)
	ctx := context.Background()
	slotID := f.slot(t, calls.TypeAudio)

	if _, err := f.svc.Book(ctx, Request{
		CallerID: "u1", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 30,
		Kind: KindSlot, SlotID: slotID,
	}); err != nil {
		t.Fatalf("book slot: %v", err)
	}
	ref, err := f.svc.CancelSlot(ctx, "m1", slotID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ref.Status != schedule.SlotRejected {
		t.Fatalf("expected rejected slot, got %s", ref.Status)
	}
	cur, _ := f.schedule.FindSlot(ctx, slotID)
	if cur.Booked || cur.UserID != "" {
		t.Fatalf("expected cleared slot, got %+v", cur.Slot)
	}
}

func TestBook_ConcurrentSlotHoldsHaveOneWinner(t *testing.T) {
	const n = 12
	var users []accounts.Account
	for i := 0; i < n; i++ {
		users = append(users, accounts.Account{ID: fmt.Sprintf("c%d", i), Kind: accounts.KindUser, Active: true})
	}
	f := newFixture(t, fixtureOpts{users: users, rates: []pricing.Rate{rate(calls.TypeAudio, 100)}})
	for _, u := range users {
		f.store.Seed(u.ID, 100000)
	}
	slotID := f.slot(t, calls.TypeAudio)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		others []error
	)
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), Request{
				CallerID: id, MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 30,
				Kind: KindSlot, SlotID: slotID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			others = append(others, err)
		}(u.ID)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	for _, err := range others {
		if !errors.Is(err, schedule.ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	}
	charged := 0
	for _, u := range users {
		if f.balance(t, u.ID) != 100000 {
			charged++
		}
	}
	if charged != 1 {
		t.Fatalf("expected one charged caller, got %d", charged)
	}
}

func TestBook_ConcurrentChargesNeverOverdraw(t *testing.T) {
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeAudio, 100)}})
	f.store.Seed("u1", 5000)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), instant(calls.TypeAudio, 10))
			if err != nil && !errors.Is(err, wallet.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 5 {
		t.Fatalf("expected 5 successful bookings, got %d", ok)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}
}

type stubLimiter struct {
	allow    bool
	err      error
	released int
}

func (l *stubLimiter) Acquire(ctx context.Context, id string) (bool, error) { return l.allow, l.err }

func (l *stubLimiter) Release(ctx context.Context, id string) error {
	l.released++
	return nil
}

func TestBook_InflightCap(t *testing.T) {
	lim := &stubLimiter{}
	f := newFixture(t, fixtureOpts{rates: []pricing.Rate{rate(calls.TypeAudio, 100)}, limiter: lim})
	f.store.Seed("u1", 100000)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, instant(calls.TypeAudio, 10)); !errors.Is(err, ErrBookingInProgress) {
		t.Fatalf("expected ErrBookingInProgress, got %v", err)
	}

	lim.allow = true
	if _, err := f.svc.Book(ctx, instant(calls.TypeAudio, 10)); err != nil {
		t.Fatalf("book: %v", err)
	}
	if lim.released != 1 {
		t.Fatalf("expected the cap to be released once, got %d", lim.released)
	}

	// A broken cap store does not block bookings.
	lim.err = errors.New("redis down")
	if _, err := f.svc.Book(ctx, instant(calls.TypeAudio, 10)); err != nil {
		t.Fatalf("book with cap error: %v", err)
	}
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		users: []accounts.Account{{ID: "blocked", Kind: accounts.KindUser, Blocked: true}},
	})
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"group", instant(calls.TypeGroup, 10), ErrInvalidArgument},
		{"zero duration", instant(calls.TypeAudio, 0), ErrInvalidArgument},
		{"slot without id", Request{CallerID: "u1", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 10, Kind: KindSlot}, ErrInvalidArgument},
		{"self booking", Request{CallerID: "m1", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 10, Kind: KindInstant}, ErrInvalidArgument},
		{"blocked caller", Request{CallerID: "blocked", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 10, Kind: KindInstant}, accounts.ErrBlocked},
		{"unknown mentor", Request{CallerID: "u1", MentorID: "nobody", CallType: calls.TypeAudio, DurationMinutes: 10, Kind: KindInstant}, accounts.ErrNotFound},
		{"missing rate", instant(calls.TypeAudio, 10), pricing.ErrRateNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Book(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
