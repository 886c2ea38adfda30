package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"mentorship-platform/internal/config"
)

type fakeLinks struct {
	created map[string]interface{}
	fetched map[string]map[string]interface{}
	err     error
}

func (f *fakeLinks) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = data
	return map[string]interface{}{"id": "plink_1", "short_url": "https://rzp.io/i/abc", "status": "created"}, nil
}

func (f *fakeLinks) Fetch(id string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.fetched[id]
	if !ok {
		return nil, errors.New("BAD_REQUEST_ERROR: id does not exist")
	}
	return body, nil
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestNewGateway_DisabledWithoutKeys(t *testing.T) {
	g := NewGateway(config.PaymentsConfig{})
	if g.Enabled() {
		t.Fatalf("expected disabled gateway")
	}
	if _, err := g.VerifyLink(context.Background(), "plink_1"); !errors.Is(err, ErrGatewayDisabled) {
		t.Fatalf("expected ErrGatewayDisabled, got %v", err)
	}
}

func TestCreateLink_SendsPaise(t *testing.T) {
	fake := &fakeLinks{}
	g := &Gateway{links: fake, secret: "s"}
	link, err := g.CreateLink(context.Background(), LinkRequest{AmountMinor: 50000, Name: "Asha", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if link.ID != "plink_1" || link.ShortURL == "" {
		t.Fatalf("unexpected link %+v", link)
	}
	if fake.created["amount"] != int64(50000) || fake.created["currency"] != "INR" {
		t.Fatalf("unexpected payload %+v", fake.created)
	}
}

func TestVerifyLink_PaidAndUnpaid(t *testing.T) {
	fake := &fakeLinks{fetched: map[string]map[string]interface{}{
		"plink_paid":   {"status": "paid", "amount": float64(50000), "amount_paid": float64(50000)},
		"plink_open":   {"status": "created", "amount": float64(20000), "amount_paid": float64(0)},
		"plink_broken": {"status": "paid", "amount_paid": float64(0)},
	}}
	g := &Gateway{links: fake, secret: "s"}
	ctx := context.Background()

	p, err := g.VerifyLink(ctx, "plink_paid")
	if err != nil || !p.Success || p.AmountMinor != 50000 || p.PaymentID != "plink_paid" {
		t.Fatalf("unexpected paid result %+v %v", p, err)
	}
	p, err = g.VerifyLink(ctx, "plink_open")
	if err != nil || p.Success || p.AmountMinor != 20000 {
		t.Fatalf("unexpected unpaid result %+v %v", p, err)
	}
	if _, err := g.VerifyLink(ctx, "plink_broken"); !errors.Is(err, ErrUnexpectedAmount) {
		t.Fatalf("expected ErrUnexpectedAmount, got %v", err)
	}
	if _, err := g.VerifyLink(ctx, "plink_missing"); err == nil {
		t.Fatalf("expected gateway error")
	}
}

func TestCheckCallback_Signature(t *testing.T) {
	g := &Gateway{links: &fakeLinks{}, secret: "topsecret"}
	sig := sign("plink_1|ref_1|paid|pay_9", "topsecret")
	if err := g.CheckCallback("plink_1", "ref_1", "paid", "pay_9", sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := g.CheckCallback("plink_1", "ref_1", "paid", "pay_10", sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestCheckWebhook(t *testing.T) {
	body := []byte(`{"event":"payment_link.paid"}`)
	if err := CheckWebhook(body, sign(string(body), "whsec"), "whsec"); err != nil {
		t.Fatalf("expected valid webhook, got %v", err)
	}
	if err := CheckWebhook(body, "deadbeef", "whsec"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if err := CheckWebhook(body, "x", ""); !errors.Is(err, ErrGatewayDisabled) {
		t.Fatalf("expected ErrGatewayDisabled, got %v", err)
	}
}

func TestLinkPaid(t *testing.T) {
	body := []byte(`{"event":"payment_link.paid","payload":{"payment_link":{"entity":{"id":"plink_7","status":"paid","amount_paid":50000,"notes":{"user_id":"u1"}}}}}`)
	user, p, ok, err := LinkPaid(body)
	if err != nil || !ok {
		t.Fatalf("expected paid link, ok=%v err=%v", ok, err)
	}
	if user != "u1" || p.PaymentID != "plink_7" || p.AmountMinor != 50000 || !p.Success {
		t.Fatalf("unexpected payment: %q %+v", user, p)
	}

	if _, _, ok, err := LinkPaid([]byte(`{"event":"payment_link.cancelled"}`)); ok || err != nil {
		t.Fatalf("other events are ignored, ok=%v err=%v", ok, err)
	}
	if _, _, _, err := LinkPaid([]byte(`{"event":"payment_link.paid","payload":{}}`)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
