package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mentorship-platform/internal/config"
	"mentorship-platform/internal/wallet"
	"mentorship-platform/pkg/logger"

	razorpay "github.com/razorpay/razorpay-go"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrGatewayDisabled  = errors.New("payment gateway not configured")
	ErrBadSignature     = errors.New("payment signature mismatch")
	ErrUnexpectedAmount = errors.New("unexpected payment amount")
)

// linkAPI is the subset of the Razorpay payment-link resource we call.
type linkAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(id string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway creates recharge links and turns their outcome into a payment the
// wallet can trust.
type Gateway struct {
	links  linkAPI
	secret string
}

func NewGateway(cfg config.PaymentsConfig) *Gateway {
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return &Gateway{}
	}
	client := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	return &Gateway{links: client.PaymentLink, secret: cfg.RazorpayKeySecret}
}

func (g *Gateway) Enabled() bool { return g != nil && g.links != nil }

type LinkRequest struct {
	AmountMinor int64
	Name        string
	Email       string
	Mobile      string
	CallbackURL string
	// Reference must be unique per link; UserID travels in the link notes.
	Reference string
	UserID    string
}

type Link struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

// CreateLink starts a wallet recharge. Amounts are paise.
func (g *Gateway) CreateLink(ctx context.Context, r LinkRequest) (Link, error) {
	if !g.Enabled() {
		return Link{}, ErrGatewayDisabled
	}
	if r.AmountMinor <= 0 {
		return Link{}, ErrInvalidArgument
	}
	data := map[string]interface{}{
		"amount":       r.AmountMinor,
		"currency":     "INR",
		"reference_id": r.Reference,
		"description":  "BuddyCoins recharge",
		"customer": map[string]interface{}{
			"name":    r.Name,
			"email":   r.Email,
			"contact": r.Mobile,
		},
		"notify": map[string]interface{}{"sms": true, "email": true},
		"notes":  map[string]interface{}{"user_id": r.UserID},
	}
	if r.CallbackURL != "" {
		data["callback_url"] = r.CallbackURL
		data["callback_method"] = "get"
	}
	body, err := g.links.Create(data, nil)
	if err != nil {
		return Link{}, fmt.Errorf("razorpay create link: %w", err)
	}
	return Link{ID: str(body["id"]), ShortURL: str(body["short_url"]), Status: str(body["status"])}, nil
}

// VerifyLink fetches a payment link and reports it as a wallet payment. An
// unpaid link is returned with Success false so the ledger can record the
// failed recharge.
func (g *Gateway) VerifyLink(ctx context.Context, linkID string) (wallet.VerifiedPayment, error) {
	if !g.Enabled() {
		return wallet.VerifiedPayment{}, ErrGatewayDisabled
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return wallet.VerifiedPayment{}, ErrInvalidArgument
	}
	body, err := g.links.Fetch(linkID, nil, nil)
	if err != nil {
		return wallet.VerifiedPayment{}, fmt.Errorf("razorpay fetch link: %w", err)
	}
	status := str(body["status"])
	paid := amount(body["amount_paid"])
	if status != "paid" {
		// A failed recharge still carries the requested amount for the record.
		paid = amount(body["amount"])
	}
	if paid <= 0 {
		return wallet.VerifiedPayment{}, ErrUnexpectedAmount
	}
	logger.From(ctx).Info("payment link verified", "link_id", linkID, "status", status, "amount", paid)
	return wallet.VerifiedPayment{
		PaymentID:   linkID,
		AmountMinor: paid,
		Success:     status == "paid",
	}, nil
}

// CheckCallback validates the redirect signature Razorpay appends to the
// callback URL of a payment link.
func (g *Gateway) CheckCallback(linkID, referenceID, status, paymentID, signature string) error {
	if g == nil || g.secret == "" {
		return ErrGatewayDisabled
	}
	payload := linkID + "|" + referenceID + "|" + status + "|" + paymentID
	return checkHMAC(payload, signature, g.secret)
}

// CheckWebhook validates the X-Razorpay-Signature header against the raw body.
func CheckWebhook(body []byte, signature, secret string) error {
	if secret == "" {
		return ErrGatewayDisabled
	}
	return checkHMAC(string(body), signature, secret)
}

func checkHMAC(payload, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(strings.TrimSpace(signature))) {
		return ErrBadSignature
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// amount reads a JSON number decoded as float64 by the client.
func amount(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID         string            `json:"id"`
				Status     string            `json:"status"`
				AmountPaid int64             `json:"amount_paid"`
				Notes      map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

// LinkPaid extracts the recharge carried by a payment_link.paid webhook. ok is
// false for any other event.
func LinkPaid(body []byte) (userID string, p wallet.VerifiedPayment, ok bool, err error) {
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", wallet.VerifiedPayment{}, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if ev.Event != "payment_link.paid" {
		return "", wallet.VerifiedPayment{}, false, nil
	}
	e := ev.Payload.PaymentLink.Entity
	userID = e.Notes["user_id"]
	if e.ID == "" || userID == "" || e.AmountPaid <= 0 {
		return "", wallet.VerifiedPayment{}, false, ErrInvalidArgument
	}
	return userID, wallet.VerifiedPayment{PaymentID: e.ID, AmountMinor: e.AmountPaid, Success: true}, true, nil
}
