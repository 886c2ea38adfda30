package httpapi

import (
	"errors"
	"net/http"

	"mentorship-platform/internal/payments"
	"mentorship-platform/internal/wallet"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// --- Wallet ---

func (h Handlers) GetWallet(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	w, err := h.Wallet.Balance(c.Request.Context(), id)
	if errors.Is(err, wallet.ErrNotFound) {
		w, err = h.Wallet.Open(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h Handlers) MyTransactions(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	txs, err := h.Wallet.Transactions(c.Request.Context(), id, queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// UserTransactions lists another user's ledger. RBAC: admin.
func (h Handlers) UserTransactions(c *gin.Context) {
	txs, err := h.Wallet.Transactions(c.Request.Context(), c.Param("user_id"), queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

type rechargeRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required,gt=0"`
	Mobile      string `json:"mobile"`
}

// CreateRecharge opens a gateway payment link for a wallet top-up.
func (h Handlers) CreateRecharge(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req rechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	a, err := h.Accounts.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	ref, err := utils.PrefixedID(wallet.PrefixRecharge, 20)
	if err != nil {
		writeError(c, err)
		return
	}
	link, err := h.Payments.CreateLink(ctx, payments.LinkRequest{
		AmountMinor: req.AmountMinor,
		Name:        a.Name,
		Email:       a.Email,
		Mobile:      req.Mobile,
		CallbackURL: h.RechargeCallbackURL,
		Reference:   ref,
		UserID:      a.ID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment link generated", "link": link})
}

// VerifyRecharge settles a payment link after the gateway redirect. When the
// redirect signature is present it must verify.
func (h Handlers) VerifyRecharge(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	linkID := c.Param("link_id")
	if sig := c.Query("razorpay_signature"); sig != "" {
		err := h.Payments.CheckCallback(
			linkID,
			c.Query("razorpay_payment_link_reference_id"),
			c.Query("razorpay_payment_link_status"),
			c.Query("razorpay_payment_id"),
			sig,
		)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	ctx := c.Request.Context()
	p, err := h.Payments.VerifyLink(ctx, linkID)
	if err != nil {
		writeError(c, err)
		return
	}
	tx, err := h.Wallet.Recharge(ctx, id, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": p.Success, "transaction": tx})
}

// RazorpayWebhook credits a wallet from a signed payment_link.paid event.
// Replays are absorbed by the ledger's payment id check.
func (h Handlers) RazorpayWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeBindError(c, err)
		return
	}
	if err := payments.CheckWebhook(body, c.GetHeader("X-Razorpay-Signature"), h.WebhookSecret); err != nil {
		writeError(c, err)
		return
	}
	userID, p, ok, err := payments.LinkPaid(body)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	tx, err := h.Wallet.Recharge(c.Request.Context(), userID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	logger.FromGin(c).Info("webhook recharge applied", "user_id", userID, "transaction_id", tx.TransactionID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Mentor wallet ---

func (h Handlers) MentorWalletHistory(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	entries, err := h.MentorWallet.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h Handlers) MentorEarnings(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	e, err := h.MentorWallet.Earnings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// AdminMentorWallet is the platform-wide revenue feed. RBAC: admin.
func (h Handlers) AdminMentorWallet(c *gin.Context) {
	entries, err := h.MentorWallet.AdminHistory(c.Request.Context(), queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
