package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/auth"
	"mentorship-platform/internal/booking"
	"mentorship-platform/internal/groupsessions"
	"mentorship-platform/internal/matchmaking"
	"mentorship-platform/internal/mentorwallet"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/payments"
	"mentorship-platform/internal/presence"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/rbac"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/internal/wallet"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Accounts *accounts.Service

	Wallet       *wallet.Service
	Payments     *payments.Gateway
	MentorWallet *mentorwallet.Service
	Pricing      *pricing.Service

	Booking     *booking.Service
	Packages    *packages.Service
	Schedule    *schedule.Service
	Sessions    *sessions.Service
	Matchmaking *matchmaking.Service
	Groups      *groupsessions.Service
	Presence    *presence.Hub

	// RechargeCallbackURL is handed to the gateway when a recharge link is created.
	RechargeCallbackURL string
	WebhookSecret       string
}

// principal reads the authenticated caller. It writes the 401 itself.
func principal(c *gin.Context) (id, kind string, ok bool) {
	id, err := auth.PrincipalID(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return "", "", false
	}
	kind, _ = auth.Kind(c.Request.Context())
	return id, kind, true
}

// sessionRole is the side of a session a principal kind acts on.
func sessionRole(kind string) sessions.Role {
	if kind == rbac.KindMentor {
		return sessions.RoleMentor
	}
	return sessions.RoleUser
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT token pair.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	a, err := h.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), a.ID, string(a.Kind))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken, "account": a})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	now := time.Now()
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "error": "invalid refresh token"})
		return
	}
	// Refresh tokens carry no kind; reload it so a changed or blocked account is seen.
	a, err := h.Accounts.Get(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.Blocked {
		writeError(c, accounts.ErrBlocked)
		return
	}
	pair, err := h.Auth.IssuePair(now, a.ID, string(a.Kind))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h Handlers) Me(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	a, err := h.Accounts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Accounts ---

type createAccountRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=user mentor admin"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Verified bool   `json:"verified"`
}

// CreateAccount provisions an account. RBAC: admin.
func (h Handlers) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	a, err := h.Accounts.Create(c.Request.Context(), accounts.NewAccount{
		Kind:     accounts.Kind(req.Kind),
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Verified: req.Verified,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type blockRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

func (h Handlers) SetBlocked(c *gin.Context) {
	actor, _, ok := principal(c)
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.Accounts.SetBlocked(c.Request.Context(), actor, c.Param("account_id"), *req.Blocked); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "blocked": *req.Blocked})
}

type deactivateRequest struct {
	Type             string     `json:"type" binding:"required,oneof=temporary permanent"`
	Reason           string     `json:"reason" binding:"required"`
	ReactivationDate *time.Time `json:"reactivation_date"`
}

// Deactivate deactivates the caller, or the :account_id target when an admin
// calls it.
func (h Handlers) Deactivate(c *gin.Context) {
	actor, _, ok := principal(c)
	if !ok {
		return
	}
	target := c.Param("account_id")
	if target == "" {
		target = actor
	}
	var req deactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	var err error
	if accounts.DeactivationType(req.Type) == accounts.DeactivationPermanent {
		err = h.Accounts.DeactivatePermanently(ctx, actor, target, req.Reason)
	} else {
		err = h.Accounts.DeactivateTemporarily(ctx, actor, target, req.Reason, req.ReactivationDate)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated", "type": req.Type})
}

func (h Handlers) Reactivate(c *gin.Context) {
	actor, _, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Accounts.Reactivate(c.Request.Context(), actor, c.Param("account_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// PresenceSocket upgrades to the mentor notification websocket.
func (h Handlers) PresenceSocket(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	h.Presence.Serve(c, id)
}
