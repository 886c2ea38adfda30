package httpapi

import (
	"errors"
	"net/http"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/auth"
	"mentorship-platform/internal/booking"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/groupsessions"
	"mentorship-platform/internal/matchmaking"
	"mentorship-platform/internal/mentorwallet"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/payments"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/internal/wallet"
	"mentorship-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is walked in order; the first errors.Is match wins.
var errorTable = []errorMapping{
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "unauthenticated"},

	{wallet.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},

	{schedule.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{packages.ErrPackageExhausted, http.StatusConflict, "package_exhausted"},
	{packages.ErrPackageNotActive, http.StatusConflict, "package_not_active"},
	{packages.ErrChatSupportActive, http.StatusConflict, "chat_support_active"},
	{booking.ErrBookingInProgress, http.StatusConflict, "booking_in_progress"},
	{wallet.ErrNotFirstDebit, http.StatusConflict, "booking_in_progress"},
	{groupsessions.ErrAlreadyBooked, http.StatusConflict, "already_booked"},
	{groupsessions.ErrSessionFull, http.StatusConflict, "session_full"},
	{groupsessions.ErrNotScheduled, http.StatusConflict, "session_not_scheduled"},
	{matchmaking.ErrActiveSessionExists, http.StatusConflict, "active_session_exists"},
	{sessions.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{sessions.ErrSupportExpired, http.StatusConflict, "support_expired"},
	{sessions.ErrSupportNotActive, http.StatusConflict, "support_not_active"},
	{accounts.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{accounts.ErrNotDeactivated, http.StatusConflict, "not_deactivated"},

	{accounts.ErrBlocked, http.StatusForbidden, "account_blocked"},
	{accounts.ErrDeactivated, http.StatusForbidden, "account_deactivated"},
	{schedule.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{packages.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{sessions.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{matchmaking.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{groupsessions.ErrUnauthorized, http.StatusForbidden, "unauthorized"},

	{accounts.ErrNotFound, http.StatusNotFound, "not_found"},
	{wallet.ErrNotFound, http.StatusNotFound, "not_found"},
	{pricing.ErrRateNotFound, http.StatusNotFound, "not_found"},
	{packages.ErrNotFound, http.StatusNotFound, "not_found"},
	{schedule.ErrNotFound, http.StatusNotFound, "not_found"},
	{sessions.ErrNotFound, http.StatusNotFound, "not_found"},
	{sessions.ErrRecordingNotFound, http.StatusNotFound, "not_found"},
	{matchmaking.ErrNotFound, http.StatusNotFound, "not_found"},
	{groupsessions.ErrNotFound, http.StatusNotFound, "not_found"},
	{mentorwallet.ErrNotFound, http.StatusNotFound, "not_found"},

	{accounts.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{wallet.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{pricing.ErrInvalidQuoteReq, http.StatusBadRequest, "validation_error"},
	{packages.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{packages.ErrTypeMismatch, http.StatusBadRequest, "validation_error"},
	{schedule.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{sessions.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{matchmaking.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{groupsessions.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{mentorwallet.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{booking.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{payments.ErrInvalidArgument, http.StatusBadRequest, "validation_error"},
	{payments.ErrBadSignature, http.StatusBadRequest, "validation_error"},
	{payments.ErrUnexpectedAmount, http.StatusBadRequest, "validation_error"},
	{calls.ErrUnknownType, http.StatusBadRequest, "validation_error"},

	{payments.ErrGatewayDisabled, http.StatusServiceUnavailable, "payments_unavailable"},
}

// writeError is the single place domain errors become HTTP responses.
// Unknown errors are logged and surface as a bare 500.
func writeError(c *gin.Context, err error) {
	var noMentor *matchmaking.NoMentorError
	if errors.As(err, &noMentor) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": "no_mentor_available", "error": noMentor.Message()})
		return
	}
	if errors.Is(err, matchmaking.ErrNoMentorAvailable) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": "no_mentor_available", "error": err.Error()})
		return
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{"code": m.code, "error": m.err.Error()})
			return
		}
	}
	logger.FromGin(c).Error("unhandled error", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "internal error"})
}

// writeBindError reports a request body or query that failed binding.
func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
}
