package main

import (
	"context"
	"net/http"
	"time"

	"mentorship-platform/internal/httpapi"
	"mentorship-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, ready func(ctx context.Context) error) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Gateway webhooks authenticate by signature, not token.
	r.POST("/webhooks/razorpay", h.RazorpayWebhook)

	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)

	anyone := rbac.RequireAnyKind(rbac.KindUser, rbac.KindMentor)
	users := rbac.RequireAnyKind(rbac.KindUser)
	mentors := rbac.RequireAnyKind(rbac.KindMentor)

	v1.GET("/me", h.Me)
	v1.POST("/me/deactivate", anyone, h.Deactivate)
	v1.GET("/presence/ws", mentors, h.PresenceSocket)

	// WALLET routes
	w := v1.Group("/wallet", users)
	{
		w.GET("", h.GetWallet)
		w.GET("/transactions", h.MyTransactions)
		w.POST("/recharge", h.CreateRecharge)
		w.GET("/recharge/:link_id", h.VerifyRecharge)
	}

	// Public mentor catalog
	catalog := v1.Group("/mentors/:mentor_id", anyone)
	{
		catalog.GET("/rates", h.MentorRates)
		catalog.GET("/slots", h.AvailableSlots)
		catalog.GET("/packages", h.MentorTemplates)
		catalog.GET("/quote", users, h.Quote)
	}

	// BOOKING routes
	v1.POST("/bookings", users, h.Book)

	// PACKAGE routes (user side)
	pk := v1.Group("/packages")
	{
		pk.GET("", users, h.MyPackages)
		pk.POST("/:package_id/purchase", users, h.PurchaseTemplate)
		pk.GET("/:package_id/summary", users, h.PackageSummary)
		pk.POST("/:package_id/chat-support", users, h.ActivateChatSupport)
		pk.POST("/:package_id/support-session", users, h.StartSupportSession)
	}
	v1.GET("/chat-support", anyone, h.ChatSupport)

	// SESSION routes
	s := v1.Group("/sessions", anyone)
	{
		s.GET("", h.MySessions)
		s.GET("/:session_id", h.GetSession)
		s.POST("/:session_id/join", h.JoinSession)
		s.POST("/:session_id/accept", mentors, h.AcceptSession)
		s.POST("/:session_id/reject", mentors, h.RejectSession)
		s.POST("/:session_id/complete", h.CompleteSession)
		s.POST("/:session_id/end", h.EndSession)
		s.GET("/:session_id/recording", h.SessionRecording)
		s.GET("/:session_id/messages", h.Messages)
		s.POST("/:session_id/messages", h.SendMessage)
	}

	// ANONYMOUS matchmaking
	rant := v1.Group("/rant", anyone)
	{
		rant.POST("", users, h.CreateRant)
		rant.GET("/active", users, h.ActiveRants)
		rant.GET("/:anon_id", h.RantStatus)
		rant.POST("/:anon_id/accept", mentors, h.AcceptRant)
		rant.POST("/:anon_id/reject", mentors, h.RejectRant)
		rant.POST("/:anon_id/end", h.EndRant)
	}

	// GROUP sessions (user side)
	g := v1.Group("/group-sessions", anyone)
	{
		g.GET("", h.ScheduledGroupSessions)
		g.GET("/room/:room_id", h.GroupSessionByRoom)
		g.POST("/:group_id/book", users, h.BookGroupSession)
	}

	// MENTOR routes
	m := v1.Group("/mentor", mentors)
	{
		m.PUT("/rates", h.SetRate)

		m.POST("/schedules", h.CreateSlots)
		m.GET("/schedules", h.MySchedules)
		m.DELETE("/schedules/:schedule_id", h.DeleteSchedule)
		m.PATCH("/slots/:slot_id", h.UpdateSlot)
		m.DELETE("/slots/:slot_id", h.DeleteSlot)
		m.POST("/slots/:slot_id/confirm", h.ConfirmSlot)
		m.POST("/slots/:slot_id/cancel", h.CancelSlot)

		m.POST("/packages", h.CreateTemplate)
		m.GET("/packages", h.MyTemplates)
		m.PATCH("/packages/:package_id", h.UpdateTemplate)
		m.DELETE("/packages/:package_id", h.DeleteTemplate)

		m.POST("/group-sessions", h.CreateGroupSession)
		m.GET("/group-sessions", h.MyGroupSessions)
		m.PATCH("/group-sessions/:group_id", h.UpdateGroupSession)
		m.DELETE("/group-sessions/:group_id", h.DeleteGroupSession)

		m.GET("/wallet", h.MentorWalletHistory)
		m.GET("/wallet/earnings", h.MentorEarnings)
	}

	// ADMIN routes
	admin := v1.Group("/admin", rbac.RequireAnyKind(rbac.KindAdmin))
	{
		admin.POST("/accounts", h.CreateAccount)
		admin.PUT("/accounts/:account_id/block", h.SetBlocked)
		admin.POST("/accounts/:account_id/deactivate", h.Deactivate)
		admin.POST("/accounts/:account_id/reactivate", h.Reactivate)
		admin.GET("/wallets/:user_id/transactions", h.UserTransactions)
		admin.GET("/mentor-wallet", h.AdminMentorWallet)
		admin.POST("/packages/:package_id/extend-support", h.ExtendChatSupport)
	}
}
