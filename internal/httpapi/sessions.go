package httpapi

import (
	"context"
	"net/http"
	"time"

	"mentorship-platform/internal/groupsessions"
	"mentorship-platform/internal/sessions"

	"github.com/gin-gonic/gin"
)

// --- Sessions ---

func (h Handlers) MySessions(c *gin.Context) {
	id, kind, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Sessions.ListMine(c.Request.Context(), id, sessionRole(kind))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h Handlers) GetSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	s, err := h.Sessions.GetForParticipant(c.Request.Context(), c.Param("session_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) JoinSession(c *gin.Context) {
	id, kind, ok := principal(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Join(c.Request.Context(), c.Param("session_id"), id, sessionRole(kind))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// sessionAction adapts a (ctx, sessionID, principalID) call to a handler.
func (h Handlers) sessionAction(c *gin.Context, fn func(ctx context.Context, id, principalID string) (sessions.Session, error)) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	s, err := fn(c.Request.Context(), c.Param("session_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) AcceptSession(c *gin.Context)    { h.sessionAction(c, h.Sessions.Accept) }
func (h Handlers) RejectSession(c *gin.Context)    { h.sessionAction(c, h.Sessions.Reject) }
func (h Handlers) CompleteSession(c *gin.Context)  { h.sessionAction(c, h.Sessions.Complete) }
func (h Handlers) SessionRecording(c *gin.Context) { h.sessionAction(c, h.Sessions.GetRecording) }

// EndSession closes a session from either side.
func (h Handlers) EndSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s, err := h.Sessions.GetForParticipant(ctx, c.Param("session_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Sessions.End(ctx, s)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// StartSupportSession opens or resumes the chat-support conversation of a package.
func (h Handlers) StartSupportSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	s, existing, err := h.Sessions.StartSupportSession(c.Request.Context(), id, c.Param("package_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"session": s, "existing": existing})
}

type messageRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	m, err := h.Sessions.SendMessage(c.Request.Context(), c.Param("session_id"), id, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) Messages(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Sessions.Messages(c.Request.Context(), c.Param("session_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// --- Anonymous matchmaking ---

type rantRequest struct {
	SessionType string `json:"session_type" binding:"required,onetoone"`
}

func (h Handlers) CreateRant(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req rantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	m, err := h.Matchmaking.Create(c.Request.Context(), id, callType(req.SessionType))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) ActiveRants(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Matchmaking.ListActive(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// rantAction adapts a matchmaking call keyed by anonymous id.
func (h Handlers) rantAction(c *gin.Context, fn func(ctx context.Context, anonID, principalID string) (sessions.Session, error)) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	s, err := fn(c.Request.Context(), c.Param("anon_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) RantStatus(c *gin.Context) { h.rantAction(c, h.Matchmaking.Status) }
func (h Handlers) AcceptRant(c *gin.Context) { h.rantAction(c, h.Matchmaking.Accept) }
func (h Handlers) RejectRant(c *gin.Context) { h.rantAction(c, h.Matchmaking.Reject) }
func (h Handlers) EndRant(c *gin.Context)    { h.rantAction(c, h.Matchmaking.End) }

// --- Group sessions ---

type groupSessionRequest struct {
	CategoryID  string    `json:"category_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	SessionType string    `json:"session_type" binding:"required,onetoone"`
	PriceMinor  int64     `json:"price_minor" binding:"gte=0"`
	Capacity    int       `json:"capacity" binding:"required,gt=0"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	JoinLink    string    `json:"join_link" binding:"omitempty,url"`
}

func (h Handlers) CreateGroupSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req groupSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	g, err := h.Groups.Create(c.Request.Context(), id, groupsessions.NewGroupSession{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		SessionType: req.SessionType,
		PriceMinor:  req.PriceMinor,
		Capacity:    req.Capacity,
		ScheduledAt: req.ScheduledAt,
		JoinLink:    req.JoinLink,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h Handlers) MyGroupSessions(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Groups.ListByMentor(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_sessions": out})
}

func (h Handlers) ScheduledGroupSessions(c *gin.Context) {
	out, err := h.Groups.ListScheduled(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_sessions": out})
}

func (h Handlers) GroupSessionByRoom(c *gin.Context) {
	g, err := h.Groups.GetByRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) BookGroupSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	g, err := h.Groups.Book(c.Request.Context(), c.Param("group_id"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type groupPatchRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	PriceMinor  *int64     `json:"price_minor" binding:"omitempty,gte=0"`
	Capacity    *int       `json:"capacity" binding:"omitempty,gt=0"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *string    `json:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
	JoinLink    *string    `json:"join_link" binding:"omitempty,url"`
}

func (h Handlers) UpdateGroupSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req groupPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p := groupsessions.Patch{
		Title:       req.Title,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Capacity:    req.Capacity,
		ScheduledAt: req.ScheduledAt,
		JoinLink:    req.JoinLink,
	}
	if req.Status != nil {
		st := groupsessions.Status(*req.Status)
		p.Status = &st
	}
	g, err := h.Groups.Update(c.Request.Context(), id, c.Param("group_id"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) DeleteGroupSession(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Groups.Delete(c.Request.Context(), id, c.Param("group_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
