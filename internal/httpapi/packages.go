package httpapi

import (
	"net/http"
	"time"

	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// --- Packages ---

type templateRequest struct {
	CategoryID      string     `json:"category_id" binding:"required"`
	Type            string     `json:"type" binding:"required,onetoone"`
	TotalSessions   int        `json:"total_sessions" binding:"required,gt=0"`
	PriceMinor      int64      `json:"price_minor" binding:"gte=0"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,gt=0"`
	ExpiryDate      *time.Time `json:"expiry_date"`
}

// CreateTemplate publishes a purchasable package for the calling mentor.
func (h Handlers) CreateTemplate(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Packages.Create(c.Request.Context(), packages.NewPackage{
		MentorID:        id,
		CategoryID:      req.CategoryID,
		Type:            callType(req.Type),
		TotalSessions:   req.TotalSessions,
		PriceMinor:      req.PriceMinor,
		DurationMinutes: req.DurationMinutes,
		ExpiryDate:      req.ExpiryDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h Handlers) MyTemplates(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Packages.ListMentorTemplates(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

func (h Handlers) MentorTemplates(c *gin.Context) {
	out, err := h.Packages.ListMentorTemplates(c.Request.Context(), c.Param("mentor_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

type templatePatchRequest struct {
	Type            *string `json:"type" binding:"omitempty,onetoone"`
	TotalSessions   *int    `json:"total_sessions" binding:"omitempty,gt=0"`
	PriceMinor      *int64  `json:"price_minor" binding:"omitempty,gte=0"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,gt=0"`
	CategoryID      *string `json:"category_id"`
}

func (h Handlers) UpdateTemplate(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req templatePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	patch := packages.TemplatePatch{
		TotalSessions:   req.TotalSessions,
		PriceMinor:      req.PriceMinor,
		DurationMinutes: req.DurationMinutes,
		CategoryID:      req.CategoryID,
	}
	if req.Type != nil {
		t := callType(*req.Type)
		patch.Type = &t
	}
	p, err := h.Packages.UpdateTemplate(c.Request.Context(), id, c.Param("package_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) DeleteTemplate(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Packages.DeleteTemplate(c.Request.Context(), id, c.Param("package_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) PurchaseTemplate(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	p, err := h.Packages.PurchaseTemplate(c.Request.Context(), id, c.Param("package_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// MyPackages lists the caller's active packages, optionally for one call type.
func (h Handlers) MyPackages(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var t calls.Type
	if v := c.Query("call_type"); v != "" {
		parsed, err := calls.ParseType(v)
		if err != nil {
			writeError(c, err)
			return
		}
		t = parsed
	}
	out, err := h.Packages.ListUserPackages(c.Request.Context(), id, t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

func (h Handlers) PackageSummary(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	s, err := h.Packages.Summary(c.Request.Context(), id, c.Param("package_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) ActivateChatSupport(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	p, err := h.Packages.ActivateChatSupport(c.Request.Context(), id, c.Param("package_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ChatSupport lists open support windows from the caller's side.
func (h Handlers) ChatSupport(c *gin.Context) {
	id, kind, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Packages.ListChatSupport(c.Request.Context(), id, kind == rbac.KindMentor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

type extendRequest struct {
	Days int `json:"days" binding:"omitempty,gt=0,lte=90"`
}

// ExtendChatSupport pushes a support window out. RBAC: admin.
func (h Handlers) ExtendChatSupport(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.Packages.ExtendChatSupport(c.Request.Context(), c.Param("package_id"), req.Days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
