package httpapi

import (
	"net/http"
	"strconv"

	"mentorship-platform/internal/booking"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/schedule"

	"github.com/gin-gonic/gin"
)

// --- Bookings ---

type bookRequest struct {
	MentorID        string `json:"mentor_id" binding:"required"`
	CallType        string `json:"call_type" binding:"required,onetoone"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0,lte=240"`
	Kind            string `json:"kind" binding:"required,oneof=instant slot"`
	SlotID          string `json:"slot_id" binding:"required_if=Kind slot"`
	PackageID       string `json:"package_id"`
}

// Book settles a booking for the calling user.
func (h Handlers) Book(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.Booking.Book(c.Request.Context(), booking.Request{
		CallerID:        id,
		MentorID:        req.MentorID,
		CallType:        callType(req.CallType),
		DurationMinutes: req.DurationMinutes,
		Kind:            booking.Kind(req.Kind),
		SlotID:          req.SlotID,
		PackageID:       req.PackageID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) ConfirmSlot(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	conf, err := h.Booking.ConfirmSlot(c.Request.Context(), id, c.Param("slot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (h Handlers) CancelSlot(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	ref, err := h.Booking.CancelSlot(c.Request.Context(), id, c.Param("slot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// --- Pricing ---

type setRateRequest struct {
	CallType       string `json:"call_type" binding:"required,onetoone"`
	PerMinuteMinor int64  `json:"per_minute_minor" binding:"required,gt=0"`
}

func (h Handlers) SetRate(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	r, err := h.Pricing.SetRate(c.Request.Context(), id, callType(req.CallType), req.PerMinuteMinor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h Handlers) MentorRates(c *gin.Context) {
	rates, err := h.Pricing.Rates(c.Request.Context(), c.Param("mentor_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// Quote previews what a booking would cost the caller right now.
func (h Handlers) Quote(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	t, err := calls.ParseType(c.Query("call_type"))
	if err != nil {
		writeError(c, err)
		return
	}
	minutes, err := strconv.Atoi(c.Query("duration_minutes"))
	if err != nil || minutes <= 0 {
		writeError(c, pricing.ErrInvalidQuoteReq)
		return
	}
	ctx := c.Request.Context()
	mentorID := c.Param("mentor_id")
	req := pricing.QuoteRequest{UserID: id, MentorID: mentorID, CallType: t, DurationMinutes: minutes}
	if pkgID := c.Query("package_id"); pkgID != "" {
		p, err := h.Packages.ForBooking(ctx, id, mentorID, pkgID, t)
		if err != nil {
			writeError(c, err)
			return
		}
		req.Package = &pricing.PackageState{ID: p.ID, RemainingSessions: p.RemainingSessions}
	}
	q, err := h.Pricing.Quote(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount_minor": q.AmountMinor})
}

// --- Schedule ---

type slotInput struct {
	Time            string `json:"time" binding:"required"`
	CallType        string `json:"call_type" binding:"required,onetoone"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0"`
}

type createSlotsRequest struct {
	Date  string      `json:"date" binding:"required,datetime=2006-01-02"`
	Slots []slotInput `json:"slots" binding:"required,min=1,dive"`
}

func (h Handlers) CreateSlots(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req createSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in := make([]schedule.NewSlot, 0, len(req.Slots))
	for _, s := range req.Slots {
		in = append(in, schedule.NewSlot{Time: s.Time, CallType: callType(s.CallType), DurationMinutes: s.DurationMinutes})
	}
	sch, err := h.Schedule.CreateSlots(c.Request.Context(), id, req.Date, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sch)
}

func (h Handlers) MySchedules(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Schedule.ListMine(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

// AvailableSlots lists a mentor's schedules from today onward.
func (h Handlers) AvailableSlots(c *gin.Context) {
	out, err := h.Schedule.ListAvailableForMentor(c.Request.Context(), c.Param("mentor_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

func (h Handlers) DeleteSchedule(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Schedule.DeleteSchedule(c.Request.Context(), id, c.Param("schedule_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type slotPatchRequest struct {
	Time            *string `json:"time"`
	CallType        *string `json:"call_type" binding:"omitempty,onetoone"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,gt=0"`
	Status          *string `json:"status" binding:"omitempty,oneof=available rejected"`
}

func (h Handlers) UpdateSlot(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	var req slotPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	patch := schedule.SlotPatch{Time: req.Time, DurationMinutes: req.DurationMinutes}
	if req.CallType != nil {
		t := callType(*req.CallType)
		patch.CallType = &t
	}
	if req.Status != nil {
		st := schedule.SlotStatus(*req.Status)
		patch.Status = &st
	}
	ref, err := h.Schedule.UpdateSlot(c.Request.Context(), id, c.Param("slot_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h Handlers) DeleteSlot(c *gin.Context) {
	id, _, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Schedule.DeleteSlot(c.Request.Context(), id, c.Param("slot_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
