package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"barbershop-booking-backend/internal/booking"
)

// GetSlots handles GET /api/slots: available slots grouped by date.
func (h *Handler) GetSlots(c *gin.Context) {
	slots, err := h.svc.AvailableSlots(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve slots"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

type addSlotRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// AddSlot handles POST /api/slots.
func (h *Handler) AddSlot(c *gin.Context) {
	var req addSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.svc.AddSlot(c.Request.Context(), req.Date, req.Time)
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, booking.ErrSlotExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot already exists"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcastState()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteSlot handles DELETE /api/slots?date=...&time=...
func (h *Handler) DeleteSlot(c *gin.Context) {
	date := c.Query("date")
	timeOfDay := c.Query("time")

	err := h.svc.DeleteSlot(c.Request.Context(), date, timeOfDay)
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcastState()
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
