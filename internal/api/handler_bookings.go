package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"barbershop-booking-backend/internal/booking"
)

// GetBookings handles GET /api/bookings.
func (h *Handler) GetBookings(c *gin.Context) {
	bookings, err := h.svc.Bookings(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bookings"})
		return
	}
	// The dashboard polls this as a websocket fallback; never cache it.
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, bookings)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	id := c.Param("id")

	err := h.svc.Cancel(c.Request.Context(), id)
	switch {
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcastState()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "booking_id": id})
}

// MarkBookingPaid handles POST /api/bookings/:id/paid.
func (h *Handler) MarkBookingPaid(c *gin.Context) {
	id := c.Param("id")

	err := h.svc.MarkPaid(c.Request.Context(), id)
	switch {
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcastState()
	c.JSON(http.StatusOK, gin.H{"status": "paid", "booking_id": id})
}
