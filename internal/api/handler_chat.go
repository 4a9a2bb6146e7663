package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"barbershop-booking-backend/internal/booking"
	"barbershop-booking-backend/internal/chat"
	"barbershop-booking-backend/internal/notification"
)

type chatRequest struct {
	Message string         `json:"message" binding:"required"`
	History []chat.Message `json:"history"`
}

// Chat handles POST /chat: one assistant turn. When the model's reply
// carries a complete booking intent, a booking attempt is made; otherwise
// the reply is relayed as-is. Provider failures surface as a generic
// error reply, never as a mutation.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	// Reaps expired slots and stale pending bookings before the prompt is
	// built, so the assistant never offers a slot that should be gone.
	slots, err := h.svc.AvailableSlots(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load slots"})
		return
	}

	reply, err := h.chat.Complete(ctx, req.Message, req.History, slots)
	if err != nil {
		log.Printf("chat completion error: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"status": "error",
			"reply":  "Sorry, something went wrong. Please try again.",
		})
		return
	}

	intent, ok := chat.ExtractIntent(reply)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "reply": reply})
		return
	}

	created, err := h.svc.Attempt(ctx, booking.AttemptRequest{
		CustomerName:  intent.CustomerName,
		CustomerEmail: intent.CustomerEmail,
		Service:       intent.Service,
		Date:          intent.Date,
		Time:          intent.Time,
	})
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable):
		c.JSON(http.StatusOK, gin.H{
			"status": "unavailable",
			"reply":  "Sorry, that slot is not available.",
		})
		return
	case errors.Is(err, booking.ErrInvalidInput):
		c.JSON(http.StatusOK, gin.H{
			"status": "invalid",
			"reply":  "That date or time doesn't look right. Could you double-check it?",
		})
		return
	case err != nil:
		log.Printf("booking attempt error: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"status": "error",
			"reply":  "Sorry, something went wrong. Please try again.",
		})
		return
	}

	h.broadcastState()
	if h.pool != nil {
		h.pool.Dispatch(notification.Job{Booking: *created})
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "reserved",
		"reply": fmt.Sprintf(
			"Reserved! Booking ID: %s for %s at %s on %s.<br><br>Pay now?",
			created.ID, created.CustomerName, created.Time, created.Date,
		),
		"booking_id": created.ID,
	})
}

type intentRequest struct {
	Message string `json:"message"`
}

// DetectIntent handles POST /intent: a coarse book-vs-other classifier
// used by the chat page to decide whether to open the booking flow.
func (h *Handler) DetectIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusOK, gin.H{"intent": "unknown"})
		return
	}

	intent, err := h.chat.ClassifyIntent(c.Request.Context(), req.Message)
	if err != nil {
		log.Printf("intent classification error: %v", err)
		c.JSON(http.StatusOK, gin.H{"intent": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": intent})
}
