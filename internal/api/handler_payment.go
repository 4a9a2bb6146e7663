package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type klarnaRequest struct {
	Service      string  `json:"service"`
	CustomerName string  `json:"customer_name"`
	Amount       float64 `json:"amount"`
	BookingID    string  `json:"booking_id"`
}

// PayWithKlarna handles POST /pay/klarna. Payment is not actually
// collected here; the endpoint echoes an order reference for the chat
// page, and the operator marks the booking paid from the dashboard.
func (h *Handler) PayWithKlarna(c *gin.Context) {
	var req klarnaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Service == "" || req.CustomerName == "" || req.Amount == 0 || req.BookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": fmt.Sprintf("ORDER-%s", req.BookingID)})
}
