package api

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"barbershop-booking-backend/internal/booking"
	"barbershop-booking-backend/internal/chat"
	"barbershop-booking-backend/internal/notification"
	"barbershop-booking-backend/internal/store"
	"barbershop-booking-backend/internal/ws"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	svc     *booking.Service
	hub     *ws.Hub
	pool    *notification.WorkerPool
	chat    *chat.Client
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(st store.Store, svc *booking.Service, hub *ws.Hub, pool *notification.WorkerPool, chatClient *chat.Client, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   st,
		svc:     svc,
		hub:     hub,
		pool:    pool,
		chat:    chatClient,
		webpush: webpushOptions,
	}
}

// broadcastState pushes a fresh {slots, bookings} snapshot to every
// dashboard client. It runs off the request goroutine so the triggering
// mutation never waits on fan-out.
func (h *Handler) broadcastState() {
	if h.hub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		snapshot, err := h.svc.Snapshot(ctx)
		if err != nil {
			log.Printf("failed to build broadcast snapshot: %v", err)
			return
		}
		h.hub.Broadcast(snapshot)
	}()
}
