package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"barbershop-booking-backend/internal/model"
	"barbershop-booking-backend/internal/store"
)

// Job is a new-booking notification task: a confirmation email to the
// customer (when an address was supplied) and a web push to every
// subscribed operator browser.
type Job struct {
	Booking model.Booking
}

// WorkerPool consumes the notification queue. Delivery is best-effort: a
// failed email or push is logged and dropped, never retried, and never
// fails the booking that produced it.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	email   EmailSender
	push    PushSender
}

// NewWorkerPool creates a pool of size workers over a bounded queue.
// email may be nil when confirmation email is disabled; webpushOptions may
// be nil when no VAPID keys are configured.
func NewWorkerPool(size, queueSize int, st store.Store, webpushOptions *webpush.Options, email EmailSender) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, queueSize),
		store:   st,
		webpush: webpushOptions,
		email:   email,
		push:    &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, job)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job without blocking the caller. A full queue drops
// the job: notifications are advisory, bookings are not.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		log.Printf("notification queue full, dropping job for booking %s", job.Booking.ID)
	}
}

func (wp *WorkerPool) process(ctx context.Context, job Job) {
	wp.sendConfirmationEmail(job.Booking)
	wp.sendOperatorPushes(ctx, job.Booking)
}

func (wp *WorkerPool) sendConfirmationEmail(b model.Booking) {
	if wp.email == nil || b.CustomerEmail == "" {
		return
	}

	subject := "Your booking is confirmed"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your %s appointment is booked for <b>%s</b> at <b>%s</b>.</p>"+
			"<p>Booking reference: %s</p>",
		b.CustomerName, b.Service, b.Date, b.Time, b.ID,
	)
	if err := wp.email.Send(b.CustomerEmail, subject, body); err != nil {
		log.Printf("failed to send confirmation email for booking %s: %v", b.ID, err)
	}
}

func (wp *WorkerPool) sendOperatorPushes(ctx context.Context, b model.Booking) {
	if wp.webpush == nil {
		return
	}

	subscriptions, err := wp.store.ListSubscriptions(ctx)
	if err != nil {
		log.Printf("failed to list push subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	message := fmt.Sprintf("New booking: %s, %s on %s at %s", b.CustomerName, b.Service, b.Date, b.Time)
	for _, sub := range subscriptions {
		wp.sendPush(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.push.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("failed to push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("push subscription %s is expired, deleting", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
