package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barbershop-booking-backend/internal/model"
	"barbershop-booking-backend/internal/parse"
	"barbershop-booking-backend/internal/store"
)

// Operation failure modes, mapped to HTTP statuses by the API layer.
var (
	ErrInvalidInput    = errors.New("invalid date or time")
	ErrSlotExists      = errors.New("slot already exists")
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrNotFound        = errors.New("not found")
)

// Service keeps slot availability and booking status mutually consistent.
// It never caches: every operation re-reads current state, and the reaping
// passes run before any read or write that depends on availability.
type Service struct {
	store      store.Store
	pendingTTL time.Duration
	loc        *time.Location
	now        func() time.Time
}

// NewService creates a booking service. pendingTTL is how long a booking
// may sit in pending status before it is released.
func NewService(s store.Store, pendingTTL time.Duration) *Service {
	return &Service{
		store:      s,
		pendingTTL: pendingTTL,
		loc:        time.Local,
		now:        time.Now,
	}
}

// AttemptRequest carries a chat-derived booking intent. Date and Time are
// raw strings straight from the model's JSON and are normalized here.
type AttemptRequest struct {
	CustomerName  string
	CustomerEmail string
	Service       string
	Date          string
	Time          string
}

// BookingView is the read shape served to dashboards and chat clients.
type BookingView struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Service       string `json:"service"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}

// Snapshot is the consistent view pushed to dashboard clients after every
// mutation.
type Snapshot struct {
	Slots    map[string][]string `json:"slots"`
	Bookings []BookingView       `json:"bookings"`
}

// ReapExpiredSlots deletes every slot whose instant is at or before now,
// available or not. A slot in the past can never be booked; leaving it
// visible would confuse both the assistant and the dashboard.
func (s *Service) ReapExpiredSlots(ctx context.Context) error {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list slots for expiry: %w", err)
	}

	now := s.now()
	for _, slot := range slots {
		at, err := parse.Instant(slot.Date, slot.Time, s.loc)
		if err != nil {
			continue
		}
		if !at.After(now) {
			if err := s.store.DeleteSlotByID(ctx, slot.ID); err != nil {
				return fmt.Errorf("failed to delete expired slot %d: %w", slot.ID, err)
			}
		}
	}
	return nil
}

// ReapStaleBookings releases every pending booking that has outlived the
// pending TTL: the matching slot (when still present) becomes available
// again and the booking row is deleted. A created-at value that does not
// parse counts as stale, so a corrupt timestamp cannot pin a slot.
func (s *Service) ReapStaleBookings(ctx context.Context) error {
	pending, err := s.store.ListBookingsByStatus(ctx, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending bookings: %w", err)
	}

	now := s.now()
	for _, b := range pending {
		created, err := time.Parse(time.RFC3339, b.CreatedAt)
		if err != nil {
			created = now.Add(-s.pendingTTL - time.Hour)
		}
		if now.Sub(created) <= s.pendingTTL {
			continue
		}

		if err := s.store.SetSlotAvailability(ctx, b.Date, b.Time, true); err != nil {
			return fmt.Errorf("failed to release slot for stale booking %s: %w", b.ID, err)
		}
		if err := s.store.DeleteBooking(ctx, b.ID); err != nil {
			return fmt.Errorf("failed to delete stale booking %s: %w", b.ID, err)
		}
		log.Printf("reaped stale pending booking %s (%s %s)", b.ID, b.Date, b.Time)
	}
	return nil
}

// reap runs both cleanup passes; every availability-dependent operation
// starts here.
func (s *Service) reap(ctx context.Context) error {
	if err := s.ReapExpiredSlots(ctx); err != nil {
		return err
	}
	return s.ReapStaleBookings(ctx)
}

// AvailableSlots returns, after reaping, all available slots grouped by
// date into sorted, de-duplicated time lists.
func (s *Service) AvailableSlots(ctx context.Context) (map[string][]string, error) {
	if err := s.reap(ctx); err != nil {
		return nil, err
	}

	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string)
	for _, slot := range slots {
		if !slot.Available {
			continue
		}
		times := result[slot.Date]
		if len(times) > 0 && times[len(times)-1] == slot.Time {
			continue
		}
		result[slot.Date] = append(times, slot.Time)
	}
	for _, times := range result {
		sort.Strings(times)
	}
	return result, nil
}

// Bookings returns, after reaping stale bookings, all remaining bookings.
func (s *Service) Bookings(ctx context.Context) ([]BookingView, error) {
	if err := s.ReapStaleBookings(ctx); err != nil {
		return nil, err
	}

	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, BookingView{
			ID:            b.ID,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			Service:       b.Service,
			Date:          b.Date,
			Time:          b.Time,
			Status:        b.Status,
		})
	}
	return views, nil
}

// Attempt tries to book the slot matching the request. Reservation is a
// single conditional update at the store, so two concurrent attempts on
// the same (date, time) cannot both succeed. On any failure before the
// booking row exists, nothing is mutated (a reserved slot is released
// again if the row insert fails).
func (s *Service) Attempt(ctx context.Context, req AttemptRequest) (*model.Booking, error) {
	if err := s.reap(ctx); err != nil {
		return nil, err
	}

	date, err := parse.Date(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, req.Date)
	}
	timeOfDay, err := parse.TimeOfDay(req.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, req.Time)
	}
	if req.CustomerName == "" {
		return nil, fmt.Errorf("%w: missing customer name", ErrInvalidInput)
	}

	reserved, err := s.store.ReserveSlot(ctx, date, timeOfDay)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrSlotUnavailable
	}

	booking := &model.Booking{
		ID:            uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Service:       req.Service,
		Date:          date,
		Time:          timeOfDay,
		Status:        model.StatusPending,
		CreatedAt:     s.now().UTC().Format(time.RFC3339),
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		if relErr := s.store.SetSlotAvailability(ctx, date, timeOfDay, true); relErr != nil {
			log.Printf("failed to release slot %s %s after booking insert error: %v", date, timeOfDay, relErr)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

// Cancel marks the booking cancelled and, when the slot still exists,
// makes it available again. A deleted slot is never resurrected.
func (s *Service) Cancel(ctx context.Context, id string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}

	if err := s.store.UpdateBookingStatus(ctx, id, model.StatusCancelled); err != nil {
		return err
	}
	return s.store.SetSlotAvailability(ctx, booking.Date, booking.Time, true)
}

// MarkPaid transitions the booking to paid. The slot stays consumed.
func (s *Service) MarkPaid(ctx context.Context, id string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return s.store.UpdateBookingStatus(ctx, id, model.StatusPaid)
}

// AddSlot creates an available slot for the given date and time. Midnight
// is rejected: the upstream form submits "00:00" when no time was picked.
func (s *Service) AddSlot(ctx context.Context, rawDate, rawTime string) error {
	date, err := parse.Date(rawDate)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, rawDate)
	}
	timeOfDay, err := parse.TimeOfDay(rawTime)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, rawTime)
	}
	if timeOfDay == "00:00" {
		return fmt.Errorf("%w: please select a valid time", ErrInvalidInput)
	}

	existing, err := s.store.GetSlot(ctx, date, timeOfDay)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s %s", ErrSlotExists, date, timeOfDay)
	}

	err = s.store.CreateSlot(ctx, &model.Slot{Date: date, Time: timeOfDay, Available: true})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race against a concurrent add; the unique index is the
		// real guard.
		return fmt.Errorf("%w: %s %s", ErrSlotExists, date, timeOfDay)
	}
	return err
}

// DeleteSlot removes the slot for the given date and time.
func (s *Service) DeleteSlot(ctx context.Context, rawDate, rawTime string) error {
	date, err := parse.Date(rawDate)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, rawDate)
	}
	timeOfDay, err := parse.TimeOfDay(rawTime)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, rawTime)
	}

	deleted, err := s.store.DeleteSlot(ctx, date, timeOfDay)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: slot %s %s", ErrNotFound, date, timeOfDay)
	}
	return nil
}

// Snapshot produces the {slots, bookings} view handed to the change
// notifier after a mutation.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	slots, err := s.AvailableSlots(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Slots: slots, Bookings: bookings}, nil
}
