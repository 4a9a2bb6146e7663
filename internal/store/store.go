package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barbershop-booking-backend/internal/model"
)

// Store defines the interface for all database operations. It is strictly
// row-level: cross-entity consistency (slot availability vs. booking
// status) is the booking service's job.
type Store interface {
	DB() *gorm.DB

	CreateSlot(ctx context.Context, slot *model.Slot) error
	GetSlot(ctx context.Context, date, timeOfDay string) (*model.Slot, error)
	ListSlots(ctx context.Context) ([]model.Slot, error)
	DeleteSlot(ctx context.Context, date, timeOfDay string) (bool, error)
	DeleteSlotByID(ctx context.Context, id int64) error
	SetSlotAvailability(ctx context.Context, date, timeOfDay string, available bool) error
	ReserveSlot(ctx context.Context, date, timeOfDay string) (bool, error)

	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
	DeleteBooking(ctx context.Context, id string) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) CreateSlot(ctx context.Context, slot *model.Slot) error {
	return s.db.WithContext(ctx).Create(slot).Error
}

// GetSlot returns the slot for the (date, time) pair, or nil when absent.
func (s *gormStore) GetSlot(ctx context.Context, date, timeOfDay string) (*model.Slot, error) {
	var slot model.Slot
	err := s.db.WithContext(ctx).
		Where("date = ? AND time = ?", date, timeOfDay).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *gormStore) ListSlots(ctx context.Context) ([]model.Slot, error) {
	var slots []model.Slot
	if err := s.db.WithContext(ctx).Order("date, time").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// DeleteSlot removes the slot for the (date, time) pair and reports
// whether a row was actually deleted.
func (s *gormStore) DeleteSlot(ctx context.Context, date, timeOfDay string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("date = ? AND time = ?", date, timeOfDay).
		Delete(&model.Slot{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) DeleteSlotByID(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&model.Slot{}, id).Error
}

func (s *gormStore) SetSlotAvailability(ctx context.Context, date, timeOfDay string, available bool) error {
	return s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("date = ? AND time = ?", date, timeOfDay).
		Update("available", available).Error
}

// ReserveSlot flips the slot for (date, time) to unavailable with a single
// conditional UPDATE. It reports true only when this call was the one that
// flipped the row, so concurrent reservations of the same slot cannot both
// succeed.
func (s *gormStore) ReserveSlot(ctx context.Context, date, timeOfDay string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("date = ? AND time = ? AND available = ?", date, timeOfDay, true).
		Update("available", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to reserve slot %s %s: %w", date, timeOfDay, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	return s.db.WithContext(ctx).Create(booking).Error
}

// GetBooking returns the booking with the given id, or nil when absent.
func (s *gormStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := s.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *gormStore) ListBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).Order("created_at").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *gormStore) ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *gormStore) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return s.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *gormStore) DeleteBooking(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Booking{}, "id = ?", id).Error
}

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
