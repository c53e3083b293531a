package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expofloor/internal/booths"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Core reservation operations
	CreateReservation(ctx context.Context, reservation *Reservation) error
	GetReservationByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error

	// Exhibitor operations
	GetExhibitorReservations(ctx context.Context, exhibitorID string, limit, offset int) ([]Reservation, int64, error)

	// Startup reconciliation
	GetPendingReservations(ctx context.Context) ([]Reservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateReservation(ctx context.Context, reservation *Reservation) error {
	// Child rows ride the same transaction through the association.
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *repository) GetReservationByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).
		Preload("Booths").
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reservation %s: %w", id, booths.ErrNotFound)
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": at,
	}
	switch status {
	case StatusConfirmed:
		updates["confirmed_at"] = at
	case StatusCancelled, StatusExpired:
		updates["released_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&Reservation{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update reservation %s status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reservation %s: %w", id, booths.ErrNotFound)
	}
	return nil
}

func (r *repository) GetExhibitorReservations(ctx context.Context, exhibitorID string, limit, offset int) ([]Reservation, int64, error) {
	var reservations []Reservation
	var total int64

	query := r.db.WithContext(ctx).Model(&Reservation{}).Where("exhibitor_id = ?", exhibitorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Booths").
		Order("reserved_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reservations).Error
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

func (r *repository) GetPendingReservations(ctx context.Context) ([]Reservation, error) {
	var reservations []Reservation
	err := r.db.WithContext(ctx).
		Preload("Booths").
		Where("status = ?", StatusPending).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}
