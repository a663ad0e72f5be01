package seats

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateSeats inserts a batch of seats atomically. A duplicate
	// (event, section, row, label) fails the whole batch with a conflict.
	CreateSeats(ctx context.Context, seats []Seat) error
	// GetSeatsByIDs returns the seats that exist among ids, in canonical order
	GetSeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]Seat, error)
	// LoadSeats lists an event's seats in canonical order
	LoadSeats(ctx context.Context, eventID uuid.UUID, filter Filter) ([]Seat, error)
	CountSeats(ctx context.Context, eventID uuid.UUID, filter Filter) (int64, error)
	// CountByStatus aggregates seats per status; Value sums the resolved
	// price of the seats in each status.
	CountByStatus(ctx context.Context, eventID uuid.UUID, filter Filter) ([]StatusCount, error)
	// Transition performs a compare-and-set on the seat status
	Transition(ctx context.Context, t Transition) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSeats(ctx context.Context, seats []Seat) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&seats, 200).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("a seat with the same section, row and label already exists for this event")
		}
		return fmt.Errorf("failed to create seats: %w", err)
	}
	return nil
}

func (r *repository) GetSeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("section, seat_row, seat_label").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

func (r *repository) filtered(ctx context.Context, eventID uuid.UUID, filter Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&Seat{}).Where("seats.event_id = ?", eventID)
	if filter.Section != "" {
		query = query.Where("seats.section = ?", filter.Section)
	}
	if filter.Row != "" {
		query = query.Where("seats.seat_row = ?", filter.Row)
	}
	if filter.Status != "" {
		query = query.Where("seats.status = ?", filter.Status)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("seats.id IN ?", filter.IDs)
	}
	return query
}

func (r *repository) LoadSeats(ctx context.Context, eventID uuid.UUID, filter Filter) ([]Seat, error) {
	query := r.filtered(ctx, eventID, filter).Order("section, seat_row, seat_label")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var seats []Seat
	if err := query.Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	return seats, nil
}

func (r *repository) CountSeats(ctx context.Context, eventID uuid.UUID, filter Filter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, eventID, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return total, nil
}

func (r *repository) CountByStatus(ctx context.Context, eventID uuid.UUID, filter Filter) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.filtered(ctx, eventID, filter).
		Select("seats.status AS status, COUNT(*) AS count, COALESCE(SUM(COALESCE(seats.price, pricing_tiers.price, 0)), 0) AS value").
		Joins("LEFT JOIN pricing_tiers ON pricing_tiers.id = seats.tier_id").
		Group("seats.status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate seats: %w", err)
	}
	return rows, nil
}

func (r *repository) Transition(ctx context.Context, t Transition) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := r.db.WithContext(ctx).Model(&Seat{}).
		Where("id = ? AND status = ?", t.SeatID, t.From)
	if t.ExpectHoldID != nil {
		query = query.Where("hold_id = ?", *t.ExpectHoldID)
	}

	res := query.Updates(t.Columns())
	if res.Error != nil {
		return fmt.Errorf("failed to transition seat %s: %w", t.SeatID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict(fmt.Sprintf("seat is no longer %s", t.From), t.SeatID.String())
	}
	return nil
}
