package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// RunInTx runs fn in one database transaction. The Repository passed to
	// fn, and the seat repository it exposes, are bound to that transaction.
	RunInTx(ctx context.Context, fn func(tx Repository) error) error
	Seats() seats.Repository

	CreateHold(ctx context.Context, hold *Hold) error
	GetHold(ctx context.Context, id uuid.UUID) (*Hold, error)
	// ChangeState applies a StateChange to a pending hold, failing with a
	// conflict if the hold is no longer pending.
	ChangeState(ctx context.Context, change StateChange) error
	// BindPayment records the payment expected to confirm a pending hold
	BindPayment(ctx context.Context, id uuid.UUID, paymentID string) error
	// FindLatestByPayment returns the most recent hold of userID carrying
	// paymentID, restricted to state when it is non-empty.
	FindLatestByPayment(ctx context.Context, userID uuid.UUID, paymentID string, state HoldState) (*Hold, error)
	ListUserHolds(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Hold, int64, error)
	// ListDue returns pending holds with expires_at <= now, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]Hold, error)
	// ListOrphanedSeats returns held seats whose hold is missing or not pending
	ListOrphanedSeats(ctx context.Context, limit int) ([]seats.Seat, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RunInTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Seats() seats.Repository {
	return seats.NewRepository(r.db)
}

func (r *repository) CreateHold(ctx context.Context, hold *Hold) error {
	if err := r.db.WithContext(ctx).Create(hold).Error; err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (r *repository) GetHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).Preload("Seats").First(&hold, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("reservation not found")
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &hold, nil
}

func (r *repository) ChangeState(ctx context.Context, change StateChange) error {
	updates := map[string]interface{}{"state": change.To}
	query := r.db.WithContext(ctx).Model(&Hold{}).
		Where("id = ? AND state = ?", change.HoldID, StatePending)

	switch change.To {
	case StateConfirmed:
		updates["payment_id"] = change.PaymentID
		updates["confirmed_at"] = change.At
		query = query.Where("(payment_id IS NULL OR payment_id = ?)", change.PaymentID)
	case StateReleased:
		updates["released_at"] = change.At
	case StateExpired:
		updates["expired_at"] = change.At
	default:
		return apperr.Invalid("holds cannot move to %s", change.To)
	}
	if change.DueBy != nil {
		query = query.Where("expires_at <= ?", *change.DueBy)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update hold: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("reservation is no longer pending")
	}
	return nil
}

func (r *repository) BindPayment(ctx context.Context, id uuid.UUID, paymentID string) error {
	res := r.db.WithContext(ctx).Model(&Hold{}).
		Where("id = ? AND state = ? AND (payment_id IS NULL OR payment_id = ?)", id, StatePending, paymentID).
		Update("payment_id", paymentID)
	if res.Error != nil {
		return fmt.Errorf("failed to bind payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("reservation is not pending or is bound to another payment")
	}
	return nil
}

func (r *repository) FindLatestByPayment(ctx context.Context, userID uuid.UUID, paymentID string, state HoldState) (*Hold, error) {
	query := r.db.WithContext(ctx).Preload("Seats").
		Where("user_id = ? AND payment_id = ?", userID, paymentID)
	if state != "" {
		query = query.Where("state = ?", state)
	}

	var hold Hold
	err := query.Order("created_at DESC").First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no reservation found for payment")
		}
		return nil, fmt.Errorf("failed to find hold by payment: %w", err)
	}
	return &hold, nil
}

func (r *repository) ListUserHolds(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Hold, int64, error) {
	base := r.db.WithContext(ctx).Model(&Hold{}).Where("user_id = ?", userID)
	if query.State != "" {
		base = base.Where("state = ?", query.State)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count holds: %w", err)
	}

	var list []Hold
	err := base.Preload("Seats").
		Order("created_at DESC").
		Limit(query.Limit).
		Offset(query.Offset()).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list holds: %w", err)
	}
	return list, total, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var list []Hold
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("state = ? AND expires_at <= ?", StatePending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due holds: %w", err)
	}
	return list, nil
}

func (r *repository) ListOrphanedSeats(ctx context.Context, limit int) ([]seats.Seat, error) {
	var list []seats.Seat
	err := r.db.WithContext(ctx).
		Where("status = ?", seats.StatusHeld).
		Where("NOT EXISTS (SELECT 1 FROM holds WHERE holds.id = seats.hold_id AND holds.state = ?)", StatePending).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned seats: %w", err)
	}
	return list, nil
}
