package payments

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/shared/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Payment, error)
	// Record upserts a payment as reported by the payment subsystem
	Record(ctx context.Context, payment *Payment) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) Record(ctx context.Context, payment *Payment) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "amount", "currency", "provider", "completed_at", "updated_at"}),
	}).Create(payment).Error
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}
