package venues

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface for venue lookups
type Repository interface {
	GetVenueByID(ctx context.Context, id uuid.UUID) (*Venue, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new venue repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetVenueByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	var venue Venue
	err := r.db.WithContext(ctx).First(&venue, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("venue not found")
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}
