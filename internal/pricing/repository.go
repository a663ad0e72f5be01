package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/venues"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// ListEventTiers returns the live event-scoped tiers of an event
	ListEventTiers(ctx context.Context, eventID uuid.UUID) ([]PricingTier, error)
	// ListVenueTiers returns the live venue-scoped tiers of a venue
	ListVenueTiers(ctx context.Context, venueID uuid.UUID) ([]PricingTier, error)
	// GetTiersByIDs includes soft-deleted rows so seats authored against a
	// replaced catalog still resolve a price.
	GetTiersByIDs(ctx context.Context, ids []uuid.UUID) ([]PricingTier, error)
	// ReplaceVenueTiers swaps the venue catalog if its live tier set still
	// equals expected, otherwise it fails with a conflict.
	ReplaceVenueTiers(ctx context.Context, venueID uuid.UUID, expected []uuid.UUID, tiers []PricingTier) error
	// UpsertEventTiers updates and inserts event tiers in one transaction
	UpsertEventTiers(ctx context.Context, eventID uuid.UUID, updates []PricingTier, inserts []PricingTier) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) eventScope(db *gorm.DB, eventID uuid.UUID) *gorm.DB {
	return db.Where("event_id = ? AND is_venue_tier = ?", eventID, false)
}

func (r *repository) venueScope(db *gorm.DB, venueID uuid.UUID) *gorm.DB {
	return db.Where("venue_id = ? AND is_venue_tier = ? AND event_id IS NULL", venueID, true)
}

func (r *repository) ListEventTiers(ctx context.Context, eventID uuid.UUID) ([]PricingTier, error) {
	var tiers []PricingTier
	err := r.eventScope(r.db.WithContext(ctx), eventID).
		Order("price DESC, name ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) ListVenueTiers(ctx context.Context, venueID uuid.UUID) ([]PricingTier, error) {
	var tiers []PricingTier
	err := r.venueScope(r.db.WithContext(ctx), venueID).
		Order("price DESC, name ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list venue tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) GetTiersByIDs(ctx context.Context, ids []uuid.UUID) ([]PricingTier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tiers []PricingTier
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to get tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) ReplaceVenueTiers(ctx context.Context, venueID uuid.UUID, expected []uuid.UUID, tiers []PricingTier) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize catalog editors on the venue row
		var venue venues.Venue
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&venue, "id = ?", venueID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("venue not found")
			}
			return fmt.Errorf("failed to lock venue: %w", err)
		}

		var current []uuid.UUID
		if err := r.venueScope(tx.Model(&PricingTier{}), venueID).Pluck("id", &current).Error; err != nil {
			return fmt.Errorf("failed to read venue catalog: %w", err)
		}
		if !SameIDSet(current, expected) {
			return apperr.Conflict("venue pricing catalog was modified concurrently")
		}

		if len(current) > 0 {
			if err := tx.Where("id IN ?", current).Delete(&PricingTier{}).Error; err != nil {
				return fmt.Errorf("failed to retire venue tiers: %w", err)
			}
		}

		if err := tx.Create(&tiers).Error; err != nil {
			return fmt.Errorf("failed to insert venue tiers: %w", err)
		}
		return nil
	})
}

func (r *repository) UpsertEventTiers(ctx context.Context, eventID uuid.UUID, updates []PricingTier, inserts []PricingTier) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i := range updates {
			t := updates[i]
			res := r.eventScope(tx.Model(&PricingTier{}), eventID).
				Where("id = ?", t.ID).
				Updates(map[string]interface{}{
					"name":        t.Name,
					"price":       t.Price,
					"color":       t.Color,
					"section":     t.Section,
					"description": t.Description,
					"updated_at":  now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update tier %s: %w", t.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.NotFound("pricing tier %s not found for event", t.ID)
			}
		}

		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				return fmt.Errorf("failed to insert event tiers: %w", err)
			}
		}
		return nil
	})
}

// SameIDSet reports whether a and b hold the same identities, ignoring order
func SameIDSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uuid.UUID]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
