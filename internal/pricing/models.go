package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source tags which catalog served an effective-tier lookup
type Source string

const (
	SourceEvent Source = "event"
	SourceVenue Source = "venue"
)

// PricingTier is a named price band scoped to either a venue or an event.
// Rows with IsVenueTier set, or without an event, are venue-scoped.
type PricingTier struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Price       float64        `gorm:"type:numeric(10,2);not null;check:price >= 0" json:"price"`
	Color       string         `gorm:"size:20" json:"color"`
	Section     string         `gorm:"size:100" json:"section"`
	Description string         `gorm:"type:text" json:"description"`
	VenueID     *uuid.UUID     `gorm:"type:uuid" json:"venue_id,omitempty"`
	EventID     *uuid.UUID     `gorm:"type:uuid" json:"event_id,omitempty"`
	IsVenueTier bool           `gorm:"not null;default:false" json:"is_venue_tier"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PricingTier) TableName() string {
	return "pricing_tiers"
}

func (t *PricingTier) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Scope reports which catalog the tier belongs to
func (t *PricingTier) Scope() Source {
	if t.IsVenueTier || t.EventID == nil {
		return SourceVenue
	}
	return SourceEvent
}

// EffectiveTiers is the tagged result of resolving an event's catalog
type EffectiveTiers struct {
	Source Source        `json:"source"`
	Tiers  []PricingTier `json:"tiers"`
}

// UpsertAction records what happened to one entry of an event-tier upsert
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
)

type UpsertResult struct {
	Action UpsertAction `json:"action"`
	Tier   PricingTier  `json:"tier"`
}

// sortByPriceDesc orders tiers most expensive first, ties by name
func sortByPriceDesc(tiers []PricingTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].Price != tiers[j].Price {
			return tiers[i].Price > tiers[j].Price
		}
		return tiers[i].Name < tiers[j].Name
	})
}
