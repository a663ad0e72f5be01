package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Event is read by the inventory core for its venue, organizer and currency
type Event struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"not null;size:255"`
	VenueID     uuid.UUID      `json:"venue_id" gorm:"type:uuid;not null;index"`
	OrganizerID uuid.UUID      `json:"organizer_id" gorm:"type:uuid;not null;index"`
	HasSeating  bool           `json:"has_seating" gorm:"not null;default:true"`
	Currency    string         `json:"currency" gorm:"size:3;not null;default:'USD'"`
	DateTime    time.Time      `json:"date_time"`
	Status      Status         `json:"status" gorm:"type:varchar(20);default:'draft'"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) IsOrganizedBy(userID uuid.UUID) bool {
	return e.OrganizerID == userID
}
