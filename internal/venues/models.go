package venues

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Venue owns seats and the venue-level pricing catalog. The inventory core
// only reads it.
type Venue struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	ManagerID *uuid.UUID     `gorm:"type:uuid;index" json:"manager_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Venue) TableName() string {
	return "venues"
}

// IsManagedBy reports whether userID is the venue's manager
func (v *Venue) IsManagedBy(userID uuid.UUID) bool {
	return v.ManagerID != nil && *v.ManagerID == userID
}
