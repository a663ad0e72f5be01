package seats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeatStatus is the reservation status of one seat at one event
type SeatStatus string

const (
	StatusAvailable   SeatStatus = "available"
	StatusHeld        SeatStatus = "held"
	StatusSold        SeatStatus = "sold"
	StatusBlocked     SeatStatus = "blocked"
	StatusMaintenance SeatStatus = "maintenance"
)

// AllStatuses in display order
var AllStatuses = []SeatStatus{StatusAvailable, StatusHeld, StatusSold, StatusBlocked, StatusMaintenance}

func (s SeatStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusHeld, StatusSold, StatusBlocked, StatusMaintenance:
		return true
	}
	return false
}

func (s SeatStatus) String() string {
	return string(s)
}

// Seat is one addressable spot at one event together with its ownership
// stamps. A held seat carries HolderID, HoldID and HeldAt; a sold seat
// carries SoldTo, SoldAt and PaymentID.
type Seat struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_seats_position,priority:1;index:idx_seats_event_status,priority:1" json:"event_id"`
	Section      string     `gorm:"size:100;not null;uniqueIndex:idx_seats_position,priority:2" json:"section"`
	Row          string     `gorm:"column:seat_row;size:20;not null;uniqueIndex:idx_seats_position,priority:3" json:"row"`
	Label        string     `gorm:"column:seat_label;size:20;not null;uniqueIndex:idx_seats_position,priority:4" json:"seat_label"`
	Price        *float64   `gorm:"type:numeric(10,2)" json:"price,omitempty"`
	TierID       *uuid.UUID `gorm:"type:uuid;index" json:"tier_id,omitempty"`
	IsAccessible bool       `gorm:"not null;default:false" json:"is_accessible"`
	Status       SeatStatus `gorm:"type:varchar(20);not null;default:'available';index:idx_seats_event_status,priority:2;index:idx_seats_holder_status,priority:2" json:"status"`
	HolderID     *uuid.UUID `gorm:"type:uuid;index:idx_seats_holder_status,priority:1" json:"holder_id,omitempty"`
	HoldID       *uuid.UUID `gorm:"type:uuid;index" json:"hold_id,omitempty"`
	HeldAt       *time.Time `json:"held_at,omitempty"`
	SoldTo       *uuid.UUID `gorm:"type:uuid" json:"sold_to,omitempty"`
	SoldAt       *time.Time `json:"sold_at,omitempty"`
	PaymentID    *string    `gorm:"size:255" json:"payment_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Seat) TableName() string {
	return "seats"
}

func (s *Seat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// Filter narrows a seat listing. Zero values mean "any".
type Filter struct {
	Section string
	Row     string
	Status  SeatStatus
	IDs     []uuid.UUID
	Limit   int
	Offset  int
}

// Matches reports whether seat satisfies every set criterion, ignoring paging
func (f Filter) Matches(seat *Seat) bool {
	if f.Section != "" && seat.Section != f.Section {
		return false
	}
	if f.Row != "" && seat.Row != f.Row {
		return false
	}
	if f.Status != "" && seat.Status != f.Status {
		return false
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if id == seat.ID {
				return true
			}
		}
		return false
	}
	return true
}

// Less orders seats canonically by section, row and seat label
func Less(a, b *Seat) bool {
	if a.Section != b.Section {
		return a.Section < b.Section
	}
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Label < b.Label
}

// StatusCount is one row of a per-status aggregate
type StatusCount struct {
	Status SeatStatus `json:"status"`
	Count  int64      `json:"count"`
	Value  float64    `json:"value"`
}

// Stats aggregates an event's seats
type Stats struct {
	Total       int64   `json:"total"`
	Available   int64   `json:"available"`
	Held        int64   `json:"held"`
	Sold        int64   `json:"sold"`
	Blocked     int64   `json:"blocked"`
	Maintenance int64   `json:"maintenance"`
	Revenue     float64 `json:"revenue"`
}

// NewStats folds per-status rows into Stats
func NewStats(rows []StatusCount) Stats {
	var st Stats
	for _, r := range rows {
		st.Total += r.Count
		switch r.Status {
		case StatusAvailable:
			st.Available += r.Count
		case StatusHeld:
			st.Held += r.Count
		case StatusSold:
			st.Sold += r.Count
			st.Revenue += r.Value
		case StatusBlocked:
			st.Blocked += r.Count
		case StatusMaintenance:
			st.Maintenance += r.Count
		}
	}
	return st
}

// OccupancyRate is sold / total, 0 for an empty event
func (s Stats) OccupancyRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Sold) / float64(s.Total)
}
