package holds

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HoldState is the lifecycle state of a hold. pending is the only
// non-terminal state.
type HoldState string

const (
	StatePending   HoldState = "pending"
	StateConfirmed HoldState = "confirmed"
	StateReleased  HoldState = "released"
	StateExpired   HoldState = "expired"
)

func (s HoldState) IsValid() bool {
	switch s {
	case StatePending, StateConfirmed, StateReleased, StateExpired:
		return true
	}
	return false
}

func (s HoldState) IsTerminal() bool {
	return s == StateConfirmed || s == StateReleased || s == StateExpired
}

func (s HoldState) String() string {
	return string(s)
}

// Hold is one user's time-limited claim over a set of seats of one event
type Hold struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"event_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_holds_user_state,priority:1" json:"user_id"`
	State       HoldState  `gorm:"type:varchar(20);not null;default:'pending';index:idx_holds_user_state,priority:2;index:idx_holds_state_expiry,priority:1" json:"state"`
	ExpiresAt   time.Time  `gorm:"not null;index:idx_holds_state_expiry,priority:2" json:"expires_at"`
	PaymentID   *string    `gorm:"size:255;index" json:"payment_id,omitempty"`
	TotalPrice  float64    `gorm:"type:numeric(12,2);not null;default:0" json:"total_price"`
	Currency    string     `gorm:"size:3" json:"currency"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Seats []HoldSeat `gorm:"foreignKey:HoldID;constraint:OnDelete:CASCADE" json:"seats"`
}

func (Hold) TableName() string {
	return "holds"
}

func (h *Hold) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// SeatIDs returns the member seats sorted by identity, the order in which
// seat rows are always locked.
func (h *Hold) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(h.Seats))
	for _, s := range h.Seats {
		ids = append(ids, s.SeatID)
	}
	SortIDs(ids)
	return ids
}

// IsOwnedBy reports whether userID created the hold
func (h *Hold) IsOwnedBy(userID uuid.UUID) bool {
	return h.UserID == userID
}

// PaymentMatches reports whether the hold carries paymentID
func (h *Hold) PaymentMatches(paymentID string) bool {
	return h.PaymentID != nil && *h.PaymentID == paymentID
}

// HoldSeat is one member seat of a hold with the price resolved at reserve time
type HoldSeat struct {
	HoldID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	SeatID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"seat_id"`
	Price  float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
}

func (HoldSeat) TableName() string {
	return "hold_seats"
}

// StateChange moves a pending hold to a terminal state
type StateChange struct {
	HoldID uuid.UUID
	To     HoldState
	At     time.Time
	// PaymentID is required when confirming
	PaymentID string
	// DueBy, when set, additionally requires expires_at <= DueBy
	DueBy *time.Time
}

// ListQuery filters a user's holds
type ListQuery struct {
	State HoldState
	Page  int
	Limit int
}

func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// SortIDs orders identities bytewise, the canonical lock order
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
