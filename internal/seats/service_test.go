package seats_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/events"
	"ticketing/internal/memstore"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/users"
	"ticketing/internal/venues"
	"ticketing/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *memstore.Store
	service   seats.Service
	event     events.Event
	manager   users.Actor
	organizer users.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	manager := users.Actor{UserID: uuid.New(), Role: users.RoleVenueManager}
	organizer := users.Actor{UserID: uuid.New(), Role: users.RoleOrganizer}
	venue := store.AddVenue(venues.Venue{Name: "Arena", ManagerID: &manager.UserID})
	event := store.AddEvent(events.Event{Name: "Finals", VenueID: venue.ID, OrganizerID: organizer.UserID, HasSeating: true})

	noop := cache.NewNoopService()
	pricingService := pricing.NewService(store.Pricing(), store.Events(), store.Venues(), noop)

	return &fixture{
		store:     store,
		service:   seats.NewService(store.Seats(), store.Events(), store.Venues(), pricingService, noop),
		event:     event,
		manager:   manager,
		organizer: organizer,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateSeats(t *testing.T) {
	f := newFixture(t)
	eventID := f.event.ID
	tier := f.store.AddTier(pricing.PricingTier{Name: "Balcony", Price: 25, EventID: &eventID})

	created, err := f.service.CreateSeats(context.Background(), f.manager, seats.CreateSeatsRequest{
		EventID: f.event.ID,
		SeatsData: []seats.SeatDescriptor{
			{Section: "B", Row: "1", SeatLabel: "1", TierID: &tier.ID},
			{Section: "A", Row: "2", SeatLabel: "1", Price: floatPtr(40)},
			{Section: "A", Row: "1", SeatLabel: "1", Price: floatPtr(40), IsAccessible: true},
		},
	})

	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "A", created[0].Section)
	assert.Equal(t, "1", created[0].Row)
	for _, seat := range created {
		assert.Equal(t, seats.StatusAvailable, seat.Status)
		assert.NotEqual(t, uuid.Nil, seat.ID)
	}

	views, err := f.service.LoadSeats(context.Background(), f.event.ID, seats.Filter{Section: "B"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 25.0, views[0].Price)
	assert.Equal(t, "Balcony", views[0].TierName)
}

func TestCreateSeats_Rejections(t *testing.T) {
	f := newFixture(t)
	f.store.AddSeats(seats.Seat{EventID: f.event.ID, Section: "A", Row: "1", Label: "1"})
	missingTier := uuid.New()
	noSeating := f.store.AddEvent(events.Event{Name: "Standing", VenueID: f.event.VenueID, OrganizerID: f.organizer.UserID})

	tests := []struct {
		name  string
		actor users.Actor
		req   seats.CreateSeatsRequest
		want  error
	}{
		{
			name:  "stranger",
			actor: users.Actor{UserID: uuid.New(), Role: users.RoleOrganizer},
			req:   seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{{Section: "Z", Row: "1", SeatLabel: "1"}}},
			want:  apperr.ErrForbidden,
		},
		{
			name:  "existing position",
			actor: f.manager,
			req:   seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{{Section: "A", Row: "1", SeatLabel: "1"}}},
			want:  apperr.ErrConflict,
		},
		{
			name:  "duplicate in batch",
			actor: f.organizer,
			req: seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{
				{Section: "Z", Row: "1", SeatLabel: "1"},
				{Section: "Z", Row: "1", SeatLabel: "1"},
			}},
			want: apperr.ErrConflict,
		},
		{
			name:  "unknown tier",
			actor: f.manager,
			req:   seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{{Section: "Z", Row: "1", SeatLabel: "1", TierID: &missingTier}}},
			want:  apperr.ErrInvalid,
		},
		{
			name:  "event without seating",
			actor: f.organizer,
			req:   seats.CreateSeatsRequest{EventID: noSeating.ID, SeatsData: []seats.SeatDescriptor{{Section: "Z", Row: "1", SeatLabel: "1"}}},
			want:  apperr.ErrInvalid,
		},
		{
			name:  "missing row",
			actor: f.manager,
			req:   seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{{Section: "Z", SeatLabel: "1"}}},
			want:  apperr.ErrInvalid,
		},
		{
			name:  "negative price",
			actor: f.manager,
			req:   seats.CreateSeatsRequest{EventID: f.event.ID, SeatsData: []seats.SeatDescriptor{{Section: "Z", Row: "1", SeatLabel: "1", Price: floatPtr(-5)}}},
			want:  apperr.ErrInvalid,
		},
		{
			name:  "unknown event",
			actor: f.manager,
			req:   seats.CreateSeatsRequest{EventID: uuid.New(), SeatsData: []seats.SeatDescriptor{{Section: "Z", Row: "1", SeatLabel: "1"}}},
			want:  apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateSeats(context.Background(), tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	views, err := f.service.LoadSeats(context.Background(), f.event.ID, seats.Filter{})
	require.NoError(t, err)
	assert.Len(t, views, 1, "failed batches leave no seats behind")
}

func TestStatsAndSeatMap(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	payment := "pay-1"
	f.store.AddSeats(
		seats.Seat{EventID: f.event.ID, Section: "A", Row: "1", Label: "1", Price: floatPtr(100)},
		seats.Seat{EventID: f.event.ID, Section: "A", Row: "1", Label: "2", Price: floatPtr(100), Status: seats.StatusSold, SoldTo: &buyer, PaymentID: &payment},
		seats.Seat{EventID: f.event.ID, Section: "B", Row: "1", Label: "1", Price: floatPtr(50), Status: seats.StatusSold, SoldTo: &buyer, PaymentID: &payment},
		seats.Seat{EventID: f.event.ID, Section: "B", Row: "1", Label: "2", Status: seats.StatusBlocked},
	)

	stats, err := f.service.Stats(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Available)
	assert.Equal(t, int64(2), stats.Sold)
	assert.Equal(t, int64(1), stats.Blocked)
	assert.Equal(t, 150.0, stats.Revenue)
	assert.Equal(t, 0.5, stats.OccupancyRate)
	assert.Equal(t, "USD", stats.Currency)

	seatMap, err := f.service.SeatMap(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Len(t, seatMap.Seats["A"], 2)
	assert.Len(t, seatMap.Seats["B"], 2)
	assert.Equal(t, pricing.SourceEvent, seatMap.PricingTiers.Source)
	assert.Equal(t, int64(4), seatMap.Statistics.Total)

	section, err := f.service.SeatsBySection(context.Background(), f.event.ID, "B", 1, 1)
	require.NoError(t, err)
	assert.Len(t, section.Seats, 1)
	assert.Equal(t, int64(2), section.Counts.Total)
	assert.Equal(t, 2, section.Pagination.TotalPages)

	_, err = f.service.LoadSeats(context.Background(), f.event.ID, seats.Filter{Status: "lost"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestStats_EmptyEvent(t *testing.T) {
	f := newFixture(t)

	stats, err := f.service.Stats(context.Background(), f.event.ID)

	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.OccupancyRate)
}

func TestResolvePrice(t *testing.T) {
	tierID := uuid.New()
	tiers := map[uuid.UUID]pricing.PricingTier{tierID: {ID: tierID, Price: 30}}

	assert.Equal(t, 12.5, seats.ResolvePrice(&seats.Seat{Price: floatPtr(12.5), TierID: &tierID}, tiers))
	assert.Equal(t, 30.0, seats.ResolvePrice(&seats.Seat{TierID: &tierID}, tiers))
	missing := uuid.New()
	assert.Zero(t, seats.ResolvePrice(&seats.Seat{TierID: &missing}, tiers))
	assert.Zero(t, seats.ResolvePrice(&seats.Seat{}, tiers))
}

func TestTransitionGuard(t *testing.T) {
	holdID, otherHold := uuid.New(), uuid.New()
	held := &seats.Seat{Status: seats.StatusHeld, HoldID: &holdID}

	assert.True(t, seats.Free(uuid.New(), holdID).Guard(held))
	assert.False(t, seats.Free(uuid.New(), otherHold).Guard(held))
	assert.False(t, seats.Hold(uuid.New(), holdID, uuid.New(), held.CreatedAt).Guard(held))

	err := seats.Transition{SeatID: uuid.New(), From: seats.StatusSold, To: seats.StatusAvailable}.Validate()
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	err = seats.Sell(uuid.New(), holdID, uuid.New(), "", held.CreatedAt).Validate()
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestController_PublicReads(t *testing.T) {
	f := newFixture(t)
	f.store.AddSeats(seats.Seat{EventID: f.event.ID, Section: "A", Row: "1", Label: "1", Price: floatPtr(10)})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/api/v1/seats")
	seats.SetupSeatRoutes(group, seats.NewController(f.service), func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	})

	for _, tc := range []struct {
		path string
		code int
	}{
		{"/api/v1/seats/event/" + f.event.ID.String(), http.StatusOK},
		{"/api/v1/seats/event/" + f.event.ID.String() + "/map", http.StatusOK},
		{"/api/v1/seats/event/" + f.event.ID.String() + "/stats", http.StatusOK},
		{"/api/v1/seats/event/" + f.event.ID.String() + "/section/A", http.StatusOK},
		{"/api/v1/seats/event/not-a-uuid", http.StatusBadRequest},
		{"/api/v1/seats/event/" + uuid.New().String(), http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.code, w.Code, tc.path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/seats/event/"+f.event.ID.String(), nil))
	var body struct {
		Data seats.ListSeatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.TotalSeats)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/seats/create-batch", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
