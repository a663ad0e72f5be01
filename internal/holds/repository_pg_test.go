package holds_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/database"
	"ticketing/internal/users"
	"ticketing/internal/venues"
	"ticketing/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_DATABASE_DSN and migrates the schema. Every
// test creates its own venue and event, so runs do not interfere.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), database.NewGormConfig(false))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type pgFixture struct {
	db      *gorm.DB
	repo    holds.Repository
	service holds.Service
	seats   []seats.Seat
}

func newPGFixture(t *testing.T, seatCount int) *pgFixture {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()

	venue := venues.Venue{ID: uuid.New(), Name: "Test Arena"}
	require.NoError(t, db.Create(&venue).Error)
	event := events.Event{ID: uuid.New(), Name: "Test Night", VenueID: venue.ID, OrganizerID: uuid.New(), HasSeating: true, Currency: "USD"}
	require.NoError(t, db.Create(&event).Error)

	price := 40.0
	batch := make([]seats.Seat, 0, seatCount)
	for i := 0; i < seatCount; i++ {
		batch = append(batch, seats.Seat{
			ID:      uuid.New(),
			EventID: event.ID,
			Section: "A",
			Row:     "1",
			Label:   string(rune('1' + i)),
			Price:   &price,
			Status:  seats.StatusAvailable,
		})
	}
	require.NoError(t, seats.NewRepository(db).CreateSeats(ctx, batch))

	eventRepo := events.NewRepository(db)
	pricingService := pricing.NewService(pricing.NewRepository(db), eventRepo, venues.NewRepository(db), cache.NewNoopService())
	repo := holds.NewRepository(db)

	return &pgFixture{
		db:      db,
		repo:    repo,
		service: holds.NewService(repo, eventRepo, pricingService, holds.WithPublisher(&recordingPublisher{})),
		seats:   batch,
	}
}

func (f *pgFixture) seat(t *testing.T, id uuid.UUID) seats.Seat {
	t.Helper()
	var seat seats.Seat
	require.NoError(t, f.db.First(&seat, "id = ?", id).Error)
	return seat
}

func TestPostgres_ConcurrentReserveHasOneWinner(t *testing.T) {
	f := newPGFixture(t, 2)
	target := []uuid.UUID{f.seats[0].ID, f.seats[1].ID}

	const racers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []uuid.UUID
		failures []error
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := users.Actor{UserID: uuid.New(), Role: users.RoleCustomer}
			resp, err := f.service.Reserve(context.Background(), actor, holds.ReserveRequest{EventID: f.seats[0].EventID, SeatIDs: target})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			winners = append(winners, resp.ReservationID)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	for _, err := range failures {
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	for _, id := range target {
		seat := f.seat(t, id)
		assert.Equal(t, seats.StatusHeld, seat.Status)
		require.NotNil(t, seat.HoldID)
		assert.Equal(t, winners[0], *seat.HoldID)
	}
}

func TestPostgres_ExpireFreesSeatsAndBlocksLateConfirm(t *testing.T) {
	f := newPGFixture(t, 1)
	ctx := context.Background()
	actor := users.Actor{UserID: uuid.New(), Role: users.RoleCustomer}
	zero := time.Duration(0)

	resp, err := f.service.Reserve(ctx, actor, holds.ReserveRequest{EventID: f.seats[0].EventID, SeatIDs: []uuid.UUID{f.seats[0].ID}, TTL: &zero})
	require.NoError(t, err)

	freed, err := f.service.Expire(ctx, resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, 1, freed)

	seat := f.seat(t, f.seats[0].ID)
	assert.Equal(t, seats.StatusAvailable, seat.Status)
	assert.Nil(t, seat.HoldID)
	assert.Nil(t, seat.HolderID)

	_, err = f.service.Confirm(ctx, resp.ReservationID, "pay-late")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	hold, err := f.repo.GetHold(ctx, resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, holds.StateExpired, hold.State)
}

func TestPostgres_ConfirmSellsAndListsNoOrphans(t *testing.T) {
	f := newPGFixture(t, 2)
	ctx := context.Background()
	actor := users.Actor{UserID: uuid.New(), Role: users.RoleCustomer}

	resp, err := f.service.Reserve(ctx, actor, holds.ReserveRequest{EventID: f.seats[0].EventID, SeatIDs: []uuid.UUID{f.seats[0].ID, f.seats[1].ID}})
	require.NoError(t, err)

	confirmed, err := f.service.Confirm(ctx, resp.ReservationID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed.ConfirmedSeatsCount)

	for _, s := range f.seats {
		seat := f.seat(t, s.ID)
		assert.Equal(t, seats.StatusSold, seat.Status)
		require.NotNil(t, seat.PaymentID)
		assert.Equal(t, "pay-1", *seat.PaymentID)
	}

	orphans, err := f.repo.ListOrphanedSeats(ctx, 1000)
	require.NoError(t, err)
	for _, o := range orphans {
		assert.NotEqual(t, f.seats[0].EventID, o.EventID)
	}
}
