package holds_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	acquire  bool
	err      error
	locks    int
	unlocked int
}

func (l *fakeLocker) TryLock(ctx context.Context) (bool, error) {
	l.locks++
	return l.acquire, l.err
}

func (l *fakeLocker) Unlock(ctx context.Context) error {
	l.unlocked++
	return nil
}

func (f *fixture) sweeper(locker holds.Locker, batch int) *holds.Sweeper {
	return holds.NewSweeper(f.store.Holds(), f.service, locker, &holds.SweeperConfig{
		Interval:  time.Minute,
		BatchSize: batch,
		Clock:     f.clock.Now,
	})
}

func TestSweeper_ExpiresHoldAfterTTL(t *testing.T) {
	f := newFixture(t)
	ttl := time.Second
	resp, err := f.service.Reserve(context.Background(), customer(), holds.ReserveRequest{
		EventID: f.event.ID,
		SeatIDs: f.seatIDs(0, 1),
		TTL:     &ttl,
	})
	require.NoError(t, err)
	sweeper := f.sweeper(nil, 10)

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Expired, "not yet due")
	assert.Equal(t, seats.StatusHeld, f.seatStatus(t, f.seats[0].ID))

	f.clock.Advance(2 * time.Second)
	result, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 2, result.Released)

	assert.Equal(t, holds.StateExpired, f.holdState(t, resp.ReservationID))
	for _, id := range f.seatIDs(0, 1) {
		assert.Equal(t, seats.StatusAvailable, f.seatStatus(t, id))
	}

	_, err = f.service.Confirm(context.Background(), resp.ReservationID, "pay-late")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, seats.StatusAvailable, f.seatStatus(t, f.seats[0].ID))

	stats := sweeper.GetStats()
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(1), stats.TotalExpired)
	assert.Equal(t, int64(2), stats.TotalReleased)
	assert.Equal(t, 1, stats.LastExpiredCount)
	assert.Empty(t, stats.LastError)
}

func TestSweeper_ZeroTTLIsImmediatelyDue(t *testing.T) {
	f := newFixture(t, holds.WithHoldTTL(0))
	resp := f.reserve(t, customer(), 0)

	result, err := f.sweeper(nil, 10).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, holds.StateExpired, f.holdState(t, resp.ReservationID))
}

func TestSweeper_DrainsInBatches(t *testing.T) {
	f := newFixture(t, holds.WithHoldTTL(time.Minute))
	for i := range f.seats {
		f.reserve(t, customer(), i)
	}
	f.clock.Advance(time.Hour)

	result, err := f.sweeper(nil, 1).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, len(f.seats), result.Expired)
	for _, seat := range f.seats {
		assert.Equal(t, seats.StatusAvailable, f.seatStatus(t, seat.ID))
	}
}

func TestSweeper_LeavesConfirmedAndReleasedHoldsAlone(t *testing.T) {
	f := newFixture(t, holds.WithHoldTTL(time.Minute))
	actor := customer()
	confirmed := f.reserve(t, actor, 0)
	released := f.reserve(t, actor, 1)
	_, err := f.service.Confirm(context.Background(), confirmed.ReservationID, "pay-1")
	require.NoError(t, err)
	_, err = f.service.Release(context.Background(), actor, released.ReservationID)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	result, err := f.sweeper(nil, 10).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Expired)
	assert.Equal(t, holds.StateConfirmed, f.holdState(t, confirmed.ReservationID))
	assert.Equal(t, seats.StatusSold, f.seatStatus(t, f.seats[0].ID))
	assert.Equal(t, holds.StateReleased, f.holdState(t, released.ReservationID))
}

func TestSweeper_ReconcilesOrphanedSeats(t *testing.T) {
	f := newFixture(t)
	ghost := uuid.New()
	holder := uuid.New()
	heldAt := f.clock.Now()
	orphan := f.store.AddSeats(seats.Seat{
		EventID:  f.event.ID,
		Section:  "C",
		Row:      "9",
		Label:    "9",
		Status:   seats.StatusHeld,
		HoldID:   &ghost,
		HolderID: &holder,
		HeldAt:   &heldAt,
	})[0]
	live := f.reserve(t, customer(), 0)

	result, err := f.sweeper(nil, 10).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Reconciled)
	seat, _ := f.store.Seat(orphan.ID)
	assert.Equal(t, seats.StatusAvailable, seat.Status)
	assert.Nil(t, seat.HoldID)

	// Seats of a live pending hold are not orphans
	assert.Equal(t, seats.StatusHeld, f.seatStatus(t, f.seats[0].ID))
	assert.Equal(t, holds.StatePending, f.holdState(t, live.ReservationID))
}

func TestSweeper_SkipsWhenLockHeldElsewhere(t *testing.T) {
	f := newFixture(t, holds.WithHoldTTL(0))
	resp := f.reserve(t, customer(), 0)
	locker := &fakeLocker{acquire: false}
	sweeper := f.sweeper(locker, 10)

	result, err := sweeper.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Expired)
	assert.Equal(t, 1, locker.locks)
	assert.Zero(t, locker.unlocked)
	assert.Equal(t, holds.StatePending, f.holdState(t, resp.ReservationID))
	assert.Zero(t, sweeper.GetStats().Runs)
}

func TestSweeper_SweepsWhenLockBackendFails(t *testing.T) {
	f := newFixture(t, holds.WithHoldTTL(0))
	resp := f.reserve(t, customer(), 0)
	locker := &fakeLocker{err: errors.New("redis down")}

	result, err := f.sweeper(locker, 10).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Zero(t, locker.unlocked)
	assert.Equal(t, holds.StateExpired, f.holdState(t, resp.ReservationID))
}

func TestSweeper_ReleasesLockAfterSweep(t *testing.T) {
	f := newFixture(t)
	locker := &fakeLocker{acquire: true}

	_, err := f.sweeper(locker, 10).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocked)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	sweeper := f.sweeper(nil, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.GetStats().IsRunning }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.False(t, sweeper.GetStats().IsRunning)
}

// midConfirm runs a sweep from inside the confirm transaction, after the hold
// row has moved to confirmed and before its seats are sold.
type midConfirm struct {
	sweep  func()
	listed chan struct{}
	once   sync.Once
}

type interleavedRepo struct {
	holds.Repository
	at *midConfirm
}

func (r interleavedRepo) RunInTx(ctx context.Context, fn func(tx holds.Repository) error) error {
	return r.Repository.RunInTx(ctx, func(tx holds.Repository) error {
		return fn(interleavedRepo{Repository: tx, at: r.at})
	})
}

func (r interleavedRepo) ChangeState(ctx context.Context, change holds.StateChange) error {
	if err := r.Repository.ChangeState(ctx, change); err != nil {
		return err
	}
	if change.To == holds.StateConfirmed {
		r.at.once.Do(func() {
			go r.at.sweep()
			<-r.at.listed
		})
	}
	return nil
}

func (r interleavedRepo) ListOrphanedSeats(ctx context.Context, limit int) ([]seats.Seat, error) {
	list, err := r.Repository.ListOrphanedSeats(ctx, limit)
	select {
	case r.at.listed <- struct{}{}:
	default:
	}
	return list, err
}

func TestSweeper_DoesNotFreeSeatsOfConfirmInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := &midConfirm{listed: make(chan struct{}, 1)}
	repo := interleavedRepo{Repository: f.store.Holds(), at: at}
	pricingService := pricing.NewService(f.store.Pricing(), f.store.Events(), f.store.Venues(), cache.NewNoopService())
	service := holds.NewService(repo, f.store.Events(), pricingService,
		holds.WithClock(f.clock.Now),
		holds.WithPublisher(&recordingPublisher{}),
		holds.WithLogger(logger.NewNop()))
	sweeper := holds.NewSweeper(repo, service, nil, &holds.SweeperConfig{
		Interval:  time.Minute,
		BatchSize: 10,
		Clock:     f.clock.Now,
	})

	results := make(chan holds.SweepResult, 1)
	at.sweep = func() {
		result, err := sweeper.RunOnce(ctx)
		assert.NoError(t, err)
		results <- result
	}

	resp, err := service.Reserve(ctx, customer(), holds.ReserveRequest{EventID: f.event.ID, SeatIDs: f.seatIDs(0)})
	require.NoError(t, err)

	_, err = service.Confirm(ctx, resp.ReservationID, "pay-1")
	require.NoError(t, err)

	select {
	case result := <-results:
		assert.Zero(t, result.Reconciled)
		assert.Equal(t, 1, result.Skipped)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not finish")
	}
	assert.Equal(t, holds.StateConfirmed, f.holdState(t, resp.ReservationID))
	assert.Equal(t, seats.StatusSold, f.seatStatus(t, f.seats[0].ID))
}

func TestReconcileSeat_KeepsSeatOfPendingHold(t *testing.T) {
	f := newFixture(t)
	f.reserve(t, customer(), 0)
	seat, _ := f.store.Seat(f.seats[0].ID)

	err := f.service.ReconcileSeat(context.Background(), seat)

	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, seats.StatusHeld, f.seatStatus(t, f.seats[0].ID))
}
