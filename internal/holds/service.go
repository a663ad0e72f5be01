package holds

import (
	"context"
	"errors"
	"math"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/notifications"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/users"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultHoldTTL  = 15 * time.Minute
	DefaultMaxSeats = 50
)

type Service interface {
	// Reserve acquires every requested seat for the actor or none of them
	Reserve(ctx context.Context, actor users.Actor, req ReserveRequest) (*ReserveResponse, error)
	// Release returns a pending hold's seats. Releasing an already released or
	// expired hold is a no-op.
	Release(ctx context.Context, actor users.Actor, holdID uuid.UUID) (*ReleaseResponse, error)
	// Confirm sells a pending hold's seats against a completed payment. The
	// caller must already have verified the payment.
	Confirm(ctx context.Context, holdID uuid.UUID, paymentID string) (*ConfirmResponse, error)
	// ConfirmForUser checks ownership and payment status before confirming
	ConfirmForUser(ctx context.Context, actor users.Actor, holdID uuid.UUID, paymentID string) (*ConfirmResponse, error)
	// ConfirmByPayment confirms the most recent pending hold of userID bound to paymentID
	ConfirmByPayment(ctx context.Context, userID uuid.UUID, paymentID string) (*ConfirmResponse, error)
	AttachPayment(ctx context.Context, actor users.Actor, holdID uuid.UUID, paymentID string) (*ReservationView, error)

	// Expire moves a due pending hold to expired and frees its seats
	Expire(ctx context.Context, holdID uuid.UUID) (int, error)
	// ReconcileSeat frees a held seat that no pending hold accounts for
	ReconcileSeat(ctx context.Context, seat seats.Seat) error

	GetHold(ctx context.Context, actor users.Actor, holdID uuid.UUID) (*ReservationView, error)
	ListUserHolds(ctx context.Context, actor users.Actor, query ListQuery) (*ListReservationsResponse, error)
}

// PaymentVerifier reports whether a payment has completed for a user
type PaymentVerifier interface {
	VerifyCompleted(ctx context.Context, paymentID string, userID uuid.UUID) error
}

// Invalidator drops cached read models of an event after its seats change
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo      Repository
	events    events.Repository
	pricing   pricing.Service
	publisher notifications.Publisher
	verifier  PaymentVerifier
	cache     Invalidator
	log       *logger.Logger
	now       func() time.Time
	ttl       time.Duration
	maxSeats  int
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithHoldTTL(ttl time.Duration) Option {
	return func(s *service) { s.ttl = ttl }
}

func WithMaxSeats(n int) Option {
	return func(s *service) { s.maxSeats = n }
}

func WithPublisher(p notifications.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithVerifier(v PaymentVerifier) Option {
	return func(s *service) { s.verifier = v }
}

func WithInvalidator(i Invalidator) Option {
	return func(s *service) { s.cache = i }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *service) { s.log = l }
}

func NewService(repo Repository, eventRepo events.Repository, pricingService pricing.Service, opts ...Option) Service {
	s := &service{
		repo:     repo,
		events:   eventRepo,
		pricing:  pricingService,
		log:      logger.GetDefault(),
		now:      time.Now,
		ttl:      DefaultHoldTTL,
		maxSeats: DefaultMaxSeats,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = notifications.NewLogPublisher(s.log)
	}
	return s
}

func (s *service) Reserve(ctx context.Context, actor users.Actor, req ReserveRequest) (*ReserveResponse, error) {
	if req.EventID == uuid.Nil {
		return nil, apperr.Invalid("event ID is required")
	}
	ids := dedupe(req.SeatIDs)
	if len(ids) == 0 {
		return nil, apperr.Invalid("at least one seat is required")
	}
	if s.maxSeats > 0 && len(ids) > s.maxSeats {
		return nil, apperr.Invalid("a reservation may hold at most %d seats", s.maxSeats)
	}
	if req.PaymentID != nil && *req.PaymentID == "" {
		return nil, apperr.Invalid("payment ID must not be empty")
	}
	ttl := s.ttl
	if req.TTL != nil {
		ttl = *req.TTL
	}
	if ttl < 0 {
		return nil, apperr.Invalid("hold TTL must not be negative")
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	found, err := s.repo.Seats().GetSeatsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := checkReservable(event.ID, ids, found); err != nil {
		return nil, err
	}

	prices, total, err := s.priceSeats(ctx, found)
	if err != nil {
		return nil, err
	}

	now := s.now()
	hold := &Hold{
		ID:         uuid.New(),
		EventID:    event.ID,
		UserID:     actor.UserID,
		State:      StatePending,
		ExpiresAt:  now.Add(ttl),
		PaymentID:  req.PaymentID,
		TotalPrice: total,
		Currency:   event.Currency,
	}
	for _, id := range ids {
		hold.Seats = append(hold.Seats, HoldSeat{HoldID: hold.ID, SeatID: id, Price: prices[id]})
	}

	// The hold row goes in first; seats are then taken in identity order so
	// overlapping reservations contend in the same sequence. Any CAS loss
	// aborts the transaction and with it every seat taken so far.
	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.CreateHold(ctx, hold); err != nil {
			return err
		}
		seatRepo := tx.Seats()
		for _, id := range hold.SeatIDs() {
			if err := seatRepo.Transition(ctx, seats.Hold(id, hold.ID, actor.UserID, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, event.ID)
	s.publish(ctx, notifications.NewHoldEvent(notifications.HoldEventReserved, hold.ID, hold.EventID, hold.UserID, hold.SeatIDs()).
		WithPrice(hold.TotalPrice, hold.Currency).
		WithExpiry(hold.ExpiresAt))
	s.log.LogHoldCreated(ctx, hold.ID.String(), event.ID.String(), actor.UserID.String(), len(ids), hold.ExpiresAt)

	return &ReserveResponse{
		ReservationID: hold.ID,
		Seats:         reservedSeats(hold),
		ExpiresAt:     hold.ExpiresAt,
		TotalPrice:    hold.TotalPrice,
		Currency:      hold.Currency,
	}, nil
}

// checkReservable requires every id to exist, belong to eventID and be available
func checkReservable(eventID uuid.UUID, ids []uuid.UUID, found []seats.Seat) error {
	byID := make(map[uuid.UUID]*seats.Seat, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	var foreign, unavailable []string
	for _, id := range ids {
		seat, ok := byID[id]
		switch {
		case !ok:
			unavailable = append(unavailable, id.String())
		case seat.EventID != eventID:
			foreign = append(foreign, id.String())
		case !seat.IsAvailable():
			unavailable = append(unavailable, id.String())
		}
	}
	if len(foreign) > 0 {
		return apperr.Invalid("seats must all belong to the reserved event").WithOffenders(foreign...)
	}
	if len(unavailable) > 0 {
		return apperr.Conflict("some seats are not available", unavailable...)
	}
	return nil
}

func (s *service) priceSeats(ctx context.Context, list []seats.Seat) (map[uuid.UUID]float64, float64, error) {
	var tierIDs []uuid.UUID
	for _, seat := range list {
		if seat.Price == nil && seat.TierID != nil {
			tierIDs = append(tierIDs, *seat.TierID)
		}
	}
	tiers := map[uuid.UUID]pricing.PricingTier{}
	if len(tierIDs) > 0 {
		var err error
		if tiers, err = s.pricing.TiersByIDs(ctx, tierIDs); err != nil {
			return nil, 0, err
		}
	}

	prices := make(map[uuid.UUID]float64, len(list))
	var total float64
	for i := range list {
		price := seats.ResolvePrice(&list[i], tiers)
		prices[list[i].ID] = price
		total += price
	}
	return prices, roundCents(total), nil
}

func (s *service) Release(ctx context.Context, actor users.Actor, holdID uuid.UUID) (*ReleaseResponse, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !hold.IsOwnedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the reservation owner can release it")
	}
	if done, err := releaseOutcome(hold); done || err != nil {
		return &ReleaseResponse{State: hold.State}, err
	}

	now := s.now()
	var released int
	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.ChangeState(ctx, StateChange{HoldID: hold.ID, To: StateReleased, At: now}); err != nil {
			return err
		}
		released, err = s.freeSeats(ctx, tx, hold)
		return err
	})
	if errors.Is(err, apperr.ErrConflict) {
		// Lost a race with the sweeper or a confirmation
		current, getErr := s.repo.GetHold(ctx, holdID)
		if getErr != nil {
			return nil, getErr
		}
		if _, outcomeErr := releaseOutcome(current); outcomeErr != nil {
			return nil, outcomeErr
		}
		return &ReleaseResponse{State: current.State}, nil
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, hold.EventID)
	s.publish(ctx, notifications.NewHoldEvent(notifications.HoldEventReleased, hold.ID, hold.EventID, hold.UserID, hold.SeatIDs()))
	s.log.LogHoldReleased(ctx, hold.ID.String(), actor.UserID.String(), released)

	return &ReleaseResponse{ReleasedSeatsCount: released, State: StateReleased}, nil
}

// releaseOutcome reports whether a release of hold is already settled and
// whether it must be refused.
func releaseOutcome(hold *Hold) (bool, error) {
	switch hold.State {
	case StatePending:
		return false, nil
	case StateConfirmed:
		return true, apperr.Conflict("reservation is already confirmed")
	default:
		return true, nil
	}
}

func (s *service) Confirm(ctx context.Context, holdID uuid.UUID, paymentID string) (*ConfirmResponse, error) {
	if paymentID == "" {
		return nil, apperr.Invalid("payment ID is required")
	}
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, hold, paymentID)
}

func (s *service) confirm(ctx context.Context, hold *Hold, paymentID string) (*ConfirmResponse, error) {
	if done, err := confirmOutcome(hold, paymentID); done || err != nil {
		if err != nil {
			return nil, err
		}
		return &ConfirmResponse{ConfirmedSeatsCount: len(hold.Seats), PaymentID: paymentID}, nil
	}

	now := s.now()
	seatIDs := hold.SeatIDs()
	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.ChangeState(ctx, StateChange{HoldID: hold.ID, To: StateConfirmed, At: now, PaymentID: paymentID}); err != nil {
			return err
		}
		seatRepo := tx.Seats()
		for _, id := range seatIDs {
			if err := seatRepo.Transition(ctx, seats.Sell(id, hold.ID, hold.UserID, paymentID, now)); err != nil {
				if errors.Is(err, apperr.ErrConflict) {
					return apperr.Inconsistency("reserved seat is no longer held by its reservation", err, id.String())
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInconsistency) {
			ids := make([]string, 0, len(seatIDs))
			for _, id := range seatIDs {
				ids = append(ids, id.String())
			}
			s.log.LogInconsistency(ctx, hold.ID.String(), ids, err)
			return nil, err
		}
		if errors.Is(err, apperr.ErrConflict) {
			current, getErr := s.repo.GetHold(ctx, hold.ID)
			if getErr != nil {
				return nil, getErr
			}
			done, outcomeErr := confirmOutcome(current, paymentID)
			if outcomeErr != nil {
				return nil, outcomeErr
			}
			if done {
				return &ConfirmResponse{ConfirmedSeatsCount: len(current.Seats), PaymentID: paymentID}, nil
			}
		}
		return nil, err
	}

	s.invalidate(ctx, hold.EventID)
	s.publish(ctx, notifications.NewHoldEvent(notifications.HoldEventConfirmed, hold.ID, hold.EventID, hold.UserID, seatIDs).
		WithPayment(paymentID).
		WithPrice(hold.TotalPrice, hold.Currency))
	s.log.LogHoldConfirmed(ctx, hold.ID.String(), hold.UserID.String(), paymentID, len(seatIDs))

	return &ConfirmResponse{ConfirmedSeatsCount: len(seatIDs), PaymentID: paymentID}, nil
}

// confirmOutcome reports whether confirming hold with paymentID is already
// done, or why it is refused.
func confirmOutcome(hold *Hold, paymentID string) (bool, error) {
	switch hold.State {
	case StatePending:
		if hold.PaymentID != nil && *hold.PaymentID != paymentID {
			return false, apperr.Conflict("reservation is bound to a different payment")
		}
		return false, nil
	case StateConfirmed:
		if hold.PaymentMatches(paymentID) {
			return true, nil
		}
		return false, apperr.Conflict("reservation was confirmed with a different payment")
	default:
		return false, apperr.Conflict("reservation is " + hold.State.String())
	}
}

func (s *service) ConfirmForUser(ctx context.Context, actor users.Actor, holdID uuid.UUID, paymentID string) (*ConfirmResponse, error) {
	if paymentID == "" {
		return nil, apperr.Invalid("payment ID is required")
	}
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !hold.IsOwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only the reservation owner can confirm it")
	}
	if s.verifier != nil {
		if err := s.verifier.VerifyCompleted(ctx, paymentID, hold.UserID); err != nil {
			return nil, err
		}
	}
	return s.confirm(ctx, hold, paymentID)
}

func (s *service) ConfirmByPayment(ctx context.Context, userID uuid.UUID, paymentID string) (*ConfirmResponse, error) {
	if paymentID == "" {
		return nil, apperr.Invalid("payment ID is required")
	}
	hold, err := s.repo.FindLatestByPayment(ctx, userID, paymentID, StatePending)
	if errors.Is(err, apperr.ErrNotFound) {
		// A redelivered event finds the hold already confirmed
		confirmed, findErr := s.repo.FindLatestByPayment(ctx, userID, paymentID, StateConfirmed)
		if findErr != nil {
			return nil, err
		}
		return &ConfirmResponse{ConfirmedSeatsCount: len(confirmed.Seats), PaymentID: paymentID}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, hold, paymentID)
}

func (s *service) AttachPayment(ctx context.Context, actor users.Actor, holdID uuid.UUID, paymentID string) (*ReservationView, error) {
	if paymentID == "" {
		return nil, apperr.Invalid("payment ID is required")
	}
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !hold.IsOwnedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the reservation owner can attach a payment")
	}
	if err := s.repo.BindPayment(ctx, holdID, paymentID); err != nil {
		return nil, err
	}
	hold.PaymentID = &paymentID
	view := NewReservationView(hold)
	return &view, nil
}

func (s *service) Expire(ctx context.Context, holdID uuid.UUID) (int, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return 0, err
	}
	if hold.State != StatePending {
		return 0, apperr.Conflict("reservation is " + hold.State.String())
	}

	now := s.now()
	var released int
	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.ChangeState(ctx, StateChange{HoldID: hold.ID, To: StateExpired, At: now, DueBy: &now}); err != nil {
			return err
		}
		released, err = s.freeSeats(ctx, tx, hold)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, hold.EventID)
	s.publish(ctx, notifications.NewHoldEvent(notifications.HoldEventExpired, hold.ID, hold.EventID, hold.UserID, hold.SeatIDs()))
	s.log.LogHoldExpired(ctx, hold.ID.String(), hold.EventID.String(), released)
	return released, nil
}

// freeSeats returns the hold's seats to available. Seats no longer stamped
// with this hold are left alone.
func (s *service) freeSeats(ctx context.Context, tx Repository, hold *Hold) (int, error) {
	seatRepo := tx.Seats()
	var freed int
	for _, id := range hold.SeatIDs() {
		err := seatRepo.Transition(ctx, seats.Free(id, hold.ID))
		if errors.Is(err, apperr.ErrConflict) {
			s.log.WarnContext(ctx, "seat not held by its reservation", "hold_id", hold.ID.String(), "seat_id", id.String())
			continue
		}
		if err != nil {
			return freed, err
		}
		freed++
	}
	return freed, nil
}

func (s *service) ReconcileSeat(ctx context.Context, seat seats.Seat) error {
	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		// The listing may predate a commit or rollback of the seat's hold
		if seat.HoldID != nil {
			hold, err := tx.GetHold(ctx, *seat.HoldID)
			switch {
			case err == nil && hold.State == StatePending:
				return apperr.Conflict("seat is held by a pending reservation", seat.ID.String())
			case err != nil && !errors.Is(err, apperr.ErrNotFound):
				return err
			}
		}
		return tx.Seats().Transition(ctx, seats.Transition{
			SeatID:       seat.ID,
			From:         seats.StatusHeld,
			To:           seats.StatusAvailable,
			ExpectHoldID: seat.HoldID,
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, seat.EventID)
	s.log.WarnContext(ctx, "released orphaned seat hold", "seat_id", seat.ID.String(), "event_id", seat.EventID.String())
	return nil
}

func (s *service) GetHold(ctx context.Context, actor users.Actor, holdID uuid.UUID) (*ReservationView, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !hold.IsOwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, apperr.Forbidden("access denied to this reservation")
	}
	view := NewReservationView(hold)
	return &view, nil
}

func (s *service) ListUserHolds(ctx context.Context, actor users.Actor, query ListQuery) (*ListReservationsResponse, error) {
	if query.State != "" && !query.State.IsValid() {
		return nil, apperr.Invalid("unknown reservation status %q", query.State)
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}

	list, total, err := s.repo.ListUserHolds(ctx, actor.UserID, query)
	if err != nil {
		return nil, err
	}

	views := make([]ReservationView, 0, len(list))
	for i := range list {
		views = append(views, NewReservationView(&list[i]))
	}
	return &ListReservationsResponse{
		Reservations: views,
		Pagination:   response.NewPagination(query.Page, query.Limit, total),
	}, nil
}

func (s *service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateEvent(ctx, eventID)
	}
}

// publish is best effort; the transition has already committed
func (s *service) publish(ctx context.Context, event *notifications.HoldEvent) {
	if err := s.publisher.PublishHoldEvent(ctx, event); err != nil {
		s.log.WarnContext(ctx, "failed to publish hold event",
			"type", string(event.Type), "hold_id", event.HoldID.String(), "error", err)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	SortIDs(out)
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
