package seats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ticketing/internal/events"
	"ticketing/internal/pricing"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/users"
	"ticketing/internal/venues"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service interface {
	// Seat store
	CreateSeats(ctx context.Context, actor users.Actor, req CreateSeatsRequest) ([]Seat, error)
	LoadSeats(ctx context.Context, eventID uuid.UUID, filter Filter) ([]SeatView, error)

	// Read models
	SeatMap(ctx context.Context, eventID uuid.UUID) (*SeatMapResponse, error)
	SeatsBySection(ctx context.Context, eventID uuid.UUID, section string, page, limit int) (*SectionSeatsResponse, error)
	Stats(ctx context.Context, eventID uuid.UUID) (*StatsResponse, error)

	// InvalidateEvent drops cached read models after seat writes
	InvalidateEvent(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo    Repository
	events  events.Repository
	venues  venues.Repository
	pricing pricing.Service
	cache   cache.Service
	log     *logger.Logger

	validate *validator.Validate
}

func NewService(repo Repository, eventRepo events.Repository, venueRepo venues.Repository, pricingService pricing.Service, cacheService cache.Service) Service {
	if cacheService == nil {
		cacheService = cache.NewNoopService()
	}
	return &service{
		repo:    repo,
		events:  eventRepo,
		venues:  venueRepo,
		pricing: pricingService,
		cache:   cacheService,
		log:     logger.GetDefault(),

		validate: validator.New(),
	}
}

func (s *service) CreateSeats(ctx context.Context, actor users.Actor, req CreateSeatsRequest) ([]Seat, error) {
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeLayout(ctx, actor, event); err != nil {
		return nil, err
	}
	if !event.HasSeating {
		return nil, apperr.Invalid("event does not use assigned seating")
	}
	if len(req.SeatsData) == 0 {
		return nil, apperr.Invalid("at least one seat is required")
	}
	for i := range req.SeatsData {
		if err := s.validate.Struct(&req.SeatsData[i]); err != nil {
			return nil, apperr.Invalid("seat %d: %s", i+1, describeValidation(err))
		}
	}

	// Referenced tiers must exist
	var tierIDs []uuid.UUID
	for _, d := range req.SeatsData {
		if d.TierID != nil {
			tierIDs = append(tierIDs, *d.TierID)
		}
	}
	if len(tierIDs) > 0 {
		found, err := s.pricing.TiersByIDs(ctx, tierIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range tierIDs {
			if _, ok := found[id]; !ok {
				return nil, apperr.Invalid("pricing tier %s does not exist", id)
			}
		}
	}

	type position struct{ section, row, label string }
	seen := make(map[position]bool, len(req.SeatsData))
	batch := make([]Seat, 0, len(req.SeatsData))
	for _, d := range req.SeatsData {
		pos := position{d.Section, d.Row, d.SeatLabel}
		if seen[pos] {
			return nil, apperr.Conflict(fmt.Sprintf("duplicate seat %s/%s/%s in request", d.Section, d.Row, d.SeatLabel))
		}
		seen[pos] = true

		batch = append(batch, Seat{
			ID:           uuid.New(),
			EventID:      event.ID,
			Section:      d.Section,
			Row:          d.Row,
			Label:        d.SeatLabel,
			Price:        d.Price,
			TierID:       d.TierID,
			IsAccessible: d.IsAccessible,
			Status:       StatusAvailable,
		})
	}

	if err := s.repo.CreateSeats(ctx, batch); err != nil {
		return nil, err
	}
	s.InvalidateEvent(ctx, event.ID)

	s.log.InfoContext(ctx, "seat layout created",
		"event_id", event.ID.String(), "user_id", actor.UserID.String(), "count", len(batch))

	sort.SliceStable(batch, func(i, j int) bool { return Less(&batch[i], &batch[j]) })
	return batch, nil
}

// authorizeLayout allows the venue manager, the event organizer and admins
func (s *service) authorizeLayout(ctx context.Context, actor users.Actor, event *events.Event) error {
	if actor.IsAdmin() || event.IsOrganizedBy(actor.UserID) {
		return nil
	}
	venue, err := s.venues.GetVenueByID(ctx, event.VenueID)
	if err != nil {
		return err
	}
	if venue.IsManagedBy(actor.UserID) {
		return nil
	}
	return apperr.Forbidden("only the venue manager can author the seat layout")
}

func (s *service) LoadSeats(ctx context.Context, eventID uuid.UUID, filter Filter) ([]SeatView, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperr.Invalid("unknown seat status %q", filter.Status)
	}

	list, err := s.repo.LoadSeats(ctx, eventID, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

func (s *service) SeatMap(ctx context.Context, eventID uuid.UUID) (*SeatMapResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var result SeatMapResponse
	err = s.cache.GetOrSet(ctx, constants.BuildSeatMapKey(eventID.String()), constants.TTL_SEAT_MAP, func() (interface{}, error) {
		return s.buildSeatMap(ctx, event)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) buildSeatMap(ctx context.Context, event *events.Event) (*SeatMapResponse, error) {
	list, err := s.repo.LoadSeats(ctx, event.ID, Filter{})
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, list)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]SeatView)
	for _, v := range views {
		grouped[v.Section] = append(grouped[v.Section], v)
	}

	tiers, err := s.pricing.EffectiveTiers(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	stats, err := s.computeStats(ctx, event)
	if err != nil {
		return nil, err
	}

	return &SeatMapResponse{
		Seats:        grouped,
		PricingTiers: tiers,
		Statistics:   *stats,
	}, nil
}

func (s *service) SeatsBySection(ctx context.Context, eventID uuid.UUID, section string, page, limit int) (*SectionSeatsResponse, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if section == "" {
		return nil, apperr.Invalid("section is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}

	filter := Filter{Section: section}
	rows, err := s.repo.CountByStatus(ctx, eventID, filter)
	if err != nil {
		return nil, err
	}
	counts := NewStats(rows)

	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	list, err := s.repo.LoadSeats(ctx, eventID, filter)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, list)
	if err != nil {
		return nil, err
	}

	return &SectionSeatsResponse{
		Section:    section,
		Seats:      views,
		Counts:     counts,
		Pagination: response.NewPagination(page, limit, counts.Total),
	}, nil
}

func (s *service) Stats(ctx context.Context, eventID uuid.UUID) (*StatsResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var result StatsResponse
	err = s.cache.GetOrSet(ctx, constants.BuildSeatStatsKey(eventID.String()), constants.TTL_SEAT_STATS, func() (interface{}, error) {
		return s.computeStats(ctx, event)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) computeStats(ctx context.Context, event *events.Event) (*StatsResponse, error) {
	rows, err := s.repo.CountByStatus(ctx, event.ID, Filter{})
	if err != nil {
		return nil, err
	}
	stats := NewStats(rows)
	return &StatsResponse{
		Stats:         stats,
		OccupancyRate: stats.OccupancyRate(),
		Currency:      event.Currency,
	}, nil
}

func (s *service) InvalidateEvent(ctx context.Context, eventID uuid.UUID) {
	keys := []string{
		constants.BuildSeatMapKey(eventID.String()),
		constants.BuildSeatStatsKey(eventID.String()),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate seat read models", "event_id", eventID.String(), "error", err)
	}
}

// views resolves prices and tier labels for a page of seats
func (s *service) views(ctx context.Context, list []Seat) ([]SeatView, error) {
	tiers, err := s.tiersFor(ctx, list)
	if err != nil {
		return nil, err
	}

	out := make([]SeatView, 0, len(list))
	for i := range list {
		seat := &list[i]
		v := SeatView{
			ID:           seat.ID,
			EventID:      seat.EventID,
			Section:      seat.Section,
			Row:          seat.Row,
			SeatLabel:    seat.Label,
			Status:       seat.Status,
			IsAccessible: seat.IsAccessible,
			TierID:       seat.TierID,
			Price:        ResolvePrice(seat, tiers),
		}
		if seat.TierID != nil {
			if t, ok := tiers[*seat.TierID]; ok {
				v.TierName = t.Name
				v.Color = t.Color
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *service) tiersFor(ctx context.Context, list []Seat) (map[uuid.UUID]pricing.PricingTier, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, seat := range list {
		if seat.TierID != nil && !seen[*seat.TierID] {
			seen[*seat.TierID] = true
			ids = append(ids, *seat.TierID)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]pricing.PricingTier{}, nil
	}
	return s.pricing.TiersByIDs(ctx, ids)
}

// ResolvePrice returns the seat's own price if set, otherwise its tier's
// price, otherwise zero.
func ResolvePrice(seat *Seat, tiers map[uuid.UUID]pricing.PricingTier) float64 {
	if seat.Price != nil {
		return *seat.Price
	}
	if seat.TierID != nil {
		if t, ok := tiers[*seat.TierID]; ok {
			return t.Price
		}
	}
	return 0
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
