package pricing

import (
	"context"
	"fmt"
	"strings"

	"ticketing/internal/events"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/constants"
	"ticketing/internal/users"
	"ticketing/internal/venues"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service interface {
	EffectiveTiers(ctx context.Context, eventID uuid.UUID) (*EffectiveTiers, error)
	VenueTiers(ctx context.Context, venueID uuid.UUID) ([]PricingTier, error)
	ReplaceVenueTiers(ctx context.Context, actor users.Actor, venueID uuid.UUID, req ReplaceVenueTiersRequest) ([]PricingTier, error)
	UpsertEventTiers(ctx context.Context, actor users.Actor, eventID uuid.UUID, tiers []TierInput) ([]UpsertResult, error)
	// TiersByIDs returns tiers keyed by identity, soft-deleted ones included
	TiersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PricingTier, error)
}

type service struct {
	repo     Repository
	events   events.Repository
	venues   venues.Repository
	cache    cache.Service
	validate *validator.Validate
	log      *logger.Logger
}

func NewService(repo Repository, eventRepo events.Repository, venueRepo venues.Repository, cacheService cache.Service) Service {
	if cacheService == nil {
		cacheService = cache.NewNoopService()
	}
	return &service{
		repo:     repo,
		events:   eventRepo,
		venues:   venueRepo,
		cache:    cacheService,
		validate: validator.New(),
		log:      logger.GetDefault(),
	}
}

// EffectiveTiers returns the event catalog, or the venue catalog when the
// event has no live tiers of its own. The two are never mixed.
func (s *service) EffectiveTiers(ctx context.Context, eventID uuid.UUID) (*EffectiveTiers, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var result EffectiveTiers
	err = s.cache.GetOrSet(ctx, constants.BuildEventTiersKey(eventID.String()), constants.TTL_TIERS, func() (interface{}, error) {
		return s.resolve(ctx, event)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) resolve(ctx context.Context, event *events.Event) (*EffectiveTiers, error) {
	eventTiers, err := s.repo.ListEventTiers(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if len(eventTiers) > 0 {
		sortByPriceDesc(eventTiers)
		return &EffectiveTiers{Source: SourceEvent, Tiers: eventTiers}, nil
	}

	venueTiers, err := s.repo.ListVenueTiers(ctx, event.VenueID)
	if err != nil {
		return nil, err
	}
	if len(venueTiers) > 0 {
		sortByPriceDesc(venueTiers)
		return &EffectiveTiers{Source: SourceVenue, Tiers: venueTiers}, nil
	}

	return &EffectiveTiers{Source: SourceEvent, Tiers: []PricingTier{}}, nil
}

func (s *service) VenueTiers(ctx context.Context, venueID uuid.UUID) ([]PricingTier, error) {
	if _, err := s.venues.GetVenueByID(ctx, venueID); err != nil {
		return nil, err
	}

	var tiers []PricingTier
	err := s.cache.GetOrSet(ctx, constants.BuildVenueTiersKey(venueID.String()), constants.TTL_TIERS, func() (interface{}, error) {
		list, err := s.repo.ListVenueTiers(ctx, venueID)
		if err != nil {
			return nil, err
		}
		sortByPriceDesc(list)
		return list, nil
	}, &tiers)
	if err != nil {
		return nil, err
	}
	if tiers == nil {
		tiers = []PricingTier{}
	}
	return tiers, nil
}

func (s *service) ReplaceVenueTiers(ctx context.Context, actor users.Actor, venueID uuid.UUID, req ReplaceVenueTiersRequest) ([]PricingTier, error) {
	venue, err := s.venues.GetVenueByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !venue.IsManagedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the venue manager can edit the venue pricing catalog")
	}
	if err := s.validateTiers(req.Tiers); err != nil {
		return nil, err
	}

	expected := req.ExpectedTierIDs
	if expected == nil {
		current, err := s.repo.ListVenueTiers(ctx, venueID)
		if err != nil {
			return nil, err
		}
		expected = make([]uuid.UUID, 0, len(current))
		for _, t := range current {
			expected = append(expected, t.ID)
		}
	}

	newTiers := make([]PricingTier, 0, len(req.Tiers))
	for _, in := range req.Tiers {
		vid := venueID
		newTiers = append(newTiers, PricingTier{
			ID:          uuid.New(),
			Name:        in.Name,
			Price:       in.Price,
			Color:       in.Color,
			Section:     in.Section,
			Description: in.Description,
			VenueID:     &vid,
			IsVenueTier: true,
		})
	}

	if err := s.repo.ReplaceVenueTiers(ctx, venueID, expected, newTiers); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.log.InfoContext(ctx, "venue pricing catalog replaced",
		"venue_id", venueID.String(), "user_id", actor.UserID.String(), "tiers", len(newTiers))

	sortByPriceDesc(newTiers)
	return newTiers, nil
}

func (s *service) UpsertEventTiers(ctx context.Context, actor users.Actor, eventID uuid.UUID, tiers []TierInput) ([]UpsertResult, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !event.IsOrganizedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the event organizer can edit event pricing")
	}
	if err := s.validateTiers(tiers); err != nil {
		return nil, err
	}

	var updates, inserts []PricingTier
	results := make([]UpsertResult, 0, len(tiers))
	for _, in := range tiers {
		eid := eventID
		tier := PricingTier{
			Name:        in.Name,
			Price:       in.Price,
			Color:       in.Color,
			Section:     in.Section,
			Description: in.Description,
			EventID:     &eid,
		}
		if in.ID != nil {
			tier.ID = *in.ID
			updates = append(updates, tier)
			results = append(results, UpsertResult{Action: ActionUpdated, Tier: tier})
			continue
		}
		tier.ID = uuid.New()
		inserts = append(inserts, tier)
		results = append(results, UpsertResult{Action: ActionCreated, Tier: tier})
	}

	if err := s.repo.UpsertEventTiers(ctx, eventID, updates, inserts); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.log.InfoContext(ctx, "event pricing tiers upserted",
		"event_id", eventID.String(), "user_id", actor.UserID.String(),
		"updated", len(updates), "created", len(inserts))

	return results, nil
}

func (s *service) TiersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PricingTier, error) {
	tiers, err := s.repo.GetTiersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]PricingTier, len(tiers))
	for _, t := range tiers {
		byID[t.ID] = t
	}
	return byID, nil
}

// validateTiers rejects empty lists, malformed entries and duplicate
// identities or names within one call.
func (s *service) validateTiers(tiers []TierInput) error {
	if len(tiers) == 0 {
		return apperr.Invalid("at least one pricing tier is required")
	}

	seenIDs := make(map[uuid.UUID]bool, len(tiers))
	seenNames := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if err := s.validate.Struct(t); err != nil {
			return apperr.Invalid("tier %d: %s", i, describeValidation(err))
		}
		if t.ID != nil {
			if seenIDs[*t.ID] {
				return apperr.Invalid("duplicate tier id %s", t.ID.String())
			}
			seenIDs[*t.ID] = true
		}
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if seenNames[name] {
			return apperr.Invalid("duplicate tier name %q", t.Name)
		}
		seenNames[name] = true
	}
	return nil
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

// invalidate drops cached catalogs and the seat read models priced from them.
// A venue edit can change the effective catalog of any of its events, so
// every pricing and seat key goes.
func (s *service) invalidate(ctx context.Context) {
	for _, pattern := range []string{constants.CACHE_PATTERN_TIERS, constants.CACHE_PATTERN_SEATS} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.log.WarnContext(ctx, "failed to invalidate cached read models", "pattern", pattern, "error", err)
		}
	}
}
