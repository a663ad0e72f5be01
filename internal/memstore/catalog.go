package memstore

import (
	"context"
	"sort"

	"ticketing/internal/events"
	"ticketing/internal/pricing"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/venues"

	"github.com/google/uuid"
)

// AddVenue inserts or replaces a venue
func (s *Store) AddVenue(v venues.Venue) venues.Venue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
		v.UpdatedAt = v.CreatedAt
	}
	s.venues[v.ID] = v
	return v
}

// AddEvent inserts or replaces an event
func (s *Store) AddEvent(e events.Event) events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
		e.UpdatedAt = e.CreatedAt
	}
	s.events[e.ID] = e
	return e
}

// AddTier inserts or replaces a pricing tier as-is, including soft-deleted rows
func (s *Store) AddTier(t pricing.PricingTier) pricing.PricingTier {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
		t.UpdatedAt = t.CreatedAt
	}
	s.tiers[t.ID] = t
	return t
}

type eventRepo struct {
	s *Store
}

func (r *eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok || e.DeletedAt.Valid {
		return nil, apperr.NotFound("event not found")
	}
	return &e, nil
}

type venueRepo struct {
	s *Store
}

func (r *venueRepo) GetVenueByID(ctx context.Context, id uuid.UUID) (*venues.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.venues[id]
	if !ok || v.DeletedAt.Valid {
		return nil, apperr.NotFound("venue not found")
	}
	return &v, nil
}

type pricingRepo struct {
	s *Store
}

func inEventScope(t *pricing.PricingTier, eventID uuid.UUID) bool {
	return !t.DeletedAt.Valid && !t.IsVenueTier && t.EventID != nil && *t.EventID == eventID
}

func inVenueScope(t *pricing.PricingTier, venueID uuid.UUID) bool {
	return !t.DeletedAt.Valid && t.IsVenueTier && t.EventID == nil && t.VenueID != nil && *t.VenueID == venueID
}

func sortTiers(tiers []pricing.PricingTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].Price != tiers[j].Price {
			return tiers[i].Price > tiers[j].Price
		}
		return tiers[i].Name < tiers[j].Name
	})
}

func (r *pricingRepo) ListEventTiers(ctx context.Context, eventID uuid.UUID) ([]pricing.PricingTier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []pricing.PricingTier
	for _, t := range r.s.tiers {
		if inEventScope(&t, eventID) {
			out = append(out, t)
		}
	}
	sortTiers(out)
	return out, nil
}

func (r *pricingRepo) ListVenueTiers(ctx context.Context, venueID uuid.UUID) ([]pricing.PricingTier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []pricing.PricingTier
	for _, t := range r.s.tiers {
		if inVenueScope(&t, venueID) {
			out = append(out, t)
		}
	}
	sortTiers(out)
	return out, nil
}

func (r *pricingRepo) GetTiersByIDs(ctx context.Context, ids []uuid.UUID) ([]pricing.PricingTier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []pricing.PricingTier
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := r.s.tiers[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *pricingRepo) ReplaceVenueTiers(ctx context.Context, venueID uuid.UUID, expected []uuid.UUID, tiers []pricing.PricingTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if v, ok := r.s.venues[venueID]; !ok || v.DeletedAt.Valid {
		return apperr.NotFound("venue not found")
	}

	var current []uuid.UUID
	for _, t := range r.s.tiers {
		if inVenueScope(&t, venueID) {
			current = append(current, t.ID)
		}
	}
	if !pricing.SameIDSet(current, expected) {
		return apperr.Conflict("venue pricing catalog was modified concurrently")
	}

	now := r.s.now()
	for _, id := range current {
		t := r.s.tiers[id]
		t.DeletedAt.Time = now
		t.DeletedAt.Valid = true
		r.s.tiers[id] = t
	}
	for _, t := range tiers {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.CreatedAt, t.UpdatedAt = now, now
		r.s.tiers[t.ID] = t
	}
	return nil
}

func (r *pricingRepo) UpsertEventTiers(ctx context.Context, eventID uuid.UUID, updates []pricing.PricingTier, inserts []pricing.PricingTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range updates {
		t, ok := r.s.tiers[u.ID]
		if !ok || !inEventScope(&t, eventID) {
			return apperr.NotFound("pricing tier %s not found for event", u.ID)
		}
	}

	now := r.s.now()
	for _, u := range updates {
		t := r.s.tiers[u.ID]
		t.Name = u.Name
		t.Price = u.Price
		t.Color = u.Color
		t.Section = u.Section
		t.Description = u.Description
		t.UpdatedAt = now
		r.s.tiers[t.ID] = t
	}
	for _, t := range inserts {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.CreatedAt, t.UpdatedAt = now, now
		r.s.tiers[t.ID] = t
	}
	return nil
}
