package memstore

import (
	"context"

	"ticketing/internal/payments"
	"ticketing/internal/shared/apperr"
)

// AddPayment inserts or replaces a payment record
func (s *Store) AddPayment(p payments.Payment) payments.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	s.payments[p.ID] = p
	return p
}

type paymentRepo struct {
	s *Store
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*payments.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment not found")
	}
	return &p, nil
}

func (r *paymentRepo) Record(ctx context.Context, payment *payments.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	stored, ok := r.s.payments[payment.ID]
	if !ok {
		stored = *payment
		stored.CreatedAt = now
	} else {
		stored.Status = payment.Status
		stored.Amount = payment.Amount
		stored.Currency = payment.Currency
		stored.Provider = payment.Provider
		stored.CompletedAt = payment.CompletedAt
	}
	stored.UpdatedAt = now
	r.s.payments[payment.ID] = stored
	return nil
}
