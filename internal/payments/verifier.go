package payments

import (
	"context"
	"errors"

	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
)

// Verifier checks payment records before a reservation is confirmed over HTTP
type Verifier struct {
	repo Repository
}

func NewVerifier(repo Repository) *Verifier {
	return &Verifier{repo: repo}
}

// VerifyCompleted succeeds only for a completed payment owned by userID
func (v *Verifier) VerifyCompleted(ctx context.Context, paymentID string, userID uuid.UUID) error {
	payment, err := v.repo.GetByID(ctx, paymentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Conflict("payment not completed")
	}
	if err != nil {
		return err
	}
	if payment.UserID != userID {
		return apperr.Conflict("payment does not belong to the reservation owner")
	}
	if !payment.IsCompleted() {
		return apperr.Conflict("payment not completed")
	}
	return nil
}
