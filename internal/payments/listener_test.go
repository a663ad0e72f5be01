package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/memstore"
	"ticketing/internal/payments"
	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmCall struct {
	userID    uuid.UUID
	paymentID string
}

type fakeConfirmer struct {
	calls []confirmCall
	errs  []error
}

func (c *fakeConfirmer) ConfirmByPayment(ctx context.Context, userID uuid.UUID, paymentID string) (*holds.ConfirmResponse, error) {
	c.calls = append(c.calls, confirmCall{userID: userID, paymentID: paymentID})
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &holds.ConfirmResponse{ConfirmedSeatsCount: 2, PaymentID: paymentID}, nil
}

func message(t *testing.T, event payments.PaymentCompletedEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestHandler_ConfirmsAndRecordsPayment(t *testing.T) {
	store := memstore.New()
	confirmer := &fakeConfirmer{}
	handler := payments.NewHandler(store.Payments(), confirmer, 0, time.Millisecond)
	userID := uuid.New()

	err := handler.Handle(context.Background(), message(t, payments.PaymentCompletedEvent{
		PaymentID: "pay-1",
		UserID:    userID,
		Amount:    90,
		Currency:  "USD",
	}))

	require.NoError(t, err)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, confirmCall{userID: userID, paymentID: "pay-1"}, confirmer.calls[0])

	recorded, err := store.Payments().GetByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.True(t, recorded.IsCompleted())
	assert.NotNil(t, recorded.CompletedAt)
	assert.Equal(t, 90.0, recorded.Amount)
}

func TestHandler_DropsMalformedMessages(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := payments.NewHandler(nil, confirmer, 0, time.Millisecond)

	for _, value := range [][]byte{
		[]byte("{not json"),
		[]byte(`{"user_id":"` + uuid.NewString() + `"}`),
		[]byte(`{"payment_id":"pay-1"}`),
	} {
		assert.NoError(t, handler.Handle(context.Background(), value))
	}
	assert.Empty(t, confirmer.calls)
}

func TestHandler_IgnoresUnsettledPayments(t *testing.T) {
	store := memstore.New()
	confirmer := &fakeConfirmer{}
	handler := payments.NewHandler(store.Payments(), confirmer, 0, time.Millisecond)

	err := handler.Handle(context.Background(), message(t, payments.PaymentCompletedEvent{
		PaymentID: "pay-1",
		UserID:    uuid.New(),
		Status:    payments.PaymentStatusFailed,
	}))

	require.NoError(t, err)
	assert.Empty(t, confirmer.calls)
	recorded, err := store.Payments().GetByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, payments.PaymentStatusFailed, recorded.Status)
}

func TestHandler_FinalErrorsAreDropped(t *testing.T) {
	for _, err := range []error{
		apperr.NotFound("no reservation found for payment"),
		apperr.Conflict("reservation is expired"),
		apperr.Inconsistency("reserved seat is no longer held by its reservation", nil),
	} {
		confirmer := &fakeConfirmer{errs: []error{err}}
		handler := payments.NewHandler(nil, confirmer, 3, time.Millisecond)

		got := handler.Handle(context.Background(), message(t, payments.PaymentCompletedEvent{PaymentID: "pay-1", UserID: uuid.New()}))

		assert.NoError(t, got)
		assert.Len(t, confirmer.calls, 1, "final errors are not retried")
	}
}

func TestHandler_RetriesTransientErrors(t *testing.T) {
	transient := errors.New("connection reset")

	recovered := &fakeConfirmer{errs: []error{transient, nil}}
	handler := payments.NewHandler(nil, recovered, 3, time.Millisecond)
	require.NoError(t, handler.Handle(context.Background(), message(t, payments.PaymentCompletedEvent{PaymentID: "pay-1", UserID: uuid.New()})))
	assert.Len(t, recovered.calls, 2)

	failing := &fakeConfirmer{errs: []error{transient, transient, transient}}
	handler = payments.NewHandler(nil, failing, 2, time.Millisecond)
	err := handler.Handle(context.Background(), message(t, payments.PaymentCompletedEvent{PaymentID: "pay-1", UserID: uuid.New()}))
	assert.ErrorIs(t, err, transient)
	assert.Len(t, failing.calls, 3)
}

func TestVerifier(t *testing.T) {
	store := memstore.New()
	owner := uuid.New()
	store.AddPayment(payments.Payment{ID: "done", UserID: owner, Status: payments.PaymentStatusCompleted})
	store.AddPayment(payments.Payment{ID: "waiting", UserID: owner, Status: payments.PaymentStatusPending})
	verifier := payments.NewVerifier(store.Payments())

	assert.NoError(t, verifier.VerifyCompleted(context.Background(), "done", owner))
	assert.ErrorIs(t, verifier.VerifyCompleted(context.Background(), "done", uuid.New()), apperr.ErrConflict)
	assert.ErrorIs(t, verifier.VerifyCompleted(context.Background(), "waiting", owner), apperr.ErrConflict)
	assert.ErrorIs(t, verifier.VerifyCompleted(context.Background(), "missing", owner), apperr.ErrConflict)
}
