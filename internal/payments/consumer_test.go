package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/shared/apperr"
	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfirmer struct {
	errs  []error
	calls int
}

func (c *stubConfirmer) ConfirmByPayment(ctx context.Context, userID uuid.UUID, paymentID string) (*holds.ConfirmResponse, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &holds.ConfirmResponse{ConfirmedSeatsCount: 1, PaymentID: paymentID}, nil
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(offsets ...int64) *fakeClaim {
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(offsets))}
	for _, offset := range offsets {
		claim.messages <- &sarama.ConsumerMessage{
			Topic:     "payments.completed",
			Partition: 0,
			Offset:    offset,
			Value:     []byte(fmt.Sprintf(`{"payment_id":"pay-%d","user_id":"%s"}`, offset, uuid.NewString())),
		}
	}
	close(claim.messages)
	return claim
}

func newClaimHandler(confirmer Confirmer) *consumerGroupHandler {
	handler := NewHandler(nil, confirmer, 0, time.Millisecond)
	handler.log = logger.NewNop()
	return &consumerGroupHandler{handler: handler, log: logger.NewNop()}
}

func TestConsumeClaim_MarksProcessedMessages(t *testing.T) {
	confirmer := &stubConfirmer{}
	session := &fakeSession{ctx: context.Background()}

	err := newClaimHandler(confirmer).ConsumeClaim(session, claimOf(10, 11))

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, session.marked)
	assert.Equal(t, 2, confirmer.calls)
}

func TestConsumeClaim_TransientFailureStopsBeforeLaterOffsets(t *testing.T) {
	confirmer := &stubConfirmer{errs: []error{errors.New("db down")}}
	session := &fakeSession{ctx: context.Background()}

	err := newClaimHandler(confirmer).ConsumeClaim(session, claimOf(10, 11))

	require.Error(t, err)
	assert.Empty(t, session.marked, "nothing may be committed past the failed offset")
	assert.Equal(t, 1, confirmer.calls, "offset 11 waits for redelivery of offset 10")
}

func TestConsumeClaim_FinalErrorIsCommitted(t *testing.T) {
	confirmer := &stubConfirmer{errs: []error{apperr.NotFound("no reservation found for payment")}}
	session := &fakeSession{ctx: context.Background()}

	err := newClaimHandler(confirmer).ConsumeClaim(session, claimOf(10, 11))

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, session.marked)
}
