package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_PublishesHoldEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, DefaultKafkaProducerConfig(), logger.NewNop())

	event := NewHoldEvent(HoldEventConfirmed, uuid.New(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}).
		WithPayment("pay-1").
		WithPrice(42.5, "EUR")

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var decoded HoldEvent
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != HoldEventConfirmed || decoded.HoldID != event.HoldID {
			return errors.New("unexpected event payload")
		}
		if decoded.PaymentID == nil || *decoded.PaymentID != "pay-1" {
			return errors.New("payment id missing from payload")
		}
		return nil
	})

	require.NoError(t, publisher.PublishHoldEvent(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisher_ReturnsSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, DefaultKafkaProducerConfig(), logger.NewNop())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := publisher.PublishHoldEvent(context.Background(),
		NewHoldEvent(HoldEventReleased, uuid.New(), uuid.New(), uuid.New(), nil))

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisher_Headers(t *testing.T) {
	config := DefaultKafkaProducerConfig()
	config.ClientID = "inventory-test"
	publisher := &KafkaPublisher{config: config}
	event := NewHoldEvent(HoldEventReserved, uuid.New(), uuid.New(), uuid.New(), nil)

	headers := map[string]string{}
	for _, h := range publisher.createHeaders(event) {
		headers[string(h.Key)] = string(h.Value)
	}

	assert.Equal(t, "hold.reserved", headers["event_type"])
	assert.Equal(t, event.HoldID.String(), headers["hold_id"])
	assert.Equal(t, "inventory-test", headers["producer"])
	assert.NotContains(t, headers, "payment_id")
}

func TestHoldEvent_PartitionKeyIsEvent(t *testing.T) {
	eventID := uuid.New()
	event := NewHoldEvent(HoldEventExpired, uuid.New(), eventID, uuid.New(), nil).
		WithExpiry(time.Date(2026, 3, 1, 18, 15, 0, 0, time.UTC))

	assert.Equal(t, eventID.String(), event.GetPartitionKey())
	raw, err := event.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"hold.expired"`)
	assert.Contains(t, string(raw), `"expires_at":"2026-03-01T18:15:00Z"`)
}

func TestNewSaramaConfig(t *testing.T) {
	config := DefaultKafkaProducerConfig()
	config.CompressionType = sarama.CompressionLZ4

	sc := NewSaramaConfig(config)

	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.CompressionLZ4, sc.Producer.Compression)
	assert.Equal(t, config.ClientID, sc.ClientID)
}
