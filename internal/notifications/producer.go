package notifications

import (
	"context"
	"fmt"
	"time"

	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher fans hold lifecycle events out to downstream consumers
type Publisher interface {
	PublishHoldEvent(ctx context.Context, event *HoldEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka hold event producer
type KafkaProducerConfig struct {
	Brokers          []string
	ClientID         string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		ClientID:         "seat-inventory",
		Topic:            "seat-holds",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// NewSaramaConfig builds the sarama producer settings for config
func NewSaramaConfig(config *KafkaProducerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers require a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one event's holds ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaPublisher publishes hold events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPublisher dials the brokers and returns a publisher
func NewKafkaPublisher(config *KafkaProducerConfig, log *logger.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, NewSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, config, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer, e.g. a sarama mock
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, config *KafkaProducerConfig, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.GetDefault()
	}
	log.Info("kafka hold event producer created", "topic", config.Topic, "brokers", config.Brokers)
	return &KafkaPublisher{producer: producer, config: config, log: log}
}

func (p *KafkaPublisher) PublishHoldEvent(ctx context.Context, event *HoldEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal hold event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.config.Topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   p.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send hold event to Kafka: %w", err)
	}

	p.log.DebugContext(ctx, "hold event published",
		"topic", p.config.Topic, "partition", partition, "offset", offset,
		"type", string(event.Type), "hold_id", event.HoldID.String())
	return nil
}

func (p *KafkaPublisher) createHeaders(event *HoldEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("hold_id"), Value: []byte(event.HoldID.String())},
		{Key: []byte("event_id"), Value: []byte(event.EventID.String())},
		{Key: []byte("user_id"), Value: []byte(event.UserID.String())},
		{Key: []byte("version"), Value: []byte("1.0")},
		{Key: []byte("producer"), Value: []byte(p.config.ClientID)},
	}
	if event.PaymentID != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("payment_id"),
			Value: []byte(*event.PaymentID),
		})
	}
	return headers
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.log.Info("kafka hold event producer closed")
	return nil
}

// LogPublisher writes hold events to the log. Used when Kafka is disabled.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishHoldEvent(ctx context.Context, event *HoldEvent) error {
	p.log.DebugContext(ctx, "hold event",
		"type", string(event.Type),
		"hold_id", event.HoldID.String(),
		"event_id", event.EventID.String(),
		"seats", len(event.SeatIDs))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
